package clock

import (
	"context"
	"time"

	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// System is the wall clock
type System struct{}

var _ usecase.Clock = System{}

// Now returns the current time
func (System) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is done
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
