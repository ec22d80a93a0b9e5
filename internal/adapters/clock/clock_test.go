package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemSleep(t *testing.T) {
	t.Run("waits", func(t *testing.T) {
		start := time.Now()
		assert.NoError(t, System{}.Sleep(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, System{}.Sleep(ctx, time.Hour), context.Canceled)
	})

	t.Run("zero duration", func(t *testing.T) {
		assert.NoError(t, System{}.Sleep(context.Background(), 0))
	})
}
