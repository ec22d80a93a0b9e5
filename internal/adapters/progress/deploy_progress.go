package progress

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// DeployProgress implements progress reporting for deployment runs.
// Units may run concurrently, so every method is serialized.
type DeployProgress struct {
	out         io.Writer
	interactive bool
	startTime   time.Time

	mu      sync.Mutex
	spinner *spinner.Spinner
}

// NewDeployProgress creates a new deployment progress reporter
func NewDeployProgress(out io.Writer, interactive bool) *DeployProgress {
	return &DeployProgress{
		out:         out,
		interactive: interactive,
		startTime:   time.Now(),
	}
}

// OnProgress handles progress events
func (p *DeployProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Stage == usecase.StageCompleted {
		p.stopSpinner()
		if event.Total > 0 {
			color.New(color.FgGreen).Fprintf(p.out, "✅ Processed %d contract(s) in %s\n", event.Total, time.Since(p.startTime).Round(time.Millisecond))
		}
		return
	}

	if !p.interactive {
		if event.Message == "" {
			return
		}
		switch event.Stage {
		case usecase.StageDeploying:
			if event.Total > 0 {
				fmt.Fprintf(p.out, "🚀 [%d/%d] %s\n", event.Current, event.Total, event.Message)
			} else {
				fmt.Fprintf(p.out, "🚀 %s\n", event.Message)
			}
		case usecase.StageVerifying:
			if event.Current > 1 {
				fmt.Fprintf(p.out, "🔍 %s (attempt %d)\n", event.Message, event.Current)
			} else {
				fmt.Fprintf(p.out, "🔍 %s\n", event.Message)
			}
		default:
			fmt.Fprintln(p.out, event.Message)
		}
		return
	}

	if event.Spinner {
		if p.spinner == nil {
			p.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			p.spinner.Writer = p.out
			_ = p.spinner.Color("cyan", "bold")
		}
		p.spinner.Suffix = " " + event.Message
		if !p.spinner.Active() {
			p.spinner.Start()
		}
	} else {
		p.stopSpinner()
	}
}

// Info prints an info message
func (p *DeployProgress) Info(message string) {
	p.print(color.New(color.FgCyan), "ℹ️  "+message)
}

// Error prints an error message
func (p *DeployProgress) Error(message string) {
	p.print(color.New(color.FgRed), "❌ "+message)
}

func (p *DeployProgress) print(c *color.Color, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Stop spinner temporarily
	wasActive := p.spinner != nil && p.spinner.Active()
	if wasActive {
		p.spinner.Stop()
	}

	c.Fprintln(p.out, message)

	if wasActive {
		p.spinner.Start()
	}
}

func (p *DeployProgress) stopSpinner() {
	if p.spinner != nil && p.spinner.Active() {
		p.spinner.Stop()
	}
}

// Ensure it implements the interface
var _ usecase.ProgressSink = (*DeployProgress)(nil)
