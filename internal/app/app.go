package app

import (
	"github.com/trebuchet-org/treb-deploy/internal/adapters/metrics"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig

	// Use cases
	OrchestrateDeployment *usecase.OrchestrateDeployment
	ListDeployments       *usecase.ListDeployments
	ShowDeployment        *usecase.ShowDeployment
	ResetDeployment       *usecase.ResetDeployment

	// Metrics are flushed to Config.MetricsFile when a command finishes
	Metrics *metrics.Recorder
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	orchestrateDeployment *usecase.OrchestrateDeployment,
	listDeployments *usecase.ListDeployments,
	showDeployment *usecase.ShowDeployment,
	resetDeployment *usecase.ResetDeployment,
	recorder *metrics.Recorder,
) (*App, error) {
	return &App{
		Config:                cfg,
		OrchestrateDeployment: orchestrateDeployment,
		ListDeployments:       listDeployments,
		ShowDeployment:        showDeployment,
		ResetDeployment:       resetDeployment,
		Metrics:               recorder,
	}, nil
}

// FlushMetrics writes the run's counters if a metrics file is configured
func (a *App) FlushMetrics() error {
	if a.Config.MetricsFile == "" || a.Metrics == nil {
		return nil
	}
	return a.Metrics.WriteTextfile(a.Config.MetricsFile)
}
