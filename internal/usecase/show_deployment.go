package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

// ShowDeploymentParams contains parameters for showing a deployment
type ShowDeploymentParams struct {
	ContractID string

	// Include every superseded revision of the record
	WithHistory bool
}

// ShowDeploymentResult is a record plus, optionally, its history oldest first
type ShowDeploymentResult struct {
	Record  *models.DeploymentRecord
	History []*models.DeploymentRecord
}

// ShowDeployment is the use case for showing deployment details
type ShowDeployment struct {
	config *config.RuntimeConfig
	ledger DeploymentLedger
	sink   ProgressSink
}

// NewShowDeployment creates a new ShowDeployment use case
func NewShowDeployment(cfg *config.RuntimeConfig, ledger DeploymentLedger, sink ProgressSink) *ShowDeployment {
	return &ShowDeployment{
		config: cfg,
		ledger: ledger,
		sink:   sink,
	}
}

// Run executes the show deployment use case
func (uc *ShowDeployment) Run(ctx context.Context, params ShowDeploymentParams) (*ShowDeploymentResult, error) {
	if uc.config.Network == nil {
		return nil, fmt.Errorf("network is required to show a deployment")
	}
	network := uc.config.Network.Name

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading deployment details",
		Spinner: true,
	})

	record, err := uc.ledger.Get(ctx, network, params.ContractID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, lookupError(ctx, uc.ledger, network, params.ContractID)
	}
	if err != nil {
		return nil, err
	}

	result := &ShowDeploymentResult{Record: record}
	if params.WithHistory {
		result.History, err = uc.ledger.History(ctx, network, params.ContractID)
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Message: "Deployment loaded",
	})

	return result, nil
}

// lookupError returns a not-found error that suggests known contract ids on the network
func lookupError(ctx context.Context, ledger DeploymentLedger, network, contractID string) error {
	records, err := ledger.List(ctx, network)
	if err != nil {
		return fmt.Errorf("%w: deployment %q", domain.ErrNotFound, contractID)
	}
	known := lo.Map(records, func(r *models.DeploymentRecord, _ int) string { return r.ContractID })
	return notFoundError("deployment", contractID, known)
}
