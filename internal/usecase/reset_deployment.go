package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

// ResetDeploymentParams contains parameters for resetting a deployment record
type ResetDeploymentParams struct {
	ContractID string
	DryRun     bool // If true, only look up the record without writing
}

// ResetDeploymentResult contains the record before and after the reset
type ResetDeploymentResult struct {
	Previous *models.DeploymentRecord
	Current  *models.DeploymentRecord
}

// ResetDeployment supersedes a record with a Pending revision so the next run deploys again.
// The superseded revision stays in the ledger history.
type ResetDeployment struct {
	config *config.RuntimeConfig
	ledger DeploymentLedger
	clock  Clock
	log    *slog.Logger
}

// NewResetDeployment creates a new ResetDeployment use case
func NewResetDeployment(cfg *config.RuntimeConfig, ledger DeploymentLedger, clock Clock, log *slog.Logger) *ResetDeployment {
	return &ResetDeployment{
		config: cfg,
		ledger: ledger,
		clock:  clock,
		log:    log.With("component", "ResetDeployment"),
	}
}

// Run executes the reset deployment use case
func (uc *ResetDeployment) Run(ctx context.Context, params ResetDeploymentParams) (*ResetDeploymentResult, error) {
	if uc.config.Network == nil {
		return nil, fmt.Errorf("network is required for reset")
	}
	network := uc.config.Network.Name

	record, err := uc.ledger.Get(ctx, network, params.ContractID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, lookupError(ctx, uc.ledger, network, params.ContractID)
	}
	if err != nil {
		return nil, err
	}

	if params.DryRun {
		return &ResetDeploymentResult{Previous: record}, nil
	}

	current, err := resetRecord(ctx, uc.ledger, record, "", uc.clock)
	if err != nil {
		return nil, err
	}
	uc.log.Info("deployment reset", "contract", params.ContractID, "previous_status", record.Status)

	return &ResetDeploymentResult{Previous: record, Current: current}, nil
}

// resetRecord writes a Pending revision of record, clearing its on-chain details
func resetRecord(ctx context.Context, ledger DeploymentLedger, record *models.DeploymentRecord, runID string, clock Clock) (*models.DeploymentRecord, error) {
	next := &models.DeploymentRecord{
		Network:    record.Network,
		ContractID: record.ContractID,
		Contract:   record.Contract,
		Status:     models.StatusPending,
		Revision:   record.Revision,
		RunID:      runID,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  clock.Now(),
	}
	if err := ledger.Put(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to reset %s: %w", record.ContractID, err)
	}
	return next, nil
}
