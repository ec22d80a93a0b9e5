package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

// ListDeploymentsParams contains parameters for listing deployments
type ListDeploymentsParams struct {
	// Filter parameters (network comes from RuntimeConfig)
	Contract string
	Status   models.DeploymentStatus
}

// DeploymentSummary holds counts over a list of records
type DeploymentSummary struct {
	Total    int
	ByStatus map[models.DeploymentStatus]int
}

// DeploymentListResult contains the records and their summary
type DeploymentListResult struct {
	Network     string
	Deployments []*models.DeploymentRecord
	Summary     DeploymentSummary
}

// ListDeployments is the use case for listing deployments
type ListDeployments struct {
	config *config.RuntimeConfig
	ledger DeploymentLedger
	sink   ProgressSink
}

// NewListDeployments creates a new ListDeployments use case
func NewListDeployments(cfg *config.RuntimeConfig, ledger DeploymentLedger, sink ProgressSink) *ListDeployments {
	return &ListDeployments{
		config: cfg,
		ledger: ledger,
		sink:   sink,
	}
}

// Run executes the list deployments use case
func (uc *ListDeployments) Run(ctx context.Context, params ListDeploymentsParams) (*DeploymentListResult, error) {
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading deployments from ledger",
		Spinner: true,
	})

	network := ""
	if uc.config.Network != nil {
		network = uc.config.Network.Name
	}

	records, err := uc.ledger.List(ctx, network)
	if err != nil {
		return nil, err
	}

	records = lo.Filter(records, func(r *models.DeploymentRecord, _ int) bool {
		if params.Status != "" && r.Status != params.Status {
			return false
		}
		if params.Contract != "" &&
			!strings.EqualFold(r.Contract, params.Contract) &&
			!strings.EqualFold(r.ContractID, params.Contract) {
			return false
		}
		return true
	})

	sortRecords(records)

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Current: len(records),
		Total:   len(records),
		Message: "Deployments loaded",
	})

	return &DeploymentListResult{
		Network:     network,
		Deployments: records,
		Summary:     calculateSummary(records),
	}, nil
}

// sortRecords sorts records by network, then contract id
func sortRecords(records []*models.DeploymentRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Network != records[j].Network {
			return records[i].Network < records[j].Network
		}
		return records[i].ContractID < records[j].ContractID
	})
}

func calculateSummary(records []*models.DeploymentRecord) DeploymentSummary {
	return DeploymentSummary{
		Total: len(records),
		ByStatus: lo.CountValuesBy(records, func(r *models.DeploymentRecord) models.DeploymentStatus {
			return r.Status
		}),
	}
}
