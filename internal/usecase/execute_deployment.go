package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

// ExecuteDeployment performs a single deployment attempt for one contract.
// It writes the ledger exactly once per attempt, unless the contract is already deployed.
type ExecuteDeployment struct {
	ledger    DeploymentLedger
	artifacts ArtifactResolver
	accounts  AccountProvider
	chain     ChainClient
	clock     Clock
	metrics   MetricsRecorder
	log       *slog.Logger
}

// NewExecuteDeployment creates a new ExecuteDeployment use case
func NewExecuteDeployment(
	ledger DeploymentLedger,
	artifacts ArtifactResolver,
	accounts AccountProvider,
	chain ChainClient,
	clock Clock,
	metrics MetricsRecorder,
	log *slog.Logger,
) *ExecuteDeployment {
	return &ExecuteDeployment{
		ledger:    ledger,
		artifacts: artifacts,
		accounts:  accounts,
		chain:     chain,
		clock:     clock,
		metrics:   metrics,
		log:       log.With("component", "ExecuteDeployment"),
	}
}

// Execute deploys spec on network, or returns the existing record when the contract
// already has a confirmed address. A failed attempt is recorded as StatusFailed and
// its error returned together with the record.
func (uc *ExecuteDeployment) Execute(ctx context.Context, network string, spec *models.DeploymentSpec, runID string) (*models.DeploymentRecord, error) {
	existing, err := uc.ledger.Get(ctx, network, spec.IdempotencyKey())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if existing != nil && existing.Status.IsDeployed() {
		uc.log.Debug("contract already deployed", "contract", spec.ContractID, "address", existing.Address)
		return existing, nil
	}

	record := existing.Clone()
	if record == nil {
		record = &models.DeploymentRecord{
			Network:    network,
			ContractID: spec.IdempotencyKey(),
			Status:     models.StatusPending,
			CreatedAt:  uc.clock.Now(),
		}
	}
	record.Contract = spec.ArtifactName()
	record.RunID = runID
	record.Attempts++

	result, deployer, args, deployErr := uc.deploy(ctx, spec)
	record.ConstructorArgs = args
	if deployer != (common.Address{}) {
		record.Deployer = deployer.Hex()
	}

	if deployErr != nil {
		record.Status = models.StatusFailed
		record.LastError = deployErr.Error()
		if result != nil && result.TxHash != (common.Hash{}) {
			record.TxHash = result.TxHash.Hex()
		}
		uc.metrics.DeployAttempt(network, "failed")
		uc.log.Warn("deployment attempt failed",
			"contract", spec.ContractID, "attempt", record.Attempts, "error", deployErr)
	} else {
		record.Status = models.StatusDeployed
		record.Address = result.Address.Hex()
		record.TxHash = result.TxHash.Hex()
		record.BlockNumber = result.BlockNumber
		record.LastError = ""
		uc.metrics.DeployAttempt(network, "deployed")
		uc.log.Info("contract deployed",
			"contract", spec.ContractID, "address", record.Address, "tx", record.TxHash)
	}
	record.UpdatedAt = uc.clock.Now()

	// The attempt happened on chain, so it is recorded even if the caller went away
	if err := uc.ledger.Put(context.WithoutCancel(ctx), record); err != nil {
		return nil, fmt.Errorf("failed to record deployment of %s: %w", spec.ContractID, err)
	}

	return record, deployErr
}

// deploy resolves everything needed for the transaction and submits it.
// The resolved args are returned even when submission fails.
func (uc *ExecuteDeployment) deploy(ctx context.Context, spec *models.DeploymentSpec) (*DeployResult, common.Address, []any, error) {
	args := spec.ConstructorArgs

	artifact, err := uc.artifacts.Resolve(ctx, spec.ArtifactName())
	if err != nil {
		return nil, common.Address{}, args, fmt.Errorf("failed to resolve artifact: %w", err)
	}

	var deployer common.Address
	if spec.From != "" {
		deployer, err = uc.accounts.Signer(ctx, spec.From)
	} else {
		deployer, err = uc.accounts.Deployer(ctx)
	}
	if err != nil {
		return nil, common.Address{}, args, fmt.Errorf("failed to resolve deployer: %w", err)
	}

	args, err = ResolveAccountPlaceholders(ctx, uc.accounts, spec.ConstructorArgs)
	if err != nil {
		return nil, deployer, spec.ConstructorArgs, err
	}

	result, err := uc.chain.Deploy(ctx, artifact, args, deployer)
	return result, deployer, args, err
}

// ResolveAccountPlaceholders replaces "@name" strings, at any nesting depth,
// with the hex address of the named account.
func ResolveAccountPlaceholders(ctx context.Context, accounts AccountProvider, args []any) ([]any, error) {
	if args == nil {
		return nil, nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		resolved, err := resolvePlaceholder(ctx, accounts, arg)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func resolvePlaceholder(ctx context.Context, accounts AccountProvider, arg any) (any, error) {
	switch v := arg.(type) {
	case string:
		name, ok := strings.CutPrefix(v, "@")
		if !ok {
			return v, nil
		}
		addr, err := accounts.Address(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown account %q: %v", domain.ErrInvalidArgs, name, err)
		}
		return addr.Hex(), nil
	case []any:
		return ResolveAccountPlaceholders(ctx, accounts, v)
	default:
		return v, nil
	}
}
