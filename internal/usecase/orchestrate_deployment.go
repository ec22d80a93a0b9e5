package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// OrchestrateParams selects and configures a deployment run
type OrchestrateParams struct {
	ContractIDs []string // empty selects every unit
	Tags        []string // a unit matches when it carries any of the tags
	Force       bool     // reset existing records before running
	NoVerify    bool
}

// UnitResult is the outcome of one contract's pipeline
type UnitResult struct {
	ContractID      string
	Contract        string
	Status          models.DeploymentStatus
	Address         string
	TxHash          string
	Attempts        int
	VerifyRequested bool
	VerifyRetries   int
	Skipped         bool
	Err             error
}

// Succeeded reports whether the unit reached the end of its pipeline
func (r *UnitResult) Succeeded() bool {
	if r.Err != nil {
		return false
	}
	if r.Status == models.StatusVerified {
		return true
	}
	return !r.VerifyRequested && r.Status.IsDeployed()
}

// OrchestrateResult summarises a run
type OrchestrateResult struct {
	RunID   string
	Network string
	Units   []*UnitResult
}

// Success reports whether every selected unit succeeded
func (r *OrchestrateResult) Success() bool {
	return lo.EveryBy(r.Units, func(u *UnitResult) bool { return u.Succeeded() })
}

// Failed returns the units that did not succeed
func (r *OrchestrateResult) Failed() []*UnitResult {
	return lo.Reject(r.Units, func(u *UnitResult, _ int) bool { return u.Succeeded() })
}

// OrchestrateDeployment runs the deploy then verify pipeline for a batch of units
type OrchestrateDeployment struct {
	config   *config.RuntimeConfig
	manifest DeploymentManifest
	ledger   DeploymentLedger
	executor *ExecuteDeployment
	verifier *VerifyDeployment
	clock    Clock
	metrics  MetricsRecorder
	progress ProgressSink
	log      *slog.Logger
}

// NewOrchestrateDeployment creates a new OrchestrateDeployment use case
func NewOrchestrateDeployment(
	cfg *config.RuntimeConfig,
	manifest DeploymentManifest,
	ledger DeploymentLedger,
	executor *ExecuteDeployment,
	verifier *VerifyDeployment,
	clock Clock,
	metrics MetricsRecorder,
	progress ProgressSink,
	log *slog.Logger,
) *OrchestrateDeployment {
	return &OrchestrateDeployment{
		config:   cfg,
		manifest: manifest,
		ledger:   ledger,
		executor: executor,
		verifier: verifier,
		clock:    clock,
		metrics:  metrics,
		progress: progress,
		log:      log.With("component", "OrchestrateDeployment"),
	}
}

// Run deploys and verifies the selected units on the configured network
func (uc *OrchestrateDeployment) Run(ctx context.Context, params OrchestrateParams) (*OrchestrateResult, error) {
	if uc.config.Network == nil {
		return nil, fmt.Errorf("network is required for deploy")
	}

	specs, err := uc.manifest.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment manifest: %w", err)
	}
	specs, err = SelectSpecs(specs, params.ContractIDs, params.Tags)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	uc.log.Info("starting deployment run", "run", runID, "network", uc.config.Network.Name, "units", len(specs))

	units := uc.forEach(ctx, len(specs), func(ctx context.Context, i int) *UnitResult {
		uc.progress.OnProgress(ctx, ProgressEvent{
			Stage:      StageDeploying,
			ContractID: specs[i].ContractID,
			Current:    i + 1,
			Total:      len(specs),
			Message:    fmt.Sprintf("Deploying %s", specs[i].ContractID),
			Spinner:    true,
		})
		return uc.runUnit(ctx, specs[i], params, runID)
	})

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageCompleted, Total: len(specs)})

	return &OrchestrateResult{RunID: runID, Network: uc.config.Network.Name, Units: units}, nil
}

// Resume drives deployed but unverified records through verification.
// With force, records whose verification failed are retried too.
func (uc *OrchestrateDeployment) Resume(ctx context.Context, contractIDs []string, force bool) (*OrchestrateResult, error) {
	network := uc.config.Network
	if network == nil {
		return nil, fmt.Errorf("network is required for verify")
	}
	if !network.CanVerify() {
		return nil, fmt.Errorf("network %s has no explorer_api_url configured", network.Name)
	}

	records, err := uc.ledger.List(ctx, network.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	if len(contractIDs) > 0 {
		known := lo.Map(records, func(r *models.DeploymentRecord, _ int) string { return r.ContractID })
		for _, id := range contractIDs {
			if !lo.Contains(known, id) {
				return nil, notFoundError("deployment", id, known)
			}
		}
		records = lo.Filter(records, func(r *models.DeploymentRecord, _ int) bool {
			return lo.Contains(contractIDs, r.ContractID)
		})
	}

	records = lo.Filter(records, func(r *models.DeploymentRecord, _ int) bool {
		switch r.Status {
		case models.StatusDeployed, models.StatusVerificationPending:
			return true
		case models.StatusFailed:
			return force && r.Address != ""
		default:
			return false
		}
	})

	runID := uuid.NewString()
	units := uc.forEach(ctx, len(records), func(ctx context.Context, i int) *UnitResult {
		record := records[i]
		result := &UnitResult{
			ContractID:      record.ContractID,
			Contract:        record.Contract,
			Attempts:        record.Attempts,
			VerifyRequested: true,
		}
		if record.Status == models.StatusFailed {
			reopened, err := uc.reopen(ctx, record, runID)
			if err != nil {
				uc.finish(network.Name, result, record, err)
				return result
			}
			record = reopened
		}
		record, err := uc.verify(ctx, record, result)
		uc.finish(network.Name, result, record, err)
		return result
	})

	return &OrchestrateResult{RunID: runID, Network: network.Name, Units: units}, nil
}

// forEach runs fn for indexes [0, n) with bounded concurrency and collects the results in order
func (uc *OrchestrateDeployment) forEach(ctx context.Context, n int, fn func(context.Context, int) *UnitResult) []*UnitResult {
	results := make([]*UnitResult, n)

	var g errgroup.Group
	g.SetLimit(max(uc.config.Deploy.Concurrency, 1))
	for i := range n {
		g.Go(func() error {
			results[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runUnit drives one unit through the state machine. Failures are reported in the result.
func (uc *OrchestrateDeployment) runUnit(ctx context.Context, spec *models.DeploymentSpec, params OrchestrateParams, runID string) *UnitResult {
	network := uc.config.Network.Name
	result := &UnitResult{
		ContractID:      spec.ContractID,
		Contract:        spec.ArtifactName(),
		VerifyRequested: uc.verificationEnabled(spec, params),
	}

	record, err := uc.ledger.Get(ctx, network, spec.IdempotencyKey())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		uc.finish(network, result, nil, fmt.Errorf("failed to read ledger: %w", err))
		return result
	}

	if record != nil && params.Force {
		if record, err = resetRecord(ctx, uc.ledger, record, runID, uc.clock); err != nil {
			uc.finish(network, result, nil, err)
			return result
		}
	}

	if record != nil && record.Status.IsTerminal() {
		uc.log.Info("skipping contract in terminal state", "contract", spec.ContractID, "status", record.Status)
		result.Skipped = true
		uc.finish(network, result, record, nil)
		return result
	}

	if record == nil || !record.Status.IsDeployed() {
		record, err = uc.deployWithRetry(ctx, network, spec, runID)
		if err != nil {
			uc.finish(network, result, record, err)
			return result
		}
	}

	if !result.VerifyRequested {
		uc.finish(network, result, record, nil)
		return result
	}

	record, err = uc.verify(ctx, record, result)
	uc.finish(network, result, record, err)
	return result
}

// reopen takes a Failed record that has an address back to Deployed through an
// explicit Pending reset revision, keeping its on-chain details
func (uc *OrchestrateDeployment) reopen(ctx context.Context, record *models.DeploymentRecord, runID string) (*models.DeploymentRecord, error) {
	ctx = context.WithoutCancel(ctx)
	reset, err := resetRecord(ctx, uc.ledger, record, runID, uc.clock)
	if err != nil {
		return record, err
	}

	next := reset.Clone()
	next.Status = models.StatusDeployed
	next.Address = record.Address
	next.TxHash = record.TxHash
	next.BlockNumber = record.BlockNumber
	next.Deployer = record.Deployer
	next.ConstructorArgs = record.ConstructorArgs
	next.Attempts = record.Attempts
	next.UpdatedAt = uc.clock.Now()
	if err := uc.ledger.Put(ctx, next); err != nil {
		return reset, fmt.Errorf("failed to reopen %s: %w", record.ContractID, err)
	}
	uc.log.Info("reopened failed deployment for verification", "contract", record.ContractID, "address", record.Address)
	return next, nil
}

// deployWithRetry re-invokes the executor for retryable failures, up to MaxAttempts per run
func (uc *OrchestrateDeployment) deployWithRetry(ctx context.Context, network string, spec *models.DeploymentSpec, runID string) (*models.DeploymentRecord, error) {
	maxAttempts := max(uc.config.Deploy.MaxAttempts, 1)
	b := DeployBackoff(uc.config.Deploy).New(uc.clock)

	for attempt := 1; ; attempt++ {
		record, err := uc.executor.Execute(ctx, network, spec, runID)
		if err == nil {
			return record, nil
		}
		if record == nil || !domain.IsRetryableDeploy(err) || attempt >= maxAttempts || ctx.Err() != nil {
			return record, err
		}

		delay := b.NextBackOff()
		uc.log.Info("retrying deployment",
			"contract", spec.ContractID, "attempt", attempt, "max_attempts", maxAttempts, "delay", delay, "error", err)
		if sleepErr := uc.clock.Sleep(ctx, delay); sleepErr != nil {
			return record, sleepErr
		}
	}
}

// verify moves a deployed record to VerificationPending and runs the worker on it
func (uc *OrchestrateDeployment) verify(ctx context.Context, record *models.DeploymentRecord, result *UnitResult) (*models.DeploymentRecord, error) {
	if record.Status != models.StatusVerificationPending {
		if !models.CanTransition(record.Status, models.StatusVerificationPending) {
			return record, fmt.Errorf("%w: %s -> %s for %s",
				domain.ErrInvalidTransition, record.Status, models.StatusVerificationPending, record.ContractID)
		}
		next := record.Clone()
		next.Status = models.StatusVerificationPending
		next.LastError = ""
		next.UpdatedAt = uc.clock.Now()
		if err := uc.ledger.Put(context.WithoutCancel(ctx), next); err != nil {
			return record, fmt.Errorf("failed to record verification start: %w", err)
		}
		record = next
	}

	verifyResult, err := uc.verifier.Verify(ctx, models.NewVerificationTask(record, uc.clock.Now()))
	if err != nil {
		return record, err
	}
	result.VerifyRetries = verifyResult.Retries
	if verifyResult.Outcome != models.OutcomeVerified {
		return verifyResult.Record, fmt.Errorf("verification of %s failed: %s", record.ContractID, verifyResult.Message)
	}
	return verifyResult.Record, nil
}

// finish copies the final record state into the result
func (uc *OrchestrateDeployment) finish(network string, result *UnitResult, record *models.DeploymentRecord, err error) {
	result.Err = err
	if record != nil {
		result.Status = record.Status
		result.Address = record.Address
		result.TxHash = record.TxHash
		result.Attempts = record.Attempts
	} else {
		result.Status = models.StatusFailed
	}
	if result.Skipped && record != nil && record.Status == models.StatusFailed {
		result.Err = fmt.Errorf("contract is in terminal state %s: %s (reset it to retry)", record.Status, record.LastError)
	}
	uc.metrics.FinalStatus(network, result.Status)

	if result.Err != nil {
		uc.progress.Error(fmt.Sprintf("%s: %v", result.ContractID, result.Err))
	}
}

// verificationEnabled reports whether a spec goes through verification in this run
func (uc *OrchestrateDeployment) verificationEnabled(spec *models.DeploymentSpec, params OrchestrateParams) bool {
	return !params.NoVerify &&
		uc.config.Verify.Enabled &&
		uc.config.Network.CanVerify() &&
		spec.ShouldVerify()
}

// SelectSpecs filters specs by explicit ids and tags, keeping manifest order
func SelectSpecs(specs []*models.DeploymentSpec, ids, tags []string) ([]*models.DeploymentSpec, error) {
	known := lo.Map(specs, func(s *models.DeploymentSpec, _ int) string { return s.ContractID })
	for _, id := range ids {
		if !lo.Contains(known, id) {
			return nil, notFoundError("deployment unit", id, known)
		}
	}

	selected := lo.Filter(specs, func(s *models.DeploymentSpec, _ int) bool {
		if len(ids) > 0 && !lo.Contains(ids, s.ContractID) {
			return false
		}
		if len(tags) > 0 && !lo.SomeBy(tags, s.HasTag) {
			return false
		}
		return true
	})
	if len(selected) == 0 {
		return nil, fmt.Errorf("no deployment units match the selection")
	}
	return selected, nil
}
