package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

// VerifyDeployment drives a verification task to a terminal outcome,
// rescheduling with capped exponential backoff while the backend reports pending.
type VerifyDeployment struct {
	ledger    DeploymentLedger
	artifacts ArtifactResolver
	backend   VerificationBackend
	clock     Clock
	policy    BackoffPolicy
	metrics   MetricsRecorder
	progress  ProgressSink
	log       *slog.Logger
}

// NewVerifyDeployment creates a new verify deployment use case
func NewVerifyDeployment(
	cfg *config.RuntimeConfig,
	ledger DeploymentLedger,
	artifacts ArtifactResolver,
	backend VerificationBackend,
	clock Clock,
	metrics MetricsRecorder,
	progress ProgressSink,
	log *slog.Logger,
) *VerifyDeployment {
	return &VerifyDeployment{
		ledger:    ledger,
		artifacts: artifacts,
		backend:   backend,
		clock:     clock,
		policy:    VerifyBackoff(cfg.Verify),
		metrics:   metrics,
		progress:  progress,
		log:       log.With("component", "VerifyDeployment"),
	}
}

// VerifyResult is the terminal state of a verification task
type VerifyResult struct {
	Outcome models.VerificationOutcome
	Record  *models.DeploymentRecord
	Retries int
	Message string
}

// Verify processes task until the backend confirms or rejects it, or the retry
// window is exhausted. If ctx is cancelled the record is left VerificationPending
// and ctx.Err() is returned.
func (uc *VerifyDeployment) Verify(ctx context.Context, task *models.VerificationTask) (*VerifyResult, error) {
	artifact, err := uc.artifacts.Resolve(ctx, task.Contract)
	if err != nil {
		return uc.finalize(ctx, task, models.OutcomeFailed, fmt.Sprintf("failed to resolve artifact: %v", err))
	}

	b := uc.policy.New(uc.clock)
	req := VerificationRequest{
		Address:         common.HexToAddress(task.Address),
		Artifact:        artifact,
		ConstructorArgs: task.ConstructorArgs,
	}

	for {
		uc.progress.OnProgress(ctx, ProgressEvent{
			Stage:      StageVerifying,
			ContractID: task.ContractID,
			Current:    task.RetryCount + 1,
			Message:    fmt.Sprintf("Verifying %s at %s", task.ContractID, task.Address),
			Spinner:    true,
		})

		resp, err := uc.backend.Submit(ctx, req)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var message string
		switch {
		case err == nil && resp.Status == models.OutcomeVerified:
			uc.metrics.VerificationAttempt(task.Network, models.OutcomeVerified)
			return uc.finalize(ctx, task, models.OutcomeVerified, resp.Message)
		case err == nil && resp.Status == models.OutcomeFailed:
			uc.metrics.VerificationAttempt(task.Network, models.OutcomeFailed)
			return uc.finalize(ctx, task, models.OutcomeFailed, resp.Message)
		case err == nil:
			message = resp.Message
		case domain.IsRetryableVerify(err):
			message = err.Error()
		default:
			uc.metrics.VerificationAttempt(task.Network, models.OutcomeFailed)
			return uc.finalize(ctx, task, models.OutcomeFailed, err.Error())
		}
		uc.metrics.VerificationAttempt(task.Network, models.OutcomePending)

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			elapsed := uc.clock.Now().Sub(task.StartedAt)
			return uc.finalize(ctx, task, models.OutcomeFailed,
				fmt.Sprintf("verification still pending after %d retries (%s): %s", task.RetryCount, elapsed.Round(time.Second), message))
		}

		task.RetryCount++
		task.NextAttemptAt = uc.clock.Now().Add(delay)
		uc.log.Info("verification pending, rescheduling",
			"contract", task.ContractID,
			"retry", task.RetryCount,
			"delay", delay,
			"elapsed", uc.clock.Now().Sub(task.StartedAt),
			"reason", message,
		)

		if err := uc.clock.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// finalize records the terminal outcome of a task in the ledger
func (uc *VerifyDeployment) finalize(ctx context.Context, task *models.VerificationTask, outcome models.VerificationOutcome, message string) (*VerifyResult, error) {
	status := models.StatusVerified
	if outcome != models.OutcomeVerified {
		status = models.StatusFailed
	}

	record, err := uc.ledger.Get(ctx, task.Network, task.ContractID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if !models.CanTransition(record.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s for %s", domain.ErrInvalidTransition, record.Status, status, task.ContractID)
	}

	record.Status = status
	record.UpdatedAt = uc.clock.Now()
	if status == models.StatusFailed {
		record.LastError = message
	} else {
		record.LastError = ""
	}
	if err := uc.ledger.Put(context.WithoutCancel(ctx), record); err != nil {
		return nil, fmt.Errorf("failed to record verification of %s: %w", task.ContractID, err)
	}

	attrs := []any{
		"contract", task.ContractID,
		"attempt", task.RetryCount + 1,
		"elapsed", uc.clock.Now().Sub(task.StartedAt),
	}
	if status == models.StatusVerified {
		uc.log.Info("contract verified", attrs...)
	} else {
		uc.log.Warn("verification failed", append(attrs, "reason", message)...)
	}

	return &VerifyResult{
		Outcome: outcome,
		Record:  record,
		Retries: task.RetryCount,
		Message: message,
	}, nil
}
