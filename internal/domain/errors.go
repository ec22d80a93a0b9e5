package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested ledger record doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrStorage is returned when the deployment ledger cannot be read or written.
	// It is fatal for the contract being processed.
	ErrStorage = errors.New("ledger storage error")

	// ErrConflict is returned when a ledger write was based on a stale revision
	ErrConflict = errors.New("ledger revision conflict")

	// ErrArtifactNotFound is returned when a contract name has no compiled artifact
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrNoSigner is returned when the deployer account is not configured
	ErrNoSigner = errors.New("no signer configured")

	// ErrInvalidArgs is returned when constructor arguments don't match the ABI
	ErrInvalidArgs = errors.New("invalid constructor arguments")

	// ErrSubmission is returned when a deployment transaction could not be submitted or included
	ErrSubmission = errors.New("deployment submission failed")

	// ErrReverted is returned when a deployment transaction was included but reverted
	ErrReverted = errors.New("deployment reverted")

	// ErrRateLimited is returned when the verification backend throttles requests
	ErrRateLimited = errors.New("verification backend rate limited")

	// ErrBackendUnavailable is returned when the verification backend cannot be reached
	ErrBackendUnavailable = errors.New("verification backend unavailable")

	// ErrChainMismatch is returned when the RPC endpoint serves a different chain than configured
	ErrChainMismatch = errors.New("chain ID mismatch")

	// ErrInvalidTransition is returned when a record status change skips a state
	ErrInvalidTransition = errors.New("invalid status transition")
)

// IsRetryableDeploy reports whether a deployment error may be retried by the orchestrator.
// Configuration and storage errors are never retried, neither is cancellation.
func IsRetryableDeploy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrSubmission) || errors.Is(err, ErrReverted)
}

// IsRetryableVerify reports whether a verification error should be rescheduled.
func IsRetryableVerify(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrBackendUnavailable)
}

// IsConfigError reports whether err stems from project configuration rather than the network.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrArtifactNotFound) || errors.Is(err, ErrNoSigner) || errors.Is(err, ErrInvalidArgs) ||
		errors.Is(err, ErrChainMismatch)
}

// AmbiguousArtifactErr is returned when a contract name matches several artifacts
type AmbiguousArtifactErr struct {
	Contract string
	Matches  []string
}

func (e AmbiguousArtifactErr) Error() string {
	var suggestions []string
	for _, m := range e.Matches {
		suggestions = append(suggestions, fmt.Sprintf("  - %s", m))
	}
	return fmt.Sprintf("multiple artifacts found for contract %q - use path:contract format to disambiguate:\n%s",
		e.Contract, strings.Join(suggestions, "\n"))
}

// Is reports an ambiguous match as an artifact resolution failure.
func (e AmbiguousArtifactErr) Is(target error) bool {
	return target == ErrArtifactNotFound
}
