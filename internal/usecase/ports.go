package usecase

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

// DeploymentLedger persists deployment records keyed by network + contract id.
// Put is an atomic upsert guarded by the record's Revision: the stored revision
// must equal record.Revision (0 for a new record) or domain.ErrConflict is returned.
// On success the record's Revision is advanced. Records are never deleted; every
// Put is kept in the history.
type DeploymentLedger interface {
	Get(ctx context.Context, network, contractID string) (*models.DeploymentRecord, error)
	Put(ctx context.Context, record *models.DeploymentRecord) error
	List(ctx context.Context, network string) ([]*models.DeploymentRecord, error)
	History(ctx context.Context, network, contractID string) ([]*models.DeploymentRecord, error)
}

// ArtifactResolver maps a contract name to its compiled artifact
type ArtifactResolver interface {
	Resolve(ctx context.Context, contract string) (*models.Artifact, error)
	List(ctx context.Context) ([]string, error)
}

// AccountProvider resolves named accounts
type AccountProvider interface {
	// Deployer returns the configured default deployer; domain.ErrNoSigner if unconfigured
	Deployer(ctx context.Context) (common.Address, error)
	// Signer returns the address of a named account able to sign transactions
	Signer(ctx context.Context, name string) (common.Address, error)
	// Address returns the address of any named account
	Address(ctx context.Context, name string) (common.Address, error)
}

// DeployResult is what the chain reports for a contract creation
type DeployResult struct {
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
}

// ChainClient submits contract creations and waits for inclusion.
// When an error occurs after the transaction was broadcast, the returned
// result carries the TxHash with a zero Address.
type ChainClient interface {
	Deploy(ctx context.Context, artifact *models.Artifact, args []any, from common.Address) (*DeployResult, error)
}

// VerificationRequest is a single submission to the explorer backend
type VerificationRequest struct {
	Address         common.Address
	Artifact        *models.Artifact
	ConstructorArgs []any
}

// VerificationResponse is the backend's answer to a submission
type VerificationResponse struct {
	Status  models.VerificationOutcome
	Message string
	URL     string
}

// VerificationBackend submits source verification requests to a block explorer.
// It fails with domain.ErrRateLimited or domain.ErrBackendUnavailable on transient problems.
type VerificationBackend interface {
	Submit(ctx context.Context, req VerificationRequest) (*VerificationResponse, error)
}

// DeploymentManifest loads the deployment units of the project
type DeploymentManifest interface {
	Load(ctx context.Context) ([]*models.DeploymentSpec, error)
}

// Clock provides time and cancellable waits. It also satisfies backoff.Clock.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// MetricsRecorder receives counters about deploy and verification activity
type MetricsRecorder interface {
	DeployAttempt(network, result string)
	VerificationAttempt(network string, outcome models.VerificationOutcome)
	FinalStatus(network string, status models.DeploymentStatus)
}

// NopMetrics is a no-op implementation of MetricsRecorder
type NopMetrics struct{}

func (NopMetrics) DeployAttempt(string, string)                                {}
func (NopMetrics) VerificationAttempt(string, models.VerificationOutcome) {}
func (NopMetrics) FinalStatus(string, models.DeploymentStatus)               {}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage      string
	ContractID string
	Current    int
	Total      int
	Message    string
	Spinner    bool
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// Progress stages
const (
	StageDeploying = "deploying"
	StageVerifying = "verifying"
	StageCompleted = "completed"
)
