package models

import (
	"fmt"
	"slices"
	"time"
)

// DeploymentStatus represents where a contract is in its deploy/verify lifecycle
type DeploymentStatus string

const (
	StatusPending             DeploymentStatus = "PENDING"
	StatusDeployed            DeploymentStatus = "DEPLOYED"
	StatusVerificationPending DeploymentStatus = "VERIFICATION_PENDING"
	StatusVerified            DeploymentStatus = "VERIFIED"
	StatusFailed              DeploymentStatus = "FAILED"
)

// Valid reports whether s is one of the known statuses
func (s DeploymentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition happens without an explicit reset
func (s DeploymentStatus) IsTerminal() bool {
	return s == StatusVerified || s == StatusFailed
}

// IsDeployed reports whether the contract has a confirmed on-chain address
func (s DeploymentStatus) IsDeployed() bool {
	return s == StatusDeployed || s == StatusVerificationPending || s == StatusVerified
}

// transitions lists the allowed next states for each state.
// Failed -> Failed covers repeated deploy attempts within a single run. Leaving
// Failed for verification goes through a Pending reset revision.
var transitions = map[DeploymentStatus][]DeploymentStatus{
	StatusPending:             {StatusDeployed, StatusFailed},
	StatusDeployed:            {StatusVerificationPending},
	StatusVerificationPending: {StatusVerified, StatusFailed},
	StatusFailed:              {StatusDeployed, StatusFailed},
	StatusVerified:            {},
}

// CanTransition reports whether a record may move from one status to another.
// A reset to Pending is always allowed.
func CanTransition(from, to DeploymentStatus) bool {
	if to == StatusPending {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// DeploymentSpec describes one deployment unit from the manifest
type DeploymentSpec struct {
	ContractID      string   `json:"id"`       // e.g. "deploy_votingSystem"
	Contract        string   `json:"contract"` // artifact name, e.g. "VotingSystem"
	From            string   `json:"from,omitempty"`
	ConstructorArgs []any    `json:"args,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Verify          *bool    `json:"verify,omitempty"`
}

// IdempotencyKey identifies the logical deployment across runs
func (s *DeploymentSpec) IdempotencyKey() string {
	return s.ContractID
}

// ArtifactName returns the artifact to deploy, defaulting to the contract id
func (s *DeploymentSpec) ArtifactName() string {
	if s.Contract != "" {
		return s.Contract
	}
	return s.ContractID
}

// ShouldVerify reports whether verification runs after deployment (default true)
func (s *DeploymentSpec) ShouldVerify() bool {
	return s.Verify == nil || *s.Verify
}

// HasTag reports whether the spec carries the given tag
func (s *DeploymentSpec) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// DeploymentRecord is the ledger's view of a contract deployment on one network
type DeploymentRecord struct {
	Network         string           `json:"network"`
	ContractID      string           `json:"contractId"`
	Contract        string           `json:"contract"`
	Address         string           `json:"address,omitempty"`
	TxHash          string           `json:"txHash,omitempty"`
	BlockNumber     uint64           `json:"blockNumber,omitempty"`
	Deployer        string           `json:"deployer,omitempty"`
	Status          DeploymentStatus `json:"status"`
	ConstructorArgs []any            `json:"constructorArgs"`
	Attempts        int              `json:"attempts"`
	LastError       string           `json:"lastError,omitempty"`
	Revision        int64            `json:"revision"`
	RunID           string           `json:"runId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Key returns the ledger key for the record
func (r *DeploymentRecord) Key() string {
	return RecordKey(r.Network, r.ContractID)
}

// RecordKey builds the ledger key for a network and contract id
func RecordKey(network, contractID string) string {
	return fmt.Sprintf("%s/%s", network, contractID)
}

// Clone returns a copy that can be mutated without touching the original
func (r *DeploymentRecord) Clone() *DeploymentRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.ConstructorArgs = slices.Clone(r.ConstructorArgs)
	return &c
}

// VerificationTask is a pending verification request for a deployed contract
type VerificationTask struct {
	Network         string
	ContractID      string
	Contract        string
	Address         string
	ConstructorArgs []any
	RetryCount      int
	NextAttemptAt   time.Time
	StartedAt       time.Time
}

// NewVerificationTask creates the task for a freshly deployed record
func NewVerificationTask(record *DeploymentRecord, now time.Time) *VerificationTask {
	return &VerificationTask{
		Network:         record.Network,
		ContractID:      record.ContractID,
		Contract:        record.Contract,
		Address:         record.Address,
		ConstructorArgs: slices.Clone(record.ConstructorArgs),
		NextAttemptAt:   now,
		StartedAt:       now,
	}
}

// VerificationOutcome is the result of a verification attempt or of the whole task
type VerificationOutcome string

const (
	OutcomeVerified VerificationOutcome = "VERIFIED"
	OutcomePending  VerificationOutcome = "PENDING"
	OutcomeFailed   VerificationOutcome = "FAILED"
)
