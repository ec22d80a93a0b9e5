package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

var (
	deployerAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	txHash       = common.HexToHash("0x4f1e7d1c1f2a6f6d8a2e2f5d7b0d3a9c6c1e0b9f8e7d6c5b4a39281706f5e4d3")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		Network: &config.Network{
			Name:           "sepolia",
			ChainID:        11155111,
			ExplorerAPIURL: "https://api.etherscan.io/v2/api",
		},
		Deploy: config.DeployConfig{
			From:        config.DefaultDeployer,
			MaxAttempts: config.DefaultMaxAttempts,
			BackoffBase: config.DefaultBackoffBase,
			BackoffMax:  config.DefaultBackoffMax,
			Concurrency: 1,
		},
		Verify: config.VerifyConfig{
			Enabled:      true,
			InitialDelay: config.DefaultVerifyInitial,
			MaxDelay:     config.DefaultVerifyMax,
			MaxElapsed:   config.DefaultVerifyElapsed,
		},
	}
}

// memLedger is an in-memory DeploymentLedger with revision checks and history
type memLedger struct {
	mu      sync.Mutex
	records map[string]*models.DeploymentRecord
	history map[string][]*models.DeploymentRecord
	puts    int
	getErr  error
}

func newMemLedger() *memLedger {
	return &memLedger{
		records: make(map[string]*models.DeploymentRecord),
		history: make(map[string][]*models.DeploymentRecord),
	}
}

func (l *memLedger) Get(_ context.Context, network, contractID string) (*models.DeploymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.getErr != nil {
		return nil, l.getErr
	}
	r, ok := l.records[models.RecordKey(network, contractID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.Clone(), nil
}

func (l *memLedger) Put(_ context.Context, record *models.DeploymentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var current int64
	if r, ok := l.records[record.Key()]; ok {
		current = r.Revision
	}
	if current != record.Revision {
		return domain.ErrConflict
	}
	record.Revision++
	l.records[record.Key()] = record.Clone()
	l.history[record.Key()] = append(l.history[record.Key()], record.Clone())
	l.puts++
	return nil
}

func (l *memLedger) List(_ context.Context, network string) ([]*models.DeploymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*models.DeploymentRecord
	for _, r := range l.records {
		if network == "" || r.Network == network {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractID < out[j].ContractID })
	return out, nil
}

func (l *memLedger) History(_ context.Context, network, contractID string) ([]*models.DeploymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.history[models.RecordKey(network, contractID)], nil
}

func (l *memLedger) seed(record *models.DeploymentRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record.Revision = 1
	l.records[record.Key()] = record.Clone()
	l.history[record.Key()] = []*models.DeploymentRecord{record.Clone()}
}

func (l *memLedger) statuses(network, contractID string) []models.DeploymentStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.DeploymentStatus
	for _, r := range l.history[models.RecordKey(network, contractID)] {
		out = append(out, r.Status)
	}
	return out
}

// fakeClock advances only when Sleep is called
type fakeClock struct {
	mu        sync.Mutex
	now       time.Time
	sleeps    []time.Duration
	sleepHook func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.sleepHook != nil {
		c.sleepHook()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) Deploy(ctx context.Context, artifact *models.Artifact, args []any, from common.Address) (*usecase.DeployResult, error) {
	ret := m.Called(ctx, artifact, args, from)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(*usecase.DeployResult), ret.Error(1)
}

// scriptedBackend replays a fixed list of responses, repeating the last one
type scriptedBackend struct {
	mu       sync.Mutex
	steps    []backendStep
	requests []usecase.VerificationRequest
}

type backendStep struct {
	outcome models.VerificationOutcome
	err     error
}

func (b *scriptedBackend) Submit(_ context.Context, req usecase.VerificationRequest) (*usecase.VerificationResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	step := b.steps[min(len(b.requests), len(b.steps))-1]
	if step.err != nil {
		return nil, step.err
	}
	return &usecase.VerificationResponse{Status: step.outcome, Message: string(step.outcome)}, nil
}

func (b *scriptedBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func pendingThen(n int, last models.VerificationOutcome) *scriptedBackend {
	b := &scriptedBackend{}
	for range n {
		b.steps = append(b.steps, backendStep{outcome: models.OutcomePending})
	}
	b.steps = append(b.steps, backendStep{outcome: last})
	return b
}

type stubArtifacts struct {
	known map[string]*models.Artifact
}

func newStubArtifacts(names ...string) *stubArtifacts {
	s := &stubArtifacts{known: make(map[string]*models.Artifact)}
	for _, n := range names {
		s.known[n] = &models.Artifact{Name: n, Bytecode: []byte{0x60, 0x80}}
	}
	return s
}

func (s *stubArtifacts) Resolve(_ context.Context, contract string) (*models.Artifact, error) {
	if a, ok := s.known[contract]; ok {
		return a, nil
	}
	return nil, domain.ErrArtifactNotFound
}

func (s *stubArtifacts) List(context.Context) ([]string, error) {
	var out []string
	for n := range s.known {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

type stubAccounts struct {
	accounts map[string]common.Address
	noSigner bool
}

func newStubAccounts() *stubAccounts {
	return &stubAccounts{accounts: map[string]common.Address{"deployer": deployerAddr}}
}

func (s *stubAccounts) Deployer(ctx context.Context) (common.Address, error) {
	return s.Signer(ctx, "deployer")
}

func (s *stubAccounts) Signer(ctx context.Context, name string) (common.Address, error) {
	if s.noSigner {
		return common.Address{}, domain.ErrNoSigner
	}
	return s.Address(ctx, name)
}

func (s *stubAccounts) Address(_ context.Context, name string) (common.Address, error) {
	if a, ok := s.accounts[name]; ok {
		return a, nil
	}
	return common.Address{}, domain.ErrNotFound
}

type staticManifest []*models.DeploymentSpec

func (m staticManifest) Load(context.Context) ([]*models.DeploymentSpec, error) {
	return m, nil
}

// MockProgressSink collects progress events
type MockProgressSink struct {
	mu     sync.Mutex
	events []usecase.ProgressEvent
	errors []string
}

func (m *MockProgressSink) OnProgress(_ context.Context, event usecase.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockProgressSink) Info(string) {}

func (m *MockProgressSink) Error(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, message)
}

// harness wires the deploy/verify use cases over fakes
type harness struct {
	cfg       *config.RuntimeConfig
	ledger    *memLedger
	clock     *fakeClock
	chain     *MockChainClient
	backend   *scriptedBackend
	artifacts *stubArtifacts
	accounts  *stubAccounts
	progress  *MockProgressSink
	log       *slog.Logger
}

func newHarness() *harness {
	return &harness{
		cfg:       testConfig(),
		ledger:    newMemLedger(),
		clock:     newFakeClock(),
		chain:     new(MockChainClient),
		backend:   pendingThen(0, models.OutcomeVerified),
		artifacts: newStubArtifacts("VotingSystem", "MyConfidentialERC20"),
		accounts:  newStubAccounts(),
		progress:  &MockProgressSink{},
		log:       discardLogger(),
	}
}

func (h *harness) executor() *usecase.ExecuteDeployment {
	return usecase.NewExecuteDeployment(h.ledger, h.artifacts, h.accounts, h.chain, h.clock, usecase.NopMetrics{}, discardLogger())
}

func (h *harness) verifier() *usecase.VerifyDeployment {
	return usecase.NewVerifyDeployment(h.cfg, h.ledger, h.artifacts, h.backend, h.clock, usecase.NopMetrics{}, h.progress, h.log)
}

func (h *harness) orchestrator(specs ...*models.DeploymentSpec) *usecase.OrchestrateDeployment {
	return usecase.NewOrchestrateDeployment(
		h.cfg, staticManifest(specs), h.ledger, h.executor(), h.verifier(),
		h.clock, usecase.NopMetrics{}, h.progress, discardLogger(),
	)
}

func votingSystemSpec() *models.DeploymentSpec {
	return &models.DeploymentSpec{
		ContractID:      "deploy_votingSystem",
		Contract:        "VotingSystem",
		ConstructorArgs: []any{100, []any{"@deployer"}},
		Tags:            []string{"VotingSystem"},
	}
}

func confidentialERC20Spec() *models.DeploymentSpec {
	verify := false
	return &models.DeploymentSpec{
		ContractID:      "deploy_confidentialERC20",
		Contract:        "MyConfidentialERC20",
		ConstructorArgs: []any{100},
		Tags:            []string{"MyConfidentialERC20"},
		Verify:          &verify,
	}
}

func deployed() *usecase.DeployResult {
	return &usecase.DeployResult{Address: contractAddr, TxHash: txHash, BlockNumber: 42}
}
