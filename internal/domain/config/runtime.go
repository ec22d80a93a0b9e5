package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot  string
	DataDir      string
	ManifestPath string

	// Context settings
	Network *Network // nil if not specified

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool
	Timeout        time.Duration
	MetricsFile    string

	// Resolved configurations
	Accounts  map[string]AccountConfig
	Deploy    DeployConfig
	Verify    VerifyConfig
	Ledger    LedgerConfig
	Artifacts ArtifactsConfig
}

// Network represents network configuration
type Network struct {
	Name           string        `toml:"-" json:"name"`
	ChainID        uint64        `toml:"chain_id" json:"chainId"`
	RPCURL         string        `toml:"rpc_url" json:"rpcUrl"`
	ExplorerURL    string        `toml:"explorer_url,omitempty" json:"explorerUrl,omitempty"`
	ExplorerAPIURL string        `toml:"explorer_api_url,omitempty" json:"explorerApiUrl,omitempty"`
	ExplorerAPIKey string        `toml:"explorer_api_key,omitempty" json:"-"` //nolint:gosec // holds env var reference
	Confirmations  uint64        `toml:"confirmations,omitempty" json:"confirmations"`
	PollInterval   time.Duration `toml:"poll_interval,omitempty" json:"pollInterval"`
}

// CanVerify reports whether a block explorer API is configured for the network
func (n *Network) CanVerify() bool {
	return n != nil && n.ExplorerAPIURL != ""
}

// SenderType is the kind of account backing a named account
type SenderType string

const (
	SenderTypePrivateKey SenderType = "private_key"
	SenderTypeAddress    SenderType = "address" // address only, can't sign
)

// AccountConfig represents a named account in [accounts.*] sections
type AccountConfig struct {
	Type       SenderType `toml:"type"`
	Address    string     `toml:"address,omitempty"`
	PrivateKey string     `toml:"private_key,omitempty"` //nolint:gosec // holds env var reference, not a literal secret
}

// DeployConfig holds the [deploy] section
type DeployConfig struct {
	From        string        `toml:"from"`         // named account that signs deployments
	MaxAttempts int           `toml:"max_attempts"` // per contract, per run
	BackoffBase time.Duration `toml:"backoff_base"`
	BackoffMax  time.Duration `toml:"backoff_max"`
	Concurrency int           `toml:"concurrency"`
}

// VerifyConfig holds the [verify] section
type VerifyConfig struct {
	Enabled      bool          `toml:"enabled"`
	InitialDelay time.Duration `toml:"initial_delay"`
	MaxDelay     time.Duration `toml:"max_delay"`
	MaxElapsed   time.Duration `toml:"max_elapsed"`
}

// LedgerBackend selects the deployment ledger implementation
type LedgerBackend string

const (
	LedgerBackendFile     LedgerBackend = "file"
	LedgerBackendPostgres LedgerBackend = "postgres"
)

// LedgerConfig holds the [ledger] section
type LedgerConfig struct {
	Backend LedgerBackend `toml:"backend"`
	DSN     string        `toml:"dsn,omitempty"`
}

// ArtifactsConfig holds the [artifacts] section
type ArtifactsConfig struct {
	Paths []string `toml:"paths"` // searched in order, relative to the project root
}

// Defaults used when treb.toml leaves a value unset
const (
	DefaultDeployer      = "deployer"
	DefaultMaxAttempts   = 3
	DefaultBackoffBase   = 2 * time.Second
	DefaultBackoffMax    = 30 * time.Second
	DefaultConcurrency   = 1
	DefaultVerifyInitial = 30 * time.Second
	DefaultVerifyMax     = 120 * time.Second
	DefaultVerifyElapsed = 10 * time.Minute
	DefaultConfirmations = 1
	DefaultPollInterval  = 2 * time.Second
)

// DefaultArtifactPaths lists Hardhat then Foundry output directories
var DefaultArtifactPaths = []string{"artifacts", "out"}
