package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
)

// TrebFile is the project configuration file name
const TrebFile = "treb.toml"

// loadDotEnv loads .env then .env.local, which overrides it.
// Variables already set in the process environment win over both.
func loadDotEnv(projectRoot string) {
	env := map[string]string{}
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(projectRoot, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", path, err)
			continue
		}
		for k, v := range values {
			env[k] = v
		}
	}
	for k, v := range env {
		if _, exists := os.LookupEnv(k); !exists {
			_ = os.Setenv(k, v)
		}
	}
}

// loadTrebConfig loads and parses treb.toml if it exists.
// Returns an empty config and nil metadata when treb.toml does not exist.
func loadTrebConfig(projectRoot string) (*config.TrebFileConfig, *toml.MetaData, error) {
	trebPath := filepath.Join(projectRoot, TrebFile)

	var cfg config.TrebFileConfig
	if _, err := os.Stat(trebPath); os.IsNotExist(err) {
		return &cfg, nil, nil
	}

	meta, err := toml.DecodeFile(trebPath, &cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", TrebFile, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: unknown keys in %s: %v\n", TrebFile, undecoded)
	}

	// Expand environment variables in secrets and endpoints
	for name, account := range cfg.Accounts {
		account.PrivateKey = os.ExpandEnv(account.PrivateKey)
		account.Address = os.ExpandEnv(account.Address)
		cfg.Accounts[name] = account
	}
	for name, network := range cfg.Networks {
		network.RPCURL = os.ExpandEnv(network.RPCURL)
		network.ExplorerURL = os.ExpandEnv(network.ExplorerURL)
		network.ExplorerAPIURL = os.ExpandEnv(network.ExplorerAPIURL)
		network.ExplorerAPIKey = os.ExpandEnv(network.ExplorerAPIKey)
		cfg.Networks[name] = network
	}
	cfg.Ledger.DSN = os.ExpandEnv(cfg.Ledger.DSN)

	return &cfg, &meta, nil
}

// applyDefaults fills unset [deploy], [verify], [ledger] and [artifacts] values
func applyDefaults(file *config.TrebFileConfig, meta *toml.MetaData) (config.DeployConfig, config.VerifyConfig, config.LedgerConfig, config.ArtifactsConfig) {
	deploy := file.Deploy
	if deploy.From == "" {
		deploy.From = config.DefaultDeployer
	}
	if deploy.MaxAttempts <= 0 {
		deploy.MaxAttempts = config.DefaultMaxAttempts
	}
	if deploy.BackoffBase <= 0 {
		deploy.BackoffBase = config.DefaultBackoffBase
	}
	if deploy.BackoffMax <= 0 {
		deploy.BackoffMax = config.DefaultBackoffMax
	}
	if deploy.Concurrency <= 0 {
		deploy.Concurrency = config.DefaultConcurrency
	}

	verify := config.VerifyConfig{Enabled: true}
	if file.Verify != nil {
		verify = *file.Verify
		// a [verify] section without "enabled" keeps verification on
		if meta == nil || !meta.IsDefined("verify", "enabled") {
			verify.Enabled = true
		}
	}
	if verify.InitialDelay <= 0 {
		verify.InitialDelay = config.DefaultVerifyInitial
	}
	if verify.MaxDelay <= 0 {
		verify.MaxDelay = config.DefaultVerifyMax
	}
	if verify.MaxElapsed <= 0 {
		verify.MaxElapsed = config.DefaultVerifyElapsed
	}

	ledger := file.Ledger
	if ledger.Backend == "" {
		ledger.Backend = config.LedgerBackendFile
	}

	artifacts := file.Artifacts
	if len(artifacts.Paths) == 0 {
		artifacts.Paths = config.DefaultArtifactPaths
	}

	return deploy, verify, ledger, artifacts
}
