package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
)

// projectMarkers identify a project root, in lookup order
var projectMarkers = []string{TrebFile, "deploy.yaml", "foundry.toml", "hardhat.config.ts", "hardhat.config.js"}

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	// Get project root from viper
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadDotEnv(projectRoot)

	file, meta, err := loadTrebConfig(projectRoot)
	if err != nil {
		return nil, err
	}
	deploy, verify, ledger, artifacts := applyDefaults(file, meta)

	// Flags and TREB_* variables override treb.toml
	if n := v.GetInt("concurrency"); n > 0 {
		deploy.Concurrency = n
	}
	if backend := v.GetString("ledger_backend"); backend != "" {
		ledger.Backend = config.LedgerBackend(backend)
	}
	if dsn := v.GetString("ledger_dsn"); dsn != "" {
		ledger.DSN = dsn
	}
	switch ledger.Backend {
	case config.LedgerBackendFile:
	case config.LedgerBackendPostgres:
		if ledger.DSN == "" {
			return nil, fmt.Errorf("ledger backend %q requires a dsn", ledger.Backend)
		}
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", ledger.Backend)
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, ".treb"),
		ManifestPath:   v.GetString("manifest"),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		JSON:           v.GetBool("json"),
		Timeout:        v.GetDuration("timeout"),
		MetricsFile:    v.GetString("metrics_file"),
		Accounts:       file.Accounts,
		Deploy:         deploy,
		Verify:         verify,
		Ledger:         ledger,
		Artifacts:      artifacts,
	}
	if cfg.Accounts == nil {
		cfg.Accounts = map[string]config.AccountConfig{}
	}

	// Resolve network if specified
	if networkName := v.GetString("network"); networkName != "" {
		network, err := resolveNetwork(file.Networks, networkName)
		if err != nil {
			return nil, err
		}
		cfg.Network = network
	}

	return cfg, nil
}

// resolveNetwork looks up a [networks.<name>] section and fills its defaults
func resolveNetwork(networks map[string]config.Network, name string) (*config.Network, error) {
	network, ok := networks[name]
	if !ok {
		available := make([]string, 0, len(networks))
		for n := range networks {
			available = append(available, n)
		}
		sort.Strings(available)
		if len(available) == 0 {
			return nil, fmt.Errorf("network '%s' not found: no [networks] configured in %s", name, TrebFile)
		}
		return nil, fmt.Errorf("network '%s' not found in %s (available: %s)", name, TrebFile, strings.Join(available, ", "))
	}
	if network.RPCURL == "" {
		return nil, fmt.Errorf("network '%s' has no rpc_url", name)
	}

	network.Name = name
	if network.Confirmations == 0 {
		network.Confirmations = config.DefaultConfirmations
	}
	if network.PollInterval <= 0 {
		network.PollInterval = config.DefaultPollInterval
	}
	return &network, nil
}

// FindProjectRoot walks up from current directory to find a project marker
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a project (none of %s found)", strings.Join(projectMarkers, ", "))
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up environment variables
	v.SetEnvPrefix("TREB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("timeout", "30m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil {
				panic(err)
			}
		})
	}

	return v
}
