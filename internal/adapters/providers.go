package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/wire"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/accounts"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/artifacts"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/blockchain"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/clock"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/manifest"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/metrics"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/repository/ledger"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/repository/pgledger"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/verification"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// ProvideLedger opens the deployment ledger selected by [ledger] backend
func ProvideLedger(ctx context.Context, cfg *config.RuntimeConfig, log *slog.Logger) (usecase.DeploymentLedger, func(), error) {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		l, err := pgledger.Connect(ctx, cfg.Ledger.DSN)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("using postgres ledger")
		return l, l.Close, nil
	case config.LedgerBackendFile, "":
		l, err := ledger.NewFileLedger(cfg.ProjectRoot)
		if err != nil {
			return nil, nil, err
		}
		return l, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

// ProvideClock provides the wall clock
func ProvideClock() usecase.Clock {
	return clock.System{}
}

// StorageSet provides the ledger, manifest and artifact lookups
var StorageSet = wire.NewSet(
	ProvideLedger,

	manifest.NewLoader,
	wire.Bind(new(usecase.DeploymentManifest), new(*manifest.Loader)),

	artifacts.NewRepository,
	wire.Bind(new(usecase.ArtifactResolver), new(*artifacts.Repository)),
)

// ChainSet provides accounts and the RPC client
var ChainSet = wire.NewSet(
	accounts.NewProvider,
	wire.Bind(new(usecase.AccountProvider), new(*accounts.Provider)),
	wire.Bind(new(blockchain.KeyStore), new(*accounts.Provider)),

	blockchain.NewClient,
	wire.Bind(new(usecase.ChainClient), new(*blockchain.Client)),
)

// VerificationSet provides the block explorer backend
var VerificationSet = wire.NewSet(
	verification.NewEtherscan,
	wire.Bind(new(usecase.VerificationBackend), new(*verification.Etherscan)),
)

// RuntimeSet provides clock and metrics
var RuntimeSet = wire.NewSet(
	ProvideClock,

	metrics.NewRecorder,
	wire.Bind(new(usecase.MetricsRecorder), new(*metrics.Recorder)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	StorageSet,
	ChainSet,
	VerificationSet,
	RuntimeSet,
)
