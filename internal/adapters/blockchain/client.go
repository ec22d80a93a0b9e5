package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	abicodec "github.com/trebuchet-org/treb-deploy/internal/adapters/abi"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// Backend is the subset of an RPC client needed to deploy and confirm contracts
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// KeyStore provides private keys for signer addresses
type KeyStore interface {
	KeyFor(addr common.Address) (*ecdsa.PrivateKey, error)
}

// Client deploys contracts over JSON-RPC
type Client struct {
	network       *config.Network
	keys          KeyStore
	confirmations uint64
	pollInterval  time.Duration
	log           *slog.Logger

	mu      sync.Mutex
	backend Backend
	chainID *big.Int
}

var _ usecase.ChainClient = (*Client)(nil)

// NewClient creates a client that dials the network's RPC URL on first use
func NewClient(cfg *config.RuntimeConfig, keys KeyStore, log *slog.Logger) *Client {
	c := &Client{
		network:       cfg.Network,
		keys:          keys,
		confirmations: config.DefaultConfirmations,
		pollInterval:  config.DefaultPollInterval,
		log:           log.With("component", "chain"),
	}
	if cfg.Network != nil {
		if cfg.Network.Confirmations > 0 {
			c.confirmations = cfg.Network.Confirmations
		}
		if cfg.Network.PollInterval > 0 {
			c.pollInterval = cfg.Network.PollInterval
		}
	}
	return c
}

// NewClientWithBackend creates a client over an already connected backend
func NewClientWithBackend(backend Backend, chainID *big.Int, keys KeyStore, log *slog.Logger) *Client {
	return &Client{
		keys:          keys,
		confirmations: config.DefaultConfirmations,
		pollInterval:  10 * time.Millisecond,
		log:           log.With("component", "chain"),
		backend:       backend,
		chainID:       chainID,
	}
}

// connect establishes the connection and checks the chain ID
func (c *Client) connect(ctx context.Context) (Backend, *big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return c.backend, c.chainID, nil
	}
	if c.network == nil || c.network.RPCURL == "" {
		return nil, nil, fmt.Errorf("%w: no RPC URL configured", domain.ErrSubmission)
	}

	client, err := ethclient.DialContext(ctx, c.network.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to connect to RPC: %w", domain.ErrSubmission, err)
	}

	networkChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("%w: failed to get chain ID: %w", domain.ErrSubmission, err)
	}

	if c.network.ChainID != 0 && networkChainID.Uint64() != c.network.ChainID {
		client.Close()
		return nil, nil, fmt.Errorf("%w: %s expects %d, RPC serves %d",
			domain.ErrChainMismatch, c.network.Name, c.network.ChainID, networkChainID.Uint64())
	}

	c.backend = client
	c.chainID = networkChainID
	return c.backend, c.chainID, nil
}

// Deploy sends the contract creation transaction and waits for its confirmations
func (c *Client) Deploy(ctx context.Context, artifact *models.Artifact, args []any, from common.Address) (*usecase.DeployResult, error) {
	if artifact.ABI == nil {
		return nil, fmt.Errorf("%w: artifact %s has no ABI", domain.ErrArtifactNotFound, artifact.Name)
	}
	params, err := abicodec.ConvertArgs(artifact.ABI.Constructor.Inputs, args)
	if err != nil {
		return nil, err
	}

	key, err := c.keys.KeyFor(from)
	if err != nil {
		return nil, err
	}

	backend, chainID, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoSigner, err)
	}
	opts.Context = ctx

	_, tx, _, err := bind.DeployContract(opts, *artifact.ABI, artifact.Bytecode, backend, params...)
	if err != nil {
		return nil, classify(err)
	}

	result := &usecase.DeployResult{TxHash: tx.Hash()}
	c.log.Debug("deployment submitted", "contract", artifact.Name, "tx", tx.Hash().Hex(), "from", from.Hex())

	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return result, fmt.Errorf("%w: waiting for %s: %w", domain.ErrSubmission, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, fmt.Errorf("%w: transaction %s", domain.ErrReverted, tx.Hash().Hex())
	}
	result.BlockNumber = receipt.BlockNumber.Uint64()

	if err := c.waitConfirmations(ctx, backend, result.BlockNumber); err != nil {
		return result, fmt.Errorf("%w: waiting for confirmations of %s: %w", domain.ErrSubmission, tx.Hash().Hex(), err)
	}

	result.Address = receipt.ContractAddress
	return result, nil
}

// waitConfirmations blocks until the head is confirmations-1 blocks past the inclusion block
func (c *Client) waitConfirmations(ctx context.Context, backend Backend, included uint64) error {
	if c.confirmations <= 1 {
		return nil
	}
	target := included + c.confirmations - 1

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		head, err := backend.BlockNumber(ctx)
		if err != nil {
			return err
		}
		if head >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// classify maps a submission failure to the ledger's error kinds
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrSubmission, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert") {
		return fmt.Errorf("%w: %v", domain.ErrReverted, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrSubmission, err)
}
