package accounts

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// Provider resolves the named accounts from the [accounts.*] sections of treb.toml
type Provider struct {
	accounts map[string]config.AccountConfig
	deployer string

	mu   sync.Mutex
	keys map[common.Address]*ecdsa.PrivateKey
}

var _ usecase.AccountProvider = (*Provider)(nil)

// NewProvider creates a new account provider
func NewProvider(cfg *config.RuntimeConfig) *Provider {
	deployer := cfg.Deploy.From
	if deployer == "" {
		deployer = config.DefaultDeployer
	}
	return &Provider{
		accounts: cfg.Accounts,
		deployer: deployer,
		keys:     make(map[common.Address]*ecdsa.PrivateKey),
	}
}

// Deployer returns the account that signs deployments by default
func (p *Provider) Deployer(ctx context.Context) (common.Address, error) {
	return p.Signer(ctx, p.deployer)
}

// Signer returns the address of a named account that holds a private key
func (p *Provider) Signer(ctx context.Context, name string) (common.Address, error) {
	account, ok := p.lookup(name)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: account '%s' not found", domain.ErrNoSigner, name)
	}
	if account.Type != config.SenderTypePrivateKey {
		return common.Address{}, fmt.Errorf("%w: account '%s' is %s and cannot sign", domain.ErrNoSigner, name, account.Type)
	}

	key, err := parseKey(account.PrivateKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: account '%s': %v", domain.ErrNoSigner, name, err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	if account.Address != "" && !strings.EqualFold(account.Address, addr.Hex()) {
		return common.Address{}, fmt.Errorf("%w: account '%s' address %s does not match its private key (%s)",
			domain.ErrNoSigner, name, account.Address, addr.Hex())
	}

	p.mu.Lock()
	p.keys[addr] = key
	p.mu.Unlock()

	return addr, nil
}

// Address returns the address of any named account
func (p *Provider) Address(ctx context.Context, name string) (common.Address, error) {
	account, ok := p.lookup(name)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unknown account '%s'", domain.ErrInvalidArgs, name)
	}

	switch account.Type {
	case config.SenderTypePrivateKey:
		return p.Signer(ctx, name)
	case config.SenderTypeAddress:
		if !common.IsHexAddress(account.Address) {
			return common.Address{}, fmt.Errorf("%w: account '%s' has invalid address %q", domain.ErrInvalidArgs, name, account.Address)
		}
		return common.HexToAddress(account.Address), nil
	default:
		return common.Address{}, fmt.Errorf("%w: unsupported account type %q for '%s'", domain.ErrInvalidArgs, account.Type, name)
	}
}

// KeyFor returns the private key of an account previously returned by Signer
func (p *Provider) KeyFor(addr common.Address) (*ecdsa.PrivateKey, error) {
	p.mu.Lock()
	key, ok := p.keys[addr]
	p.mu.Unlock()
	if ok {
		return key, nil
	}

	for name, account := range p.accounts {
		if account.Type != config.SenderTypePrivateKey {
			continue
		}
		if signer, err := p.Signer(context.Background(), name); err == nil && signer == addr {
			return p.KeyFor(addr)
		}
	}
	return nil, fmt.Errorf("%w: no private key for %s", domain.ErrNoSigner, addr.Hex())
}

func (p *Provider) lookup(name string) (config.AccountConfig, bool) {
	if account, ok := p.accounts[name]; ok {
		return account, true
	}
	for key, account := range p.accounts {
		if strings.EqualFold(key, name) {
			return account, true
		}
	}
	return config.AccountConfig{}, false
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("private key not configured")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}
	return key, nil
}
