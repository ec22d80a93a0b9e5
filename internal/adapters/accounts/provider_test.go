package accounts

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
)

// anvil's first default account
const (
	anvilKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	anvilAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newTestProvider(accounts map[string]config.AccountConfig) *Provider {
	return NewProvider(&config.RuntimeConfig{Accounts: accounts})
}

func TestProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("deployer from private key", func(t *testing.T) {
		p := newTestProvider(map[string]config.AccountConfig{
			"deployer": {Type: config.SenderTypePrivateKey, PrivateKey: anvilKey},
		})

		addr, err := p.Deployer(ctx)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(anvilAddress), addr)

		key, err := p.KeyFor(addr)
		require.NoError(t, err)
		assert.NotNil(t, key)
	})

	t.Run("custom deployer name is case insensitive", func(t *testing.T) {
		p := NewProvider(&config.RuntimeConfig{
			Deploy:   config.DeployConfig{From: "Ops"},
			Accounts: map[string]config.AccountConfig{"ops": {Type: config.SenderTypePrivateKey, PrivateKey: anvilKey[2:]}},
		})
		addr, err := p.Deployer(ctx)
		require.NoError(t, err)
		assert.Equal(t, anvilAddress, addr.Hex())
	})

	t.Run("missing deployer", func(t *testing.T) {
		_, err := newTestProvider(nil).Deployer(ctx)
		assert.ErrorIs(t, err, domain.ErrNoSigner)
	})

	t.Run("empty private key", func(t *testing.T) {
		p := newTestProvider(map[string]config.AccountConfig{"deployer": {Type: config.SenderTypePrivateKey}})
		_, err := p.Deployer(ctx)
		assert.ErrorIs(t, err, domain.ErrNoSigner)
	})

	t.Run("address mismatch", func(t *testing.T) {
		p := newTestProvider(map[string]config.AccountConfig{
			"deployer": {Type: config.SenderTypePrivateKey, PrivateKey: anvilKey, Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
		})
		_, err := p.Deployer(ctx)
		assert.ErrorIs(t, err, domain.ErrNoSigner)
	})

	t.Run("address only accounts resolve but cannot sign", func(t *testing.T) {
		p := newTestProvider(map[string]config.AccountConfig{
			"treasury": {Type: config.SenderTypeAddress, Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
		})

		addr, err := p.Address(ctx, "treasury")
		require.NoError(t, err)
		assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", addr.Hex())

		_, err = p.Signer(ctx, "treasury")
		assert.ErrorIs(t, err, domain.ErrNoSigner)

		_, err = p.KeyFor(addr)
		assert.ErrorIs(t, err, domain.ErrNoSigner)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := newTestProvider(nil).Address(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrInvalidArgs)
	})

	t.Run("key lookup without prior Signer call", func(t *testing.T) {
		p := newTestProvider(map[string]config.AccountConfig{
			"deployer": {Type: config.SenderTypePrivateKey, PrivateKey: anvilKey},
		})
		key, err := p.KeyFor(common.HexToAddress(anvilAddress))
		require.NoError(t, err)
		assert.NotNil(t, key)
	})
}
