package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

func TestShowDeployment(t *testing.T) {
	ctx := context.Background()

	t.Run("latest record", func(t *testing.T) {
		h := newHarness()
		seedLedger(h)

		result, err := usecase.NewShowDeployment(h.cfg, h.ledger, h.progress).Run(ctx, usecase.ShowDeploymentParams{
			ContractID: "deploy_confidentialERC20",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusDeployed, result.Record.Status)
		assert.Nil(t, result.History)
	})

	t.Run("with history", func(t *testing.T) {
		h := newHarness()
		seedLedger(h)
		record, err := h.ledger.Get(ctx, "sepolia", "deploy_confidentialERC20")
		require.NoError(t, err)
		record.Status = models.StatusVerificationPending
		require.NoError(t, h.ledger.Put(ctx, record))

		result, err := usecase.NewShowDeployment(h.cfg, h.ledger, h.progress).Run(ctx, usecase.ShowDeploymentParams{
			ContractID:  "deploy_confidentialERC20",
			WithHistory: true,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusVerificationPending, result.Record.Status)
		require.Len(t, result.History, 2)
		assert.Equal(t, models.StatusDeployed, result.History[0].Status)
	})

	t.Run("unknown id suggests close matches", func(t *testing.T) {
		h := newHarness()
		seedLedger(h)

		_, err := usecase.NewShowDeployment(h.cfg, h.ledger, h.progress).Run(ctx, usecase.ShowDeploymentParams{
			ContractID: "deploy_voting",
		})
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), "did you mean deploy_votingSystem")
	})

	t.Run("requires a network", func(t *testing.T) {
		h := newHarness()
		h.cfg.Network = nil
		_, err := usecase.NewShowDeployment(h.cfg, h.ledger, h.progress).Run(ctx, usecase.ShowDeploymentParams{ContractID: "x"})
		assert.Error(t, err)
	})
}
