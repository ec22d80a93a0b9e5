package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

func init() {
	color.NoColor = true
}

var updated = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func runResult() *usecase.OrchestrateResult {
	return &usecase.OrchestrateResult{
		RunID:   "3f1c",
		Network: "sepolia",
		Units: []*usecase.UnitResult{
			{
				ContractID:      "deploy_votingSystem",
				Contract:        "VotingSystem",
				Status:          models.StatusVerified,
				Address:         "0x5FbDB2315678afecb367f032d93F642f64180aa3",
				TxHash:          "0x1234567890abcdef1234567890abcdef",
				Attempts:        1,
				VerifyRequested: true,
				VerifyRetries:   2,
			},
			{
				ContractID: "deploy_token",
				Contract:   "Token",
				Status:     models.StatusFailed,
				Attempts:   3,
				Err:        errors.New("deployment reverted"),
			},
		},
	}
}

func TestRunRenderer(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewRunRenderer(&buf, false).Render(runResult()))

		out := buf.String()
		assert.Contains(t, out, "deploy_votingSystem")
		assert.Contains(t, out, "✓ Verified")
		assert.Contains(t, out, "0x123456…cdef")
		assert.Contains(t, out, "verified after 2 retries")
		assert.Contains(t, out, "✗ Failed")
		assert.Contains(t, out, "deployment reverted")
		assert.Contains(t, out, "1 of 2 contract(s) failed on sepolia")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewRunRenderer(&buf, true).Render(runResult()))

		var got struct {
			RunID   string     `json:"runId"`
			Success bool       `json:"success"`
			Units   []unitJSON `json:"units"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "3f1c", got.RunID)
		assert.False(t, got.Success)
		require.Len(t, got.Units, 2)
		assert.Equal(t, "VERIFIED", got.Units[0].Status)
		assert.Equal(t, "deployment reverted", got.Units[1].Error)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewRunRenderer(&buf, false).Render(&usecase.OrchestrateResult{Network: "local"}))
		assert.Equal(t, "Nothing to do\n", buf.String())
	})
}

func records() []*models.DeploymentRecord {
	return []*models.DeploymentRecord{
		{Network: "local", ContractID: "deploy_token", Contract: "Token", Status: models.StatusDeployed, Address: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512", UpdatedAt: updated},
		{Network: "sepolia", ContractID: "deploy_votingSystem", Contract: "VotingSystem", Status: models.StatusVerificationPending, Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3", UpdatedAt: updated},
	}
}

func TestDeploymentsRenderer(t *testing.T) {
	result := &usecase.DeploymentListResult{
		Deployments: records(),
		Summary: usecase.DeploymentSummary{
			Total: 2,
			ByStatus: map[models.DeploymentStatus]int{
				models.StatusDeployed:            1,
				models.StatusVerificationPending: 1,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewDeploymentsRenderer(&buf, false).Render(result))
	out := buf.String()

	assert.Contains(t, out, "local\n")
	assert.Contains(t, out, "sepolia\n")
	assert.Contains(t, out, "⏳ Verification Pending")
	assert.Contains(t, out, "2025-03-01 12:00:00")
	assert.Contains(t, out, "Total: 2 (1 deployed, 1 verification_pending)")

	buf.Reset()
	require.NoError(t, NewDeploymentsRenderer(&buf, false).Render(&usecase.DeploymentListResult{}))
	assert.Equal(t, "No deployments found\n", buf.String())

	buf.Reset()
	require.NoError(t, NewDeploymentsRenderer(&buf, true).Render(result))
	var decoded []*models.DeploymentRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 2)
}

func TestDeploymentRenderer(t *testing.T) {
	current := &models.DeploymentRecord{
		Network:         "sepolia",
		ContractID:      "deploy_votingSystem",
		Contract:        "VotingSystem",
		Status:          models.StatusVerified,
		Address:         "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		TxHash:          "0xabc",
		BlockNumber:     42,
		ConstructorArgs: []any{100},
		Attempts:        1,
		Revision:        3,
		CreatedAt:       updated,
		UpdatedAt:       updated,
	}
	history := []*models.DeploymentRecord{
		{Revision: 1, Status: models.StatusPending, UpdatedAt: updated},
		{Revision: 2, Status: models.StatusFailed, Attempts: 1, LastError: "rpc timeout", UpdatedAt: updated},
	}

	var buf bytes.Buffer
	require.NoError(t, NewDeploymentRenderer(&buf, false).Render(&usecase.ShowDeploymentResult{Record: current, History: history}))
	out := buf.String()

	assert.Contains(t, out, "Deployment: deploy_votingSystem")
	assert.Contains(t, out, "Block: 42")
	assert.Contains(t, out, "Constructor Args: [100]")
	assert.Contains(t, out, "Revision: 3")
	assert.Contains(t, out, "History:")
	assert.Contains(t, out, "rpc timeout")
	assert.NotContains(t, out, "Deployer:")
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "● Deployed", FormatStatus(models.StatusDeployed))
	assert.Equal(t, "⏳ Pending", FormatStatus(models.StatusPending))
	assert.Equal(t, "Unknown", FormatStatus(models.DeploymentStatus("UNKNOWN")))
	assert.Equal(t, "❌ Deployment reverted", FormatError("deploy_token: deployment reverted"))
}
