package interactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

func TestFuzzySearchFunc(t *testing.T) {
	items := []string{"deploy_votingSystem (VotingSystem)", "deploy_token (Token)"}
	search := FuzzySearchFunc(items)

	assert.True(t, search("", 1))
	assert.True(t, search("TOKEN", 1))
	assert.False(t, search("TOKEN", 0))
	assert.True(t, search("dvs", 0))
	assert.False(t, search("xyz", 0))
}

func TestFormatDeploymentOptions(t *testing.T) {
	options := FormatDeploymentOptions([]*models.DeploymentRecord{
		{ContractID: "deploy_votingSystem", Contract: "VotingSystem", Status: models.StatusVerified, Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"},
		{ContractID: "deploy_token", Contract: "Token", Status: models.StatusPending},
	})
	assert.Equal(t, "deploy_votingSystem (VotingSystem) - verified: 0x5FbDB231...", options[0])
	assert.Equal(t, "deploy_token (Token) - pending: no address", options[1])
}

func TestPickDeploymentSingle(t *testing.T) {
	rec := &models.DeploymentRecord{ContractID: "deploy_token"}
	got, err := PickDeployment([]*models.DeploymentRecord{rec}, "Pick")
	require.NoError(t, err)
	assert.Same(t, rec, got)

	_, err = PickDeployment(nil, "Pick")
	assert.Error(t, err)
}
