package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.DeployAttempt("sepolia", "failed")
	r.DeployAttempt("sepolia", "deployed")
	r.DeployAttempt("sepolia", "deployed")
	r.VerificationAttempt("sepolia", models.OutcomePending)
	r.VerificationAttempt("sepolia", models.OutcomeVerified)
	r.FinalStatus("sepolia", models.StatusVerified)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.deployAttempts.WithLabelValues("sepolia", "deployed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.verifyAttempts.WithLabelValues("sepolia", "PENDING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.finalStatus.WithLabelValues("sepolia", "VERIFIED")))

	path := filepath.Join(t.TempDir(), "treb.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `treb_deploy_attempts_total{network="sepolia",result="deployed"} 2`)
	assert.Contains(t, string(data), `treb_deployments_total{network="sepolia",status="VERIFIED"} 1`)
}
