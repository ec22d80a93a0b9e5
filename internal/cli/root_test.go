package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-deploy/internal/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"deploy", "verify", "list", "show", "reset", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"network", "json", "non-interactive", "ledger-backend", "metrics-file"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	config.SetBuildFlags("1.2.3", "abc123", "unknown")
	t.Cleanup(func() { config.SetBuildFlags("dev", "unknown", "unknown") })

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "treb version 1.2.3\ncommit: abc123\n", out.String())
}

func TestRunError(t *testing.T) {
	ok := &usecase.OrchestrateResult{Units: []*usecase.UnitResult{{Status: models.StatusVerified}}}
	assert.NoError(t, runError(ok))

	failed := &usecase.OrchestrateResult{Units: []*usecase.UnitResult{
		{Status: models.StatusVerified},
		{Status: models.StatusFailed},
	}}
	assert.EqualError(t, runError(failed), "1 of 2 contract(s) did not complete")
}

func TestGetAppWithoutInit(t *testing.T) {
	cmd := NewListCmd()
	cmd.SetContext(context.Background())
	_, err := getApp(cmd)
	assert.EqualError(t, err, "app not initialized")
}
