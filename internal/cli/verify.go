package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-deploy/internal/cli/render"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "verify [contract-id...]",
		Short: "Resume verification of deployed contracts",
		Long: `Submit deployed contracts that are not verified yet to the block explorer.

Records in DEPLOYED or VERIFICATION_PENDING are picked up from the ledger.
With --force, contracts whose verification failed are submitted again.`,
		Example: `  # Verify everything that is still pending
  treb verify -n sepolia

  # Retry a failed verification
  treb verify deploy_votingSystem --force -n sepolia`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.OrchestrateDeployment.Resume(cmd.Context(), args, force)
			if err != nil {
				return err
			}

			renderer := render.NewRunRenderer(cmd.OutOrStdout(), app.Config.JSON)
			if err := renderer.Render(result); err != nil {
				return err
			}
			return runError(result)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Retry contracts whose verification failed")

	return cmd
}
