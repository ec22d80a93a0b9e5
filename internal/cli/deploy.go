package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-deploy/internal/cli/render"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// NewDeployCmd creates the deploy command
func NewDeployCmd() *cobra.Command {
	var (
		tags     []string
		force    bool
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "deploy [contract-id...]",
		Short: "Deploy and verify the contracts in deploy.yaml",
		Long: `Deploy the contracts listed in the deployment manifest and submit them for
verification.

Each contract moves through PENDING, DEPLOYED, VERIFICATION_PENDING and
VERIFIED, and every step is written to the ledger. Contracts that are already
deployed are not redeployed: a second run only finishes what is left.

Without arguments every contract in the manifest is processed.`,
		Example: `  # Deploy everything to sepolia
  treb deploy --network sepolia

  # Deploy a single contract
  treb deploy deploy_votingSystem -n sepolia

  # Deploy contracts tagged "core" without verification
  treb deploy --tags core --no-verify -n local

  # Start over for a contract that already has a record
  treb deploy deploy_votingSystem --force -n sepolia`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.OrchestrateDeployment.Run(cmd.Context(), usecase.OrchestrateParams{
				ContractIDs: args,
				Tags:        tags,
				Force:       force,
				NoVerify:    noVerify,
			})
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

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Only deploy contracts carrying one of these tags")
	cmd.Flags().BoolVar(&force, "force", false, "Reset existing records and deploy again")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip verification")

	return cmd
}

// runError turns failed units into a command error so the exit code is non-zero
func runError(result *usecase.OrchestrateResult) error {
	if failed := result.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d contract(s) did not complete", len(failed), len(result.Units))
	}
	return nil
}
