package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-deploy/internal/app"
	"github.com/trebuchet-org/treb-deploy/internal/cli/interactive"
	"github.com/trebuchet-org/treb-deploy/internal/cli/render"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// NewResetCmd creates the reset command
func NewResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset [contract-id]",
		Short: "Reset a deployment so the next run deploys it again",
		Long: `Reset a deployment record to PENDING on the selected network.

The current record is kept in the ledger history. The next 'treb deploy'
deploys the contract again, even if it was VERIFIED or FAILED before.

Without a contract id, an interactive picker lists the network's deployments.`,
		Example: `  treb reset deploy_votingSystem -n sepolia
  treb reset -n sepolia --yes deploy_token`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			contractID, err := resolveResetTarget(cmd, app, args)
			if err != nil {
				if errors.Is(err, interactive.ErrCancelled) {
					fmt.Fprintln(cmd.OutOrStdout(), "❌ Reset cancelled.")
					return nil
				}
				return err
			}

			// Look up the record first so the user sees what is replaced
			preview, err := app.ResetDeployment.Run(cmd.Context(), usecase.ResetDeploymentParams{
				ContractID: contractID,
				DryRun:     true,
			})
			if err != nil {
				return err
			}

			prev := preview.Previous
			fmt.Fprintf(cmd.OutOrStdout(), "%s on %s is %s", prev.ContractID, prev.Network, render.FormatStatus(prev.Status))
			if prev.Address != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " at %s", prev.Address)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			// Handle confirmation
			if !yes {
				if app.Config.NonInteractive {
					return fmt.Errorf("refusing to reset without confirmation in non-interactive mode (use --yes)")
				}
				if !interactive.Confirm("Reset this deployment") {
					fmt.Fprintln(cmd.OutOrStdout(), "❌ Reset cancelled.")
					return nil
				}
			}

			result, err := app.ResetDeployment.Run(cmd.Context(), usecase.ResetDeploymentParams{
				ContractID: contractID,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf(
				"%s reset to %s (revision %d)", result.Current.ContractID, result.Current.Status, result.Current.Revision)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// resolveResetTarget returns the contract id from args or, interactively, from a picker
func resolveResetTarget(cmd *cobra.Command, app *app.App, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if app.Config.NonInteractive {
		return "", fmt.Errorf("a contract id is required in non-interactive mode")
	}
	if app.Config.Network == nil {
		return "", fmt.Errorf("network is required for reset")
	}

	list, err := app.ListDeployments.Run(cmd.Context(), usecase.ListDeploymentsParams{})
	if err != nil {
		return "", err
	}
	record, err := interactive.PickDeployment(list.Deployments, "Select a deployment to reset")
	if err != nil {
		return "", err
	}
	return record.ContractID, nil
}
