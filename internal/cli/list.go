package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-deploy/internal/cli/render"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var (
		contract string
		status   string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List deployments from the ledger",
		Long: `List the latest record of every deployment in the ledger.

Without --network, records from every network are listed.`,
		Example: `  # List all deployments
  treb list

  # List sepolia deployments still waiting for verification
  treb list -n sepolia --status verification_pending`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var deploymentStatus models.DeploymentStatus
			if status != "" {
				deploymentStatus = models.DeploymentStatus(strings.ToUpper(status))
				if !deploymentStatus.Valid() {
					return fmt.Errorf("invalid status: %s (valid: pending, deployed, verification_pending, verified, failed)", status)
				}
			}

			result, err := app.ListDeployments.Run(cmd.Context(), usecase.ListDeploymentsParams{
				Contract: contract,
				Status:   deploymentStatus,
			})
			if err != nil {
				return err
			}

			renderer := render.NewDeploymentsRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.Render(result)
		},
	}

	cmd.Flags().StringVar(&contract, "contract", "", "Filter by contract name or id")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")

	return cmd
}
