package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-deploy/internal/cli/render"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var withHistory bool

	cmd := &cobra.Command{
		Use:   "show <contract-id>",
		Short: "Show detailed deployment information",
		Long: `Show the latest ledger record of a deployment on the selected network.

With --history, every superseded revision of the record is listed as well.`,
		Example: `  treb show deploy_votingSystem -n sepolia
  treb show deploy_votingSystem -n sepolia --history --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ShowDeployment.Run(cmd.Context(), usecase.ShowDeploymentParams{
				ContractID:  args[0],
				WithHistory: withHistory,
			})
			if err != nil {
				return err
			}

			renderer := render.NewDeploymentRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.Render(result)
		},
	}

	cmd.Flags().BoolVar(&withHistory, "history", false, "Include superseded revisions")

	return cmd
}
