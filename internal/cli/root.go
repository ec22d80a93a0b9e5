package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-deploy/internal/adapters/progress"
	"github.com/trebuchet-org/treb-deploy/internal/app"
	"github.com/trebuchet-org/treb-deploy/internal/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// session holds what PersistentPreRunE sets up so Execute can tear it down
// whether or not the command succeeded.
type session struct {
	app     *app.App
	cleanup func()
	cancel  context.CancelFunc
}

func (s *session) close() error {
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.app != nil {
		err = s.app.FlushMetrics()
	}
	if s.cleanup != nil {
		s.cleanup()
	}
	return err
}

// Execute builds the root command, runs it and releases the app's resources
func Execute(ctx context.Context) error {
	s := &session{}
	rootCmd := newRootCmd(s)
	runErr := rootCmd.ExecuteContext(ctx)
	if err := s.close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to write metrics: %w", err)
	}
	return runErr
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&session{})
}

func newRootCmd(s *session) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treb",
		Short: "Idempotent contract deployment and verification",
		Long: `Trebuchet (treb) deploys the contracts listed in deploy.yaml, records every
step in a deployment ledger and submits each deployment for source
verification. Re-running a deployment only does the work that is left.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			// Find project root
			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			// Set up viper with every flag of the running command
			v := config.SetupViper(projectRoot, cmd)

			// Progress goes to stderr so --json output stays parseable
			interactive := !v.GetBool("non_interactive") && !v.GetBool("json") && isatty.IsTerminal(os.Stderr.Fd())
			sink := progress.NewDeployProgress(cmd.ErrOrStderr(), interactive)

			// Initialize app with DI
			appInstance, cleanup, err := app.InitApp(cmd.Context(), v, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			s.app = appInstance
			s.cleanup = cleanup

			// Store app in context
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			// Add timeout if configured
			if appInstance.Config.Timeout > 0 {
				ctx, s.cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
			}

			cmd.SetContext(ctx)
			return nil
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("network", "n", "", "Network to use (a [networks.<name>] section of treb.toml)")
	flags.Bool("debug", false, "Enable debug output")
	flags.Bool("non-interactive", false, "Disable interactive prompts and spinners")
	flags.Bool("json", false, "Output results as JSON")
	flags.String("manifest", "", "Deployment manifest (defaults to deploy.yaml)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file when the command finishes")
	flags.Duration("timeout", 0, "Abort the command after this long (defaults to 30m)")
	flags.Int("concurrency", 0, "Number of contracts processed in parallel")
	flags.String("ledger-backend", "", "Ledger backend (file or postgres)")
	flags.String("ledger-dsn", "", "Postgres connection string for the postgres ledger backend")

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	// Main commands
	deployCmd := NewDeployCmd()
	deployCmd.GroupID = "main"
	rootCmd.AddCommand(deployCmd)

	verifyCmd := NewVerifyCmd()
	verifyCmd.GroupID = "main"
	rootCmd.AddCommand(verifyCmd)

	listCmd := NewListCmd()
	listCmd.GroupID = "main"
	rootCmd.AddCommand(listCmd)

	showCmd := NewShowCmd()
	showCmd.GroupID = "main"
	rootCmd.AddCommand(showCmd)

	// Management commands
	resetCmd := NewResetCmd()
	resetCmd.GroupID = "management"
	rootCmd.AddCommand(resetCmd)

	// Version command
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
