// Package commands defines all Cobra CLI commands for the sommelier binary.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/54b3r/sommelier-go/internal/audit"
	"github.com/54b3r/sommelier-go/internal/config"
	"github.com/54b3r/sommelier-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sommelier",
		Short: "Sommelier: a wine shop assistant backed by Qdrant and an LLM",
		Long: `Sommelier answers wine questions in chat. It searches the catalog by
attributes (color, country, price, acidity) or by free-text description and
keeps a per-user cart.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.sommelier/config.yaml). A .env file in the
working directory is loaded first.
See 'sommelier --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(""); err != nil {
				return err
			}

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = logging.WithLogger(ctx, log)
			cmd.SetContext(ctx)

			audit.LogCommandStart(ctx, log, cmd.CommandPath(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.sommelier/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewSearchCmd(),
		NewCartCmd(),
		NewForgetCmd(),
		NewIngestCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return root
}
