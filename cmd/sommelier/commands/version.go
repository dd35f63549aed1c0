package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/sommelier-go/internal/version"
)

// NewVersionCmd constructs the `sommelier version` subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sommelier version, git commit, and build date",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sommelier %s\n", version.String())
		},
	}
}
