package cli

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X groundcrew/internal/cli.version=...".
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the groundcrew version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("groundcrew " + version)
		},
	}
}
