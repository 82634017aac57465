package cli

import (
	"os"

	"github.com/spf13/cobra"

	"groundcrew/internal/config"
	"groundcrew/internal/logger"
	"groundcrew/internal/paths"
)

var (
	projectDir string
	outputJSON bool
	verbose    bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "groundcrew",
		Short:        "Repo chores for iOS projects: tools, configs, hooks, headers",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.Init(verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&projectDir, "project", "", "Path to project directory")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newPrecommitCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newNormalizeHeadersCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newProvisionsCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newHookCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadProject resolves the working tree root and loads its configuration,
// then overlays configuration-driven paths.
func loadProject() (paths.ProjectPaths, config.Config, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return paths.ProjectPaths{}, config.Config{}, err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return pp, config.Config{}, err
	}
	return paths.ApplyConfig(pp, cfg), cfg, nil
}
