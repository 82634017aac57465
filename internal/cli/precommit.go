package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"groundcrew/internal/config"
	"groundcrew/internal/logger"
	"groundcrew/internal/paths"
	"groundcrew/internal/precommit"
	"groundcrew/internal/tui"
)

func newPrecommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "precommit",
		Short: "Run the pre-commit chores: format, lint, and build check",
		Long: `Precommit runs swiftformat, swiftlint, and a build verification in
order. Every step is best effort: failures, missing tools, and timeouts
degrade to warnings so a commit is never blocked by tooling. The exit
code is always zero.`,
		RunE: runPrecommit,
	}
}

func runPrecommit(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		logger.Warn("config unreadable, continuing with defaults: %v\n", err)
		cfg = config.Default()
		cfg.ApplyDefaults()
	}
	pp = paths.ApplyConfig(pp, cfg)

	runLog, closer := newRunLog()
	defer closer.Close()
	runLog.Printf("precommit: project=%s ci=%v", pp.Root, precommit.IsCI())

	binDir, err := paths.BinDir(cfg)
	if err != nil {
		logger.Warn("bin directory unavailable: %v\n", err)
		binDir = ""
	}

	opts := precommit.Options{
		Dir:     pp.Root,
		Timeout: cfg.StepTimeout(),
		CI:      precommit.IsCI(),
		BinDir:  binDir,
		Logger:  runLog,
	}

	var status *tui.StatusWriter
	if tui.DetectMode(cmd.ErrOrStderr(), false, outputJSON) == tui.ModeTUI {
		status = tui.NewStatusWriter(cmd.ErrOrStderr())
		opts.OnStep = func(name string) {
			status.Update("Running " + name + "...")
		}
	}

	report := precommit.RunSteps(cmd.Context(), precommit.DefaultSteps(pp.Root, cfg), opts)
	if status != nil {
		status.Stop()
	}

	if outputJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printStepReport(cmd, report)
	return nil
}

func printStepReport(cmd *cobra.Command, report precommit.Report) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tOUTCOME\tELAPSED\tDETAIL")
	for _, res := range report.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			res.Name,
			res.Outcome,
			res.Elapsed.Round(time.Millisecond),
			res.Detail,
		)
	}
	w.Flush()

	ok, warned, skipped := report.Counts()
	total := report.Finished.Sub(report.Started).Round(time.Millisecond)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d ok, %d warned, %d skipped in %s\n", ok, warned, skipped, total)
}
