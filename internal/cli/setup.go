package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"groundcrew/internal/config"
	"groundcrew/internal/configs"
	"groundcrew/internal/logger"
	"groundcrew/internal/logx"
	"groundcrew/internal/paths"
	"groundcrew/internal/precommit"
	"groundcrew/internal/tools"
	"groundcrew/internal/tui"
)

var (
	setupNoInput    bool
	setupNoProgress bool
	setupForce      bool
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install managed tools, write shared configs, and generate the project",
		Long: `Setup runs the full onboarding sequence: ensure every managed tool is
available, materialize the shared lint and format configuration files,
and regenerate the Xcode project when a project.yml spec is present.

Each phase is best effort; failures are reported in the summary but never
abort the run, and the exit code is always zero.`,
		RunE: runSetup,
	}

	cmd.Flags().BoolVar(&setupNoInput, "no-input", false, "Run without prompts or a live display")
	cmd.Flags().BoolVar(&setupNoProgress, "no-progress", false, "Disable the live progress display")
	cmd.Flags().BoolVar(&setupForce, "force", false, "Reinstall managed tools even when already satisfied")

	return cmd
}

type setupReport struct {
	Project  string                 `json:"project"`
	Tools    []tools.Status         `json:"tools"`
	Configs  []configs.Result       `json:"configs"`
	Generate []precommit.StepResult `json:"generate,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

func runSetup(cmd *cobra.Command, _ []string) error {
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
	runLog.Printf("setup: project=%s", pp.Root)

	report := setupReport{Project: pp.Root}

	toolsLive := false
	binDir, err := paths.BinDir(cfg)
	if err != nil {
		msg := fmt.Sprintf("bin directory unavailable, skipping tool installs: %v", err)
		logger.Warn("%s\n", msg)
		runLog.Printf("setup: %s", msg)
		report.Warnings = append(report.Warnings, msg)
	} else {
		opts := tools.Options{BinDir: binDir, Pins: cfg.Tools.Pins, Force: setupForce}
		report.Tools, toolsLive = ensureTools(cmd, opts, runLog)
	}

	results, cfgErr := configs.Materialize(pp.Root, runLog)
	report.Configs = results
	if cfgErr != nil {
		logger.Warn("config files: %v\n", cfgErr)
		report.Warnings = append(report.Warnings, cfgErr.Error())
	}

	report.Generate = runGenerate(cmd, pp, cfg, binDir, runLog)

	if outputJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printSetupSummary(cmd, report, toolsLive)
	return nil
}

// ensureTools drives the installer with a live table on a TTY and plain
// status rows everywhere else. Failures land in the status rows; setup
// itself never fails over them. The second return reports whether the live
// table already rendered the final rows.
func ensureTools(cmd *cobra.Command, opts tools.Options, runLog *log.Logger) ([]tools.Status, bool) {
	names := tools.KnownTools()
	mode := tui.DetectMode(cmd.OutOrStdout(), setupNoProgress || setupNoInput, outputJSON)

	var (
		statuses []tools.Status
		err      error
	)
	if mode == tui.ModeTUI {
		statuses, err = ensureToolsTUI(cmd, opts, names)
	} else {
		opts.Progress = func(tool, phase string) {
			logger.Debug("%s: %s\n", tool, phase)
		}
		statuses, err = tools.Ensure(cmd.Context(), opts, names...)
	}

	if err != nil {
		runLog.Printf("ensure tools: %v", err)
	}
	for _, st := range statuses {
		runLog.Printf("tool %s: source=%s version=%s satisfied=%v error=%q",
			st.Tool, st.Source, st.Version, st.Satisfied, st.Error)
	}
	return statuses, mode == tui.ModeTUI
}

func ensureToolsTUI(cmd *cobra.Command, opts tools.Options, names []string) ([]tools.Status, error) {
	columns := []tui.Column{
		{Header: "TOOL", Width: 14},
		{Header: "STATUS", Width: 12},
		{Header: "VERSION", Width: 10},
		{Header: "DETAIL", Width: 44},
	}
	model := tui.NewProgressModel("Ensuring tools", columns)
	for _, name := range names {
		model.AddRow("tool:"+name, []string{name, "pending", "-", "-"})
	}

	var (
		statuses  []tools.Status
		ensureErr error
	)
	installedNow := make(map[string]bool)

	runErr := tui.RunWithWork(cmd.OutOrStdout(), model, func(send func(tea.Msg)) {
		opts.Progress = func(tool, phase string) {
			if phase == "installing" {
				installedNow[tool] = true
			}
			send(tui.RowUpdateMsg{Key: "tool:" + tool, Fields: map[string]string{"STATUS": phase}})
		}

		statuses, ensureErr = tools.Ensure(cmd.Context(), opts, names...)

		for _, st := range statuses {
			send(tui.RowUpdateMsg{Key: "tool:" + st.Tool, Fields: map[string]string{
				"STATUS":  statusLabel(st, installedNow[st.Tool]),
				"VERSION": tui.NonEmptyOrDash(st.Version),
				"DETAIL":  tui.NonEmptyOrDash(statusDetail(st)),
			}})
		}
	})
	if runErr != nil {
		return statuses, runErr
	}
	return statuses, ensureErr
}

func statusLabel(st tools.Status, justInstalled bool) string {
	switch {
	case st.Skipped:
		return "skipped"
	case st.Error != "":
		return "error"
	case st.Satisfied && justInstalled:
		return "installed"
	case st.Satisfied:
		return "ok"
	default:
		return "missing"
	}
}

func statusDetail(st tools.Status) string {
	if st.Error != "" {
		return st.Error
	}
	return st.Path
}

// runGenerate regenerates the Xcode project through the step engine so it
// shares the timeout and warn-only semantics with the pre-commit runner.
func runGenerate(cmd *cobra.Command, pp paths.ProjectPaths, cfg config.Config, binDir string, runLog *log.Logger) []precommit.StepResult {
	step := precommit.Step{Name: "generate", Command: []string{"xcodegen", "generate"}}
	if exists, err := paths.FileExists(pp.XcodeGenSpec); err != nil || !exists {
		step.SkipReason = "no project.yml"
	}

	report := precommit.RunSteps(cmd.Context(), []precommit.Step{step}, precommit.Options{
		Dir:     pp.Root,
		Timeout: cfg.StepTimeout(),
		CI:      precommit.IsCI(),
		BinDir:  binDir,
		Logger:  runLog,
	})
	return report.Results
}

func printSetupSummary(cmd *cobra.Command, report setupReport, toolsLive bool) {
	cmd.Printf("Project: %s\n\n", report.Project)

	if len(report.Tools) > 0 && !toolsLive {
		printToolTable(cmd, report.Tools)
		cmd.Println()
	}

	if len(report.Tools) > 0 {
		var ok, failed, skippedCount int
		for _, st := range report.Tools {
			switch {
			case st.Skipped:
				skippedCount++
			case st.Satisfied:
				ok++
			default:
				failed++
			}
		}
		cmd.Printf("Tools: %d ok, %d skipped, %d failed\n", ok, skippedCount, failed)
	}

	var created, existing, failed int
	for _, res := range report.Configs {
		switch {
		case res.Error != "":
			failed++
		case res.Created:
			created++
		default:
			existing++
		}
	}
	cmd.Printf("Configs: %d created, %d existing", created, existing)
	if failed > 0 {
		cmd.Printf(", %d failed", failed)
	}
	cmd.Println()
	for _, res := range report.Configs {
		if res.Error != "" {
			cmd.Printf("  %s: %s\n", filepath.Base(res.Path), res.Error)
		}
	}

	for _, res := range report.Generate {
		line := fmt.Sprintf("Generate: %s", res.Outcome)
		if res.Detail != "" {
			line += " (" + res.Detail + ")"
		}
		cmd.Println(line)
	}

	for _, warning := range report.Warnings {
		cmd.Printf("Warning: %s\n", warning)
	}
}

// newRunLog opens the append-only run log under the tool cache. Failures
// fall back to a discard logger; a chore never dies on logging.
func newRunLog() (*log.Logger, io.Closer) {
	if root, err := tools.CacheRoot(); err == nil {
		if lg, closer, err := logx.New(filepath.Join(root, "logs")); err == nil {
			return lg, closer
		}
	}
	return log.New(io.Discard, "", 0), nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
