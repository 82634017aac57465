package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"groundcrew/internal/config"
	"groundcrew/internal/execx"
	"groundcrew/internal/paths"
	"groundcrew/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and project health",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	cfg, cfgErr := config.Load(pp.ConfigFile)
	if cfgErr == nil {
		pp = paths.ApplyConfig(pp, cfg)
	}

	// Xcode checks are advisory off macOS; git is load-bearing everywhere.
	xcodeRequired := runtime.GOOS == "darwin"

	var checks []healthCheck
	checks = append(checks, checkCommand(cmd.Context(), "Xcode CLT", xcodeRequired, "xcode-select", "-p"))
	checks = append(checks, checkCommand(cmd.Context(), "xcodebuild", xcodeRequired, "xcodebuild", "-version"))
	checks = append(checks, checkCommand(cmd.Context(), "Git", true, "git", "--version"))
	checks = append(checks, checkManagedTools(cmd.Context(), cfg))
	checks = append(checks, checkBinDirOnPath(cfg))
	checks = append(checks, checkConfig(pp.Root, cfg, cfgErr))
	checks = append(checks, checkHook(pp))

	return writeDoctorResult(cmd, pp.Root, checks)
}

func checkCommand(ctx context.Context, name string, required bool, command string, args ...string) healthCheck {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := execx.CmdRunner{}.Run(ctx, command, args, execx.RunOptions{})
	if err != nil {
		status := "warning"
		if required {
			status = "error"
		}
		return healthCheck{Name: name, Status: status, Summary: command + " unavailable"}
	}

	summary := firstOutputLine(out)
	if summary == "" {
		summary = command + " present"
	}
	return healthCheck{Name: name, Status: "ok", Summary: summary}
}

func checkManagedTools(ctx context.Context, cfg config.Config) healthCheck {
	binDir, err := paths.BinDirPath(cfg)
	if err != nil {
		return healthCheck{Name: "Tools", Status: "error", Summary: err.Error()}
	}

	statuses, err := tools.Detect(ctx, binDir)
	if err != nil {
		return healthCheck{Name: "Tools", Status: "error", Summary: err.Error()}
	}

	var satisfied, total int
	var labels []string
	for _, st := range statuses {
		if st.Skipped {
			continue
		}
		total++
		if st.Satisfied {
			satisfied++
			label := st.Tool
			if st.Version != "" {
				label += " " + st.Version
			}
			labels = append(labels, label)
		}
	}

	if satisfied == total {
		return healthCheck{Name: "Tools", Status: "ok", Summary: joinComma(labels)}
	}
	return healthCheck{
		Name:    "Tools",
		Status:  "warning",
		Summary: fmt.Sprintf("%d of %d tools satisfied; run `groundcrew setup`", satisfied, total),
	}
}

func checkBinDirOnPath(cfg config.Config) healthCheck {
	binDir, err := paths.BinDirPath(cfg)
	if err != nil {
		return healthCheck{Name: "Bin dir", Status: "error", Summary: err.Error()}
	}
	if pathListContains(os.Getenv("PATH"), binDir) {
		return healthCheck{Name: "Bin dir", Status: "ok", Summary: binDir + " on PATH"}
	}
	return healthCheck{
		Name:    "Bin dir",
		Status:  "warning",
		Summary: binDir + " not on PATH; add it to your shell profile",
	}
}

func checkConfig(root string, cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	validations := cfg.ValidateStrict(root, tools.KnownTools())
	var warnings, errors int
	for _, v := range validations {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errors++
		}
	}

	summary := fmt.Sprintf("%d links, %d pins", len(cfg.Links), len(cfg.Tools.Pins))
	if errors > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errors)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkHook(pp paths.ProjectPaths) healthCheck {
	contents, err := os.ReadFile(pp.PreCommitHook)
	switch {
	case err == nil && strings.Contains(string(contents), hookMarker):
		return healthCheck{Name: "Hook", Status: "ok", Summary: "pre-commit hook installed"}
	case err == nil:
		return healthCheck{Name: "Hook", Status: "warning", Summary: "foreign pre-commit hook present"}
	case os.IsNotExist(err):
		return healthCheck{Name: "Hook", Status: "warning", Summary: "not installed; run `groundcrew hook install`"}
	default:
		return healthCheck{Name: "Hook", Status: "error", Summary: err.Error()}
	}
}

func writeDoctorResult(cmd *cobra.Command, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("PROJECT HEALTH:")+" "+projectRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func firstOutputLine(out execx.RunResult) string {
	text := strings.TrimSpace(string(out.Stdout))
	if text == "" {
		text = strings.TrimSpace(string(out.Stderr))
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func pathListContains(pathList, dir string) bool {
	cleaned := filepath.Clean(dir)
	for _, entry := range filepath.SplitList(pathList) {
		if entry != "" && filepath.Clean(entry) == cleaned {
			return true
		}
	}
	return false
}

func joinComma(items []string) string {
	if len(items) == 0 {
		return ""
	}
	result := items[0]
	for _, item := range items[1:] {
		result += ", " + item
	}
	return result
}
