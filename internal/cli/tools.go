package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"groundcrew/internal/paths"
	"groundcrew/internal/tools"
	"groundcrew/internal/tui"
)

var (
	installVersion string
	installForce   bool
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage the external tool set",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsInstallCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resolved tool statuses",
		RunE:  runToolsList,
	}
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadProject()
	if err != nil {
		return err
	}

	binDir, err := paths.BinDir(cfg)
	if err != nil {
		return err
	}

	statuses, err := tools.Detect(cmd.Context(), binDir)
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printToolTable(cmd, statuses)
	return nil
}

func newToolsInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [tool...]",
		Short: "Install or update managed tools",
		Long: `Install ensures every named tool (default: all) is present in the bin
directory, downloading release builds or copying system binaries as
needed. Unlike setup, a tool that cannot be ensured makes the command
fail.`,
		RunE: runToolsInstall,
	}

	cmd.Flags().StringVar(&installVersion, "version", "", "Specific version to install when supported")
	cmd.Flags().BoolVar(&installForce, "force", false, "Reinstall even when already satisfied")

	return cmd
}

func runToolsInstall(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadProject()
	if err != nil {
		return err
	}

	names := tools.KnownTools()
	if len(args) > 0 {
		names = nil
		for _, arg := range args {
			name := strings.ToLower(strings.TrimSpace(arg))
			if _, ok := tools.Definition(name); !ok {
				return fmt.Errorf("unknown tool: %s", name)
			}
			names = append(names, name)
		}
	}

	binDir, err := paths.BinDir(cfg)
	if err != nil {
		return err
	}

	pins := cfg.Tools.Pins
	if installVersion != "" {
		pins = make(map[string]string, len(cfg.Tools.Pins)+len(names))
		for tool, pin := range cfg.Tools.Pins {
			pins[tool] = pin
		}
		for _, name := range names {
			pins[name] = installVersion
		}
	}

	opts := tools.Options{BinDir: binDir, Pins: pins, Force: installForce}
	mode := tui.DetectMode(cmd.OutOrStdout(), false, outputJSON)

	var (
		statuses  []tools.Status
		ensureErr error
	)
	if mode == tui.ModeTUI {
		statuses, ensureErr = ensureToolsTUI(cmd, opts, names)
	} else {
		statuses, ensureErr = tools.Ensure(cmd.Context(), opts, names...)
	}

	if outputJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
	} else if mode != tui.ModeTUI {
		printToolTable(cmd, statuses)
	}

	return ensureErr
}

func printToolTable(cmd *cobra.Command, statuses []tools.Status) {
	if len(statuses) == 0 {
		cmd.Println("(no tool statuses)")
		return
	}

	rows := make([]tools.Status, len(statuses))
	copy(rows, statuses)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Tool < rows[j].Tool
	})

	cmd.Printf("%-14s %-8s %-12s %-5s %s\n", "TOOL", "SOURCE", "VERSION", "OK", "PATH")
	for _, st := range rows {
		ok := "no"
		switch {
		case st.Skipped:
			ok = "skip"
		case st.Satisfied:
			ok = "yes"
		}
		source := string(st.Source)
		if source == "" {
			source = "-"
		}
		path := st.Path
		if path == "" {
			path = "(missing)"
		}
		cmd.Printf("%-14s %-8s %-12s %-5s %s\n", st.Tool, source, tui.NonEmptyOrDash(st.Version), ok, path)
		if st.Error != "" {
			cmd.Printf("  error: %s\n", st.Error)
		}
		for _, note := range st.Notes {
			cmd.Printf("  note: %s\n", note)
		}
	}
}
