package cli

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"groundcrew/internal/config"
	"groundcrew/internal/headers"
	"groundcrew/internal/logger"
	"groundcrew/internal/paths"
	"groundcrew/internal/precommit"
	"groundcrew/internal/tui"
)

var (
	analyzeLang string
	analyzeMode string
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run static analyzers over the working tree",
		Long: `Analyze runs the static analysis suite: SwiftLint for Swift and Cppcheck
for C and C++ in basic mode; advanced mode adds clang-tidy over the
discovered translation units and Infer against the project build. Missing
analyzers are reported as skipped, never fatal.`,
		RunE: runAnalyze,
	}

	cmd.Flags().StringVar(&analyzeLang, "lang", "all", "Language filter: swift, cpp, or all")
	cmd.Flags().StringVar(&analyzeMode, "mode", "basic", "Analysis depth: basic or advanced")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	switch analyzeLang {
	case "swift", "cpp", "all":
	default:
		return fmt.Errorf("invalid --lang %q: want swift, cpp, or all", analyzeLang)
	}
	switch analyzeMode {
	case "basic", "advanced":
	default:
		return fmt.Errorf("invalid --mode %q: want basic or advanced", analyzeMode)
	}

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
	runLog.Printf("analyze: project=%s lang=%s mode=%s", pp.Root, analyzeLang, analyzeMode)

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

	steps := analyzeSteps(pp.Root, cfg, analyzeLang, analyzeMode)
	report := precommit.RunSteps(cmd.Context(), steps, opts)
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

// analyzeSteps assembles the analyzer sequence for the requested language
// filter and depth. Steps with nothing to do carry a skip reason instead of
// being dropped, so the report always shows the full suite.
func analyzeSteps(root string, cfg config.Config, lang, mode string) []precommit.Step {
	swift := lang == "swift" || lang == "all"
	cpp := lang == "cpp" || lang == "all"

	var steps []precommit.Step

	if swift {
		steps = append(steps, precommit.Step{
			Name:    "swiftlint",
			Command: []string{"swiftlint", "lint"},
		})
	}

	if cpp {
		command := []string{"cppcheck", "--enable=warning,style", "--inline-suppr", "--quiet"}
		if len(cfg.Analyze.Include) > 0 {
			command = append(command, cfg.Analyze.Include...)
		} else {
			command = append(command, ".")
		}
		steps = append(steps, precommit.Step{Name: "cppcheck", Command: command})
	}

	if mode != "advanced" {
		return steps
	}

	if cpp {
		step := precommit.Step{Name: "clang-tidy"}
		units := findTranslationUnits(root, cfg.Analyze.Include)
		if len(units) == 0 {
			step.SkipReason = "no C++ sources"
		} else {
			step.Command = append(append([]string{"clang-tidy"}, units...), "--")
		}
		steps = append(steps, step)
	}

	steps = append(steps, inferStep(root))
	return steps
}

func inferStep(root string) precommit.Step {
	step := precommit.Step{Name: "infer"}
	switch {
	case pathExists(filepath.Join(root, "Makefile")):
		step.Command = []string{"infer", "run", "--", "make"}
	case hasXcodeProject(root):
		step.Command = []string{"infer", "run", "--", "xcodebuild", "-quiet", "build"}
	default:
		step.SkipReason = "no build entry point"
	}
	return step
}

// findTranslationUnits collects C++ and Objective-C++ sources under root,
// honoring the configured include filters and skipping vendored trees.
func findTranslationUnits(root string, include []string) []string {
	roots := []string{root}
	if len(include) > 0 {
		roots = nil
		for _, dir := range include {
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(root, dir)
			}
			roots = append(roots, dir)
		}
	}

	skip := make(map[string]bool, len(headers.DefaultExcluded))
	for _, name := range headers.DefaultExcluded {
		skip[name] = true
	}

	var units []string
	for _, walkRoot := range roots {
		_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != walkRoot && skip[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			switch strings.TrimPrefix(filepath.Ext(d.Name()), ".") {
			case "cpp", "cc", "cxx", "mm":
				if rel, relErr := filepath.Rel(root, path); relErr == nil {
					units = append(units, rel)
				}
			}
			return nil
		})
	}
	sort.Strings(units)
	return units
}

func pathExists(path string) bool {
	exists, err := paths.FileExists(path)
	return err == nil && exists
}

func hasXcodeProject(root string) bool {
	if matches, err := filepath.Glob(filepath.Join(root, "*.xcodeproj")); err == nil && len(matches) > 0 {
		return true
	}
	return pathExists(filepath.Join(root, "project.yml"))
}
