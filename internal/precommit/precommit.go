// Package precommit runs best-effort tool steps: each step is wrapped in a
// wall-clock timeout, failures are recorded as warnings, and no step outcome
// ever aborts the run.
package precommit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"groundcrew/internal/config"
	"groundcrew/internal/execx"
)

// Outcome classifies a finished step.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeWarned  Outcome = "warned"
	OutcomeSkipped Outcome = "skipped"
)

// Step is one external tool invocation.
type Step struct {
	Name       string
	Command    []string
	SkipInCI   bool
	SkipReason string // non-empty marks the step skipped before execution
}

// StepResult records what happened to one step.
type StepResult struct {
	Name    string        `json:"name"`
	Outcome Outcome       `json:"outcome"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Report is the structured result list for a whole run.
type Report struct {
	Results  []StepResult `json:"results"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
}

// Counts tallies outcomes for the summary line.
func (r Report) Counts() (ok, warned, skipped int) {
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeOK:
			ok++
		case OutcomeWarned:
			warned++
		case OutcomeSkipped:
			skipped++
		}
	}
	return ok, warned, skipped
}

// Warned reports whether any step warned.
func (r Report) Warned() bool {
	for _, res := range r.Results {
		if res.Outcome == OutcomeWarned {
			return true
		}
	}
	return false
}

// Logger receives one line per executed step.
type Logger interface {
	Printf(format string, v ...any)
}

// Options configures a run.
type Options struct {
	Runner  execx.Runner
	Dir     string
	Timeout time.Duration
	CI      bool
	BinDir  string // prepended to PATH for child processes when set
	Logger  Logger

	// OnStep is called right before a step's command starts. Skipped steps
	// do not trigger it.
	OnStep func(name string)
}

func (o Options) onStep(name string) {
	if o.OnStep != nil {
		o.OnStep(name)
	}
}

// IsCI reports whether the continuous-integration indicator is set.
func IsCI() bool {
	return os.Getenv("CI") == "true"
}

// RunSteps executes steps strictly in order. Timeouts and non-zero exits are
// recorded as warnings and the run continues; only parent-context
// cancellation stops the loop, marking the remaining steps skipped.
func RunSteps(ctx context.Context, steps []Step, opts Options) Report {
	if opts.Runner == nil {
		opts.Runner = execx.CmdRunner{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultStepTimeout
	}

	report := Report{Started: time.Now()}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			for _, rest := range steps[i:] {
				report.Results = append(report.Results, StepResult{
					Name:    rest.Name,
					Outcome: OutcomeSkipped,
					Detail:  "canceled",
				})
			}
			break
		}

		report.Results = append(report.Results, runOne(ctx, step, opts))
	}
	report.Finished = time.Now()
	return report
}

func runOne(ctx context.Context, step Step, opts Options) StepResult {
	res := StepResult{Name: step.Name}

	if step.SkipReason != "" {
		res.Outcome = OutcomeSkipped
		res.Detail = step.SkipReason
		return res
	}
	if step.SkipInCI && opts.CI {
		res.Outcome = OutcomeSkipped
		res.Detail = "ci"
		return res
	}

	opts.onStep(step.Name)

	stepCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var env []string
	if opts.BinDir != "" {
		env = append(env, "PATH="+opts.BinDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}

	start := time.Now()
	out, err := opts.Runner.Run(stepCtx, step.Command[0], step.Command[1:], execx.RunOptions{
		Dir: opts.Dir,
		Env: env,
	})
	res.Elapsed = time.Since(start)

	switch {
	case err == nil:
		res.Outcome = OutcomeOK
	case stepCtx.Err() == context.DeadlineExceeded:
		res.Outcome = OutcomeWarned
		res.Detail = fmt.Sprintf("timed out after %s", opts.Timeout)
	case isNotFound(err):
		res.Outcome = OutcomeWarned
		res.Detail = fmt.Sprintf("%s not found on PATH", step.Command[0])
	default:
		res.Outcome = OutcomeWarned
		res.Detail = warnDetail(err, out)
	}

	if opts.Logger != nil {
		opts.Logger.Printf("step %s: %s %s", step.Name, res.Outcome, res.Detail)
	}
	return res
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return errors.Is(execErr.Err, exec.ErrNotFound)
	}
	return false
}

// warnDetail condenses a failed invocation into one line: the error plus the
// last line the tool printed.
func warnDetail(err error, out execx.RunResult) string {
	detail := err.Error()
	if line := lastLine(out.Stderr); line != "" {
		detail += ": " + line
	} else if line := lastLine(out.Stdout); line != "" {
		detail += ": " + line
	}
	if len(detail) > 200 {
		detail = detail[:197] + "..."
	}
	return detail
}

func lastLine(buf []byte) string {
	lines := strings.Split(strings.TrimSpace(string(buf)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// DefaultSteps builds the fixed pre-commit sequence for a project: format,
// lint, then a build verification that only applies when a project
// descriptor exists and the configured build mode allows it.
func DefaultSteps(root string, cfg config.Config) []Step {
	steps := []Step{
		{Name: "format", Command: []string{"swiftformat", "."}},
		{Name: "lint", Command: []string{"swiftlint", "lint"}},
	}

	build := Step{
		Name:     "build",
		Command:  []string{"xcodebuild", "-quiet", "build"},
		SkipInCI: true,
	}
	switch {
	case cfg.Precommit.Build == config.BuildNever:
		build.SkipReason = "build disabled"
	case !hasProjectDescriptor(root) && cfg.Precommit.Build != config.BuildAlways:
		build.SkipReason = "no project descriptor"
	}
	return append(steps, build)
}

func hasProjectDescriptor(root string) bool {
	if matches, err := filepath.Glob(filepath.Join(root, "*.xcodeproj")); err == nil && len(matches) > 0 {
		return true
	}
	if _, err := os.Stat(filepath.Join(root, "project.yml")); err == nil {
		return true
	}
	return false
}
