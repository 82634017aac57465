package precommit

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"groundcrew/internal/config"
	"groundcrew/internal/execx"
)

type fakeRunner struct {
	calls    []string
	behavior map[string]func(ctx context.Context) (execx.RunResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, command string, args []string, opts execx.RunOptions) (execx.RunResult, error) {
	f.calls = append(f.calls, command)
	if fn, ok := f.behavior[command]; ok {
		return fn(ctx)
	}
	return execx.RunResult{}, nil
}

func succeed(ctx context.Context) (execx.RunResult, error) {
	return execx.RunResult{}, nil
}

func exitWith(stderr string) func(ctx context.Context) (execx.RunResult, error) {
	return func(ctx context.Context) (execx.RunResult, error) {
		return execx.RunResult{Stderr: []byte(stderr)}, errors.New("exit status 1")
	}
}

func hangUntilCanceled(ctx context.Context) (execx.RunResult, error) {
	<-ctx.Done()
	return execx.RunResult{}, ctx.Err()
}

func TestRunStepsAllOK(t *testing.T) {
	runner := &fakeRunner{behavior: map[string]func(ctx context.Context) (execx.RunResult, error){
		"swiftformat": succeed,
		"swiftlint":   succeed,
	}}

	report := RunSteps(context.Background(), []Step{
		{Name: "format", Command: []string{"swiftformat", "."}},
		{Name: "lint", Command: []string{"swiftlint", "lint"}},
	}, Options{Runner: runner, Timeout: time.Second})

	ok, warned, skipped := report.Counts()
	if ok != 2 || warned != 0 || skipped != 0 {
		t.Fatalf("counts ok=%d warned=%d skipped=%d", ok, warned, skipped)
	}
	if report.Warned() {
		t.Fatal("Warned() should be false")
	}
	if got := strings.Join(runner.calls, ","); got != "swiftformat,swiftlint" {
		t.Fatalf("unexpected call order %s", got)
	}
}

func TestRunStepsContinuesPastWarning(t *testing.T) {
	runner := &fakeRunner{behavior: map[string]func(ctx context.Context) (execx.RunResult, error){
		"swiftformat": exitWith("error: cannot format\n"),
		"swiftlint":   succeed,
	}}

	report := RunSteps(context.Background(), []Step{
		{Name: "format", Command: []string{"swiftformat", "."}},
		{Name: "lint", Command: []string{"swiftlint", "lint"}},
	}, Options{Runner: runner, Timeout: time.Second})

	if report.Results[0].Outcome != OutcomeWarned {
		t.Fatalf("expected warned, got %s", report.Results[0].Outcome)
	}
	if !strings.Contains(report.Results[0].Detail, "cannot format") {
		t.Fatalf("detail lost tool output: %q", report.Results[0].Detail)
	}
	if report.Results[1].Outcome != OutcomeOK {
		t.Fatal("run did not continue past warning")
	}
}

func TestRunStepsTimeoutIsBounded(t *testing.T) {
	runner := &fakeRunner{behavior: map[string]func(ctx context.Context) (execx.RunResult, error){
		"xcodebuild": hangUntilCanceled,
		"swiftlint":  succeed,
	}}

	start := time.Now()
	report := RunSteps(context.Background(), []Step{
		{Name: "build", Command: []string{"xcodebuild", "build"}},
		{Name: "lint", Command: []string{"swiftlint", "lint"}},
	}, Options{Runner: runner, Timeout: 50 * time.Millisecond})
	elapsed := time.Since(start)

	if report.Results[0].Outcome != OutcomeWarned {
		t.Fatalf("expected warned, got %s", report.Results[0].Outcome)
	}
	if !strings.Contains(report.Results[0].Detail, "timed out") {
		t.Fatalf("expected timeout detail, got %q", report.Results[0].Detail)
	}
	if report.Results[1].Outcome != OutcomeOK {
		t.Fatal("runner did not proceed after timeout")
	}
	if elapsed > 2*time.Second {
		t.Fatalf("run took too long: %s", elapsed)
	}
}

func TestRunStepsSkipsInCI(t *testing.T) {
	runner := &fakeRunner{behavior: map[string]func(ctx context.Context) (execx.RunResult, error){}}

	report := RunSteps(context.Background(), []Step{
		{Name: "build", Command: []string{"xcodebuild", "build"}, SkipInCI: true},
	}, Options{Runner: runner, CI: true, Timeout: time.Second})

	if report.Results[0].Outcome != OutcomeSkipped || report.Results[0].Detail != "ci" {
		t.Fatalf("expected ci skip, got %+v", report.Results[0])
	}
	if len(runner.calls) != 0 {
		t.Fatal("skipped step was executed")
	}
}

func TestRunStepsSkipReason(t *testing.T) {
	runner := &fakeRunner{}

	report := RunSteps(context.Background(), []Step{
		{Name: "build", Command: []string{"xcodebuild"}, SkipReason: "no project descriptor"},
	}, Options{Runner: runner, Timeout: time.Second})

	res := report.Results[0]
	if res.Outcome != OutcomeSkipped || res.Detail != "no project descriptor" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunStepsMissingTool(t *testing.T) {
	runner := &fakeRunner{behavior: map[string]func(ctx context.Context) (execx.RunResult, error){
		"swiftlint": func(ctx context.Context) (execx.RunResult, error) {
			return execx.RunResult{}, &exec.Error{Name: "swiftlint", Err: exec.ErrNotFound}
		},
	}}

	report := RunSteps(context.Background(), []Step{
		{Name: "lint", Command: []string{"swiftlint", "lint"}},
	}, Options{Runner: runner, Timeout: time.Second})

	res := report.Results[0]
	if res.Outcome != OutcomeWarned {
		t.Fatalf("expected warned, got %s", res.Outcome)
	}
	if !strings.Contains(res.Detail, "not found on PATH") {
		t.Fatalf("unexpected detail %q", res.Detail)
	}
}

func TestRunStepsOnStepSkipsSkipped(t *testing.T) {
	runner := &fakeRunner{behavior: map[string]func(ctx context.Context) (execx.RunResult, error){
		"swiftformat": succeed,
	}}

	var started []string
	report := RunSteps(context.Background(), []Step{
		{Name: "format", Command: []string{"swiftformat", "."}},
		{Name: "build", Command: []string{"xcodebuild"}, SkipReason: "no project descriptor"},
	}, Options{
		Runner:  runner,
		Timeout: time.Second,
		OnStep:  func(name string) { started = append(started, name) },
	})

	if got := strings.Join(started, ","); got != "format" {
		t.Fatalf("expected OnStep only for executed steps, got %q", got)
	}
	if report.Results[1].Outcome != OutcomeSkipped {
		t.Fatalf("unexpected result %+v", report.Results[1])
	}
}

func TestRunStepsCancellationSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{}
	report := RunSteps(ctx, []Step{
		{Name: "format", Command: []string{"swiftformat", "."}},
		{Name: "lint", Command: []string{"swiftlint", "lint"}},
	}, Options{Runner: runner, Timeout: time.Second})

	if len(report.Results) != 2 {
		t.Fatalf("expected results for every step, got %d", len(report.Results))
	}
	for _, res := range report.Results {
		if res.Outcome != OutcomeSkipped || res.Detail != "canceled" {
			t.Fatalf("unexpected result %+v", res)
		}
	}
	if len(runner.calls) != 0 {
		t.Fatal("steps ran after cancellation")
	}
}

func TestIsCI(t *testing.T) {
	t.Setenv("CI", "true")
	if !IsCI() {
		t.Fatal("CI=true should report CI")
	}
	t.Setenv("CI", "1")
	if IsCI() {
		t.Fatal("only the literal true counts")
	}
}

func TestDefaultStepsWithProject(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "App.xcodeproj"), 0o755); err != nil {
		t.Fatal(err)
	}

	steps := DefaultSteps(root, config.Default())
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[0].Name != "format" || steps[1].Name != "lint" || steps[2].Name != "build" {
		t.Fatalf("unexpected order: %+v", steps)
	}
	if steps[2].SkipReason != "" {
		t.Fatalf("build should run with a project present, got %q", steps[2].SkipReason)
	}
	if !steps[2].SkipInCI {
		t.Fatal("build must be CI-gated")
	}
}

func TestDefaultStepsWithoutDescriptor(t *testing.T) {
	steps := DefaultSteps(t.TempDir(), config.Default())
	if steps[2].SkipReason != "no project descriptor" {
		t.Fatalf("expected descriptor skip, got %q", steps[2].SkipReason)
	}
}

func TestDefaultStepsBuildNever(t *testing.T) {
	cfg := config.Default()
	cfg.Precommit.Build = config.BuildNever

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "App.xcodeproj"), 0o755); err != nil {
		t.Fatal(err)
	}

	steps := DefaultSteps(root, cfg)
	if steps[2].SkipReason != "build disabled" {
		t.Fatalf("expected disabled skip, got %q", steps[2].SkipReason)
	}
}

func TestDefaultStepsProjectYML(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "project.yml"), []byte("name: App\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	steps := DefaultSteps(root, config.Default())
	if steps[2].SkipReason != "" {
		t.Fatalf("project.yml should count as a descriptor, got %q", steps[2].SkipReason)
	}
}
