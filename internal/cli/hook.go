package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"groundcrew/internal/logger"
	"groundcrew/internal/paths"
)

// hookMarker identifies hooks written by groundcrew. Install refuses to
// replace a hook without the marker unless --force, and remove only deletes
// hooks that carry it.
const hookMarker = "# groundcrew pre-commit hook"

const hookScript = "#!/bin/sh\n" +
	hookMarker + "\n" +
	"exec groundcrew precommit \"$@\"\n"

var hookForce bool

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage the git pre-commit hook",
	}

	install := &cobra.Command{
		Use:   "install",
		Short: "Install a pre-commit hook that runs groundcrew precommit",
		RunE:  runHookInstall,
	}
	install.Flags().BoolVar(&hookForce, "force", false, "replace a pre-commit hook groundcrew did not write")

	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove the groundcrew pre-commit hook",
		RunE:  runHookRemove,
	}

	cmd.AddCommand(install)
	cmd.AddCommand(remove)
	return cmd
}

func runHookInstall(cmd *cobra.Command, _ []string) error {
	pp, _, err := loadProject()
	if err != nil {
		return err
	}
	if ok, err := paths.DirExists(pp.GitDir); err != nil || !ok {
		return fmt.Errorf("%s is not a git repository", pp.Root)
	}

	existing, readErr := os.ReadFile(pp.PreCommitHook)
	switch {
	case readErr == nil && !strings.Contains(string(existing), hookMarker) && !hookForce:
		return fmt.Errorf("existing pre-commit hook at %s was not written by groundcrew; pass --force to replace it", pp.PreCommitHook)
	case readErr != nil && !os.IsNotExist(readErr):
		return fmt.Errorf("read existing hook: %w", readErr)
	}

	if err := os.MkdirAll(filepath.Dir(pp.PreCommitHook), 0o755); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}
	if err := os.WriteFile(pp.PreCommitHook, []byte(hookScript), 0o755); err != nil {
		return fmt.Errorf("write hook: %w", err)
	}

	logger.Info("installed pre-commit hook at %s\n", pp.PreCommitHook)
	return nil
}

func runHookRemove(cmd *cobra.Command, _ []string) error {
	pp, _, err := loadProject()
	if err != nil {
		return err
	}

	contents, readErr := os.ReadFile(pp.PreCommitHook)
	if os.IsNotExist(readErr) {
		logger.Info("no pre-commit hook installed\n")
		return nil
	}
	if readErr != nil {
		return fmt.Errorf("read hook: %w", readErr)
	}
	if !strings.Contains(string(contents), hookMarker) {
		return fmt.Errorf("pre-commit hook at %s was not written by groundcrew; remove it yourself", pp.PreCommitHook)
	}

	if err := os.Remove(pp.PreCommitHook); err != nil {
		return fmt.Errorf("remove hook: %w", err)
	}

	logger.Info("removed pre-commit hook at %s\n", pp.PreCommitHook)
	return nil
}
