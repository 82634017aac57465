package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"groundcrew/internal/headers"
	"groundcrew/internal/logger"
)

var (
	headersExt    string
	headersDryRun bool
)

func newNormalizeHeadersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize-headers",
		Short: "Rewrite license headers across the working tree",
		Long: `Normalize-headers walks the tree and rewrites each matching file so it
starts with the canonical license header. Shebang lines and encoding
markers stay put, recognized license blocks are replaced, and running
twice changes nothing.`,
		RunE: runNormalizeHeaders,
	}

	cmd.Flags().StringVar(&headersExt, "ext", "", "Comma-separated extension list (default from config)")
	cmd.Flags().BoolVar(&headersDryRun, "dry-run", false, "Report files without writing")

	return cmd
}

func runNormalizeHeaders(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadProject()
	if err != nil {
		return err
	}

	extensions := cfg.Headers.Extensions
	if headersExt != "" {
		extensions = splitExtensions(headersExt)
	}

	runLog, closer := newRunLog()
	defer closer.Close()
	runLog.Printf("normalize-headers: project=%s extensions=%v dry-run=%v", pp.Root, extensions, headersDryRun)

	header := headers.HeaderLines(cfg.Headers.Owner, cfg.Headers.License, time.Now().Year())
	results, walkErr := headers.NormalizeTree(pp.Root, headers.Options{
		Extensions: extensions,
		Header:     header,
		DryRun:     headersDryRun,
	}, runLog)
	if walkErr != nil {
		logger.Warn("walk stopped early: %v\n", walkErr)
	}

	if outputJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	var rewritten, unchanged, failed int
	for _, res := range results {
		switch {
		case res.Error != "":
			failed++
			cmd.Printf("failed    %s: %s\n", res.Path, res.Error)
		case res.Outcome == headers.Rewritten:
			rewritten++
			verb := "rewrote"
			if headersDryRun {
				verb = "would rewrite"
			}
			cmd.Printf("%s %s\n", verb, res.Path)
		default:
			unchanged++
		}
	}

	cmd.Printf("%d rewritten, %d unchanged, %d failed\n", rewritten, unchanged, failed)
	return nil
}

func splitExtensions(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), ".")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
