package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"groundcrew/internal/links"
)

var linkVerify bool

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create or repair the configured symlinks",
		Long: `Link replaces every entry of the configured link table with a fresh
symlink, regardless of what currently occupies the path. Use --verify to
check the table without touching the tree.`,
		RunE: runLink,
	}

	cmd.Flags().BoolVar(&linkVerify, "verify", false, "Check links without rewriting them")

	return cmd
}

func runLink(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadProject()
	if err != nil {
		return err
	}

	if len(cfg.Links) == 0 {
		cmd.Println("no links configured")
		return nil
	}

	runLog, closer := newRunLog()
	defer closer.Close()
	runLog.Printf("link: project=%s verify=%v entries=%d", pp.Root, linkVerify, len(cfg.Links))

	var results []links.Result
	if linkVerify {
		results = links.Verify(pp.Root, cfg.Links)
	} else {
		results = links.Relink(pp.Root, cfg.Links, runLog)
	}

	if outputJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "LINK\tTARGET\tSTATUS")
	okCount := 0
	for _, res := range results {
		status := "linked"
		if linkVerify {
			status = "ok"
		}
		if res.Error != "" {
			status = res.Error
		} else {
			okCount++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", res.Path, res.Target, status)
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d links ok\n", okCount, len(results))
	return nil
}
