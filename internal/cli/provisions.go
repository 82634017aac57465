package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"groundcrew/internal/logger"
	"groundcrew/internal/provision"
)

var (
	provisionsWithin int
	provisionsStrict bool
)

func newProvisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provisions [dir]",
		Short: "Check provisioning profiles for expiry",
		Long: `Provisions decodes every .mobileprovision file in the directory, pulls
the embedded profile out of any .ipa archive, and classifies each one as
valid, expiring, or expired against the current date.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProvisions,
	}

	cmd.Flags().IntVar(&provisionsWithin, "within", 0, "Days ahead that count as expiring (default from config)")
	cmd.Flags().BoolVar(&provisionsStrict, "strict", false, "Exit non-zero when any profile is expired")

	return cmd
}

func runProvisions(cmd *cobra.Command, args []string) error {
	pp, cfg, err := loadProject()
	if err != nil {
		return err
	}

	dir := pp.ProvisionsDir
	if len(args) == 1 {
		dir = args[0]
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(pp.Root, dir)
		}
	}

	within := cfg.Provisions.WithinDays
	if cmd.Flags().Changed("within") {
		within = provisionsWithin
	}

	runLog, closer := newRunLog()
	defer closer.Close()
	runLog.Printf("provisions: dir=%s within=%dd strict=%v", dir, within, provisionsStrict)

	results, err := provision.Scan(cmd.Context(), dir, provision.Options{
		Horizon: time.Duration(within) * 24 * time.Hour,
		Logger:  runLog,
	})
	if err != nil {
		logger.Warn("%v\n", err)
		return nil
	}

	if outputJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		printProvisionTable(cmd, results)
	}

	if provisionsStrict {
		expired := 0
		for _, res := range results {
			if res.Status == provision.StatusExpired {
				expired++
			}
		}
		if expired > 0 {
			return fmt.Errorf("%d expired profile(s)", expired)
		}
	}
	return nil
}

func printProvisionTable(cmd *cobra.Command, results []provision.Result) {
	if len(results) == 0 {
		cmd.Println("no provisioning profiles found")
		return
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "PROFILE\tTEAM\tEXPIRES\tSTATUS")

	var valid, expiring, expired, failed int
	for _, res := range results {
		if res.Error != "" {
			failed++
			fmt.Fprintf(w, "%s\t-\t-\terror: %s\n", filepath.Base(res.Path), res.Error)
			continue
		}
		switch res.Status {
		case provision.StatusValid:
			valid++
		case provision.StatusExpiring:
			expiring++
		case provision.StatusExpired:
			expired++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			res.Profile.Name,
			res.Profile.TeamName,
			res.Profile.Expiration.Format("2006-01-02"),
			res.Status,
		)
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d valid, %d expiring, %d expired", valid, expiring, expired)
	if failed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d unreadable", failed)
	}
	fmt.Fprintln(cmd.OutOrStdout())
}
