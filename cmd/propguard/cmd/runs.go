package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/propguard/backtest"
	"github.com/rustyeddy/propguard/config"
	"github.com/rustyeddy/propguard/journal"
	"github.com/rustyeddy/propguard/market"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query journaled backtest runs",
	Long: `Query backtest runs stored in the journal.

Subcommands:
  list    - List every stored run
  show    - Print one run
  export  - Write CSV or Org exports of one run
  equity  - Print stored equity points as CSV

Examples:
  propguard runs list
  propguard runs show 01JH8Z...
  propguard runs export 01JH8Z... --org run.org
  propguard runs equity --from 2024-01-02 --to 2024-01-03`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored run",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export one stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

var runsEquityCmd = &cobra.Command{
	Use:   "equity [run-id]",
	Short: "Print stored equity points as CSV",
	Long: `Print the equity curve of one run, or with --from/--to the points of
every stored run inside [from, to). Times are ISO-8601; naive times are UTC.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRunsEquity,
}

var (
	runsFrom    string
	runsTo      string
	runsJournal string
	runsDBPath  string
	runsDir     string
	runsJSON    bool
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsEquityCmd)

	runsCmd.PersistentFlags().StringVar(&runsJournal, "journal", "", "sqlite or file (default from config)")
	runsCmd.PersistentFlags().StringVarP(&runsDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
	runsCmd.PersistentFlags().StringVar(&runsDir, "dir", "", "run document directory for the file journal (default from config)")
	runsShowCmd.Flags().BoolVar(&runsJSON, "json", false, "print the stored document as JSON")
	runsEquityCmd.Flags().StringVar(&runsFrom, "from", "", "start of the time range (inclusive)")
	runsEquityCmd.Flags().StringVar(&runsTo, "to", "", "end of the time range (exclusive)")

	runsExportCmd.Flags().StringVar(&btEquityCSV, "equity-csv", "", "write the equity curve CSV to this path")
	runsExportCmd.Flags().StringVar(&btWindowsCSV, "windows-csv", "", "write the KPI windows CSV to this path")
	runsExportCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode report to this path")
}

// openStore opens the configured journal; nil for type "none".
func openStore(jc config.JournalConfig) (journal.Store, error) {
	switch jc.Type {
	case "", "none":
		return nil, nil
	case "sqlite":
		j, err := journal.NewSQLite(jc.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	case "file":
		s, err := journal.NewFileStore(jc.Dir)
		if err != nil {
			return nil, fmt.Errorf("open run dir: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown journal type %q", jc.Type)
}

func openRunsStore() (journal.Store, error) {
	jc := appCfg.Journal
	if runsJournal != "" {
		jc.Type = runsJournal
	}
	if runsDBPath != "" {
		jc.DBPath = runsDBPath
	}
	if runsDir != "" {
		jc.Dir = runsDir
	}
	s, err := openStore(jc)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("no journal configured")
	}
	return s, nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	s, err := openRunsStore()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(contextOf(cmd))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tMODE\tPASSED\tFIRST BREACH\tFINAL EQUITY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%.2f\n",
			r.RunID, r.Created.Format(time.RFC3339), r.Mode, r.Passed, r.FirstBreach, r.FinalEquity)
	}
	return tw.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	s, err := openRunsStore()
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.GetRun(contextOf(cmd), args[0])
	if err != nil {
		return err
	}
	if runsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	backtest.PrintResult(cmd.OutOrStdout(), res)
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	if btEquityCSV == "" && btWindowsCSV == "" && btOrgPath == "" {
		return fmt.Errorf("nothing to export: give --equity-csv, --windows-csv or --org")
	}
	s, err := openRunsStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := contextOf(cmd)
	res, err := s.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	// The curve is read back through the equity index, the rest from the
	// stored document.
	snaps, err := s.ListEquity(ctx, res.ID)
	if err != nil {
		return fmt.Errorf("equity: %w", err)
	}
	if err := writeFile(btEquityCSV, func(w io.Writer) error { return journal.WriteSnapshotsCSV(w, snaps) }); err != nil {
		return fmt.Errorf("equity csv: %w", err)
	}
	if err := writeFile(btWindowsCSV, func(w io.Writer) error { return journal.WriteWindowsCSV(w, res) }); err != nil {
		return fmt.Errorf("windows csv: %w", err)
	}
	if btOrgPath != "" {
		if err := journal.WriteOrgFile(btOrgPath, res, time.Now()); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported run %s\n", res.ID)
	return nil
}

func runRunsEquity(cmd *cobra.Command, args []string) error {
	ranged := runsFrom != "" || runsTo != ""
	if len(args) == 0 && !ranged {
		return fmt.Errorf("give a run id or --from/--to")
	}
	if len(args) == 1 && ranged {
		return fmt.Errorf("a run id and --from/--to are exclusive")
	}

	s, err := openRunsStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var snaps []journal.EquitySnapshot
	if len(args) == 1 {
		snaps, err = s.ListEquity(contextOf(cmd), args[0])
	} else {
		var from, to time.Time
		if from, err = parseRangeTime(runsFrom, time.Unix(0, 0)); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		if to, err = parseRangeTime(runsTo, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		if !from.Before(to) {
			return fmt.Errorf("--from must be before --to")
		}
		snaps, err = s.ListEquityBetween(contextOf(cmd), from, to)
	}
	if err != nil {
		return err
	}
	return journal.WriteSnapshotsCSV(cmd.OutOrStdout(), snaps)
}

// parseRangeTime parses an ISO-8601 time (naive means UTC); empty yields def.
func parseRangeTime(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def.UTC(), nil
	}
	return market.ParseTimestamp(s)
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
