package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/journal"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from the SQLite database.

Subcommands:
  trade   - Get details of a specific trade by ID
  today   - List trades closed today
  day     - List trades closed on a specific day
  summary - Win/loss summary of trades closed on a day
  equity  - Print the equity curve of a symbol

Examples:
  aibot journal trade <trade-id>
  aibot journal today
  aibot journal day 2024-01-15
  aibot journal equity EURUSD`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary [YYYY-MM-DD]",
	Short: "Summarize trades closed on a day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalSummary,
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity <SYMBOL>",
	Short: "Print the recorded equity curve of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEquity,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalSummaryCmd)
	journalCmd.AddCommand(journalEquityCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
}

func openJournalDB() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.Journal.DBPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(cmd, time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(cmd, args[0])
}

func listDay(cmd *cobra.Command, day string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesClosedBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	day := time.Now().In(time.Local).Format("2006-01-02")
	if len(args) == 1 {
		day = args[0]
	}

	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	s, err := j.Summarize(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Day", "Trades", "Wins", "Losses", "Net PnL", "Profit Factor")
	if err := table.Append(
		day,
		fmt.Sprintf("%d", s.Trades),
		fmt.Sprintf("%d", s.Wins),
		fmt.Sprintf("%d", s.Losses),
		fmt.Sprintf("%.5f", s.NetPnL),
		fmt.Sprintf("%.2f", s.ProfitFactor),
	); err != nil {
		return err
	}
	return table.Render()
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	symbol := upper(args)[0]
	points, err := j.ListEquity(cmd.Context(), symbol, time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, p := range points {
		fmt.Fprintf(out, "%s  %.2f\n", p.Time.Format(time.RFC3339), p.Equity)
	}
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
