package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftilbury/aibot/backtest"
	"github.com/ftilbury/aibot/session"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [SYMBOL...]",
	Short: "Simulate bar+signal files and check risk limits",
	Long: `Simulate reads one bar+signal file per symbol (time,close,signal; optionally
.csv.xz compressed) from the data directory, converts the signals into trades
with the configured latency and slippage, checks the risk limits on the final
capital and journals trades and equity.

Symbols default to the configured list. Symbols run in parallel and a failing
symbol does not stop the others.

Examples:
  aibot simulate
  aibot simulate EURUSD GBPUSD --data ./data --slippage 0.00002
  aibot simulate --latency 2 --latency-mode zero
  aibot simulate --org-dir ./reports -v`,
	RunE: runSimulate,
}

var (
	simDataDir  string
	simParallel int
	simSlippage float64
	simLatency  int
	simMode     string
	simOrgDir   string
	simVerbose  bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simDataDir, "data", "d", "", "directory of <SYMBOL>.csv[.xz] files (default from config)")
	simulateCmd.Flags().IntVarP(&simParallel, "parallel", "p", 0, "max symbols simulated at once (0 = all)")
	simulateCmd.Flags().Float64Var(&simSlippage, "slippage", 0, "override execution slippage in price units")
	simulateCmd.Flags().IntVar(&simLatency, "latency", 0, "override execution latency in bars")
	simulateCmd.Flags().StringVar(&simMode, "latency-mode", "", "override latency mode: wrap or zero")
	simulateCmd.Flags().StringVar(&simOrgDir, "org-dir", "", "write an org-mode report per symbol into this directory")
	simulateCmd.Flags().BoolVarP(&simVerbose, "verbose", "v", false, "print the full report of every symbol")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cmd.Flags().Changed("slippage") {
		cfg.Execution.Slippage = simSlippage
	}
	if cmd.Flags().Changed("latency") {
		cfg.Execution.Latency = simLatency
	}
	if cmd.Flags().Changed("latency-mode") {
		cfg.Execution.LatencyMode = simMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dataDir := cfg.DataDir
	if simDataDir != "" {
		dataDir = simDataDir
	}
	symbols := cfg.Symbols
	if len(args) > 0 {
		symbols = upper(args)
	}

	j, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	n, err := newNotifier(cfg.Alert, log)
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}

	runner := session.NewRunner(cfg, j, n, log)
	runner.Parallel = simParallel
	reports := runner.RunBatch(ctx, symbols, session.DirLoader(dataDir))

	if simOrgDir != "" {
		if err := ensureDir(simOrgDir); err != nil {
			return err
		}
	}

	failed := 0
	for i := range reports {
		rep := &reports[i]
		if rep.Err != nil {
			failed++
			continue
		}
		rep.Summary.Dataset = dataDir
		if simOrgDir != "" {
			rep.Summary.OrgPath = filepath.Join(simOrgDir, fmt.Sprintf("simulation_%s.org", strings.ToLower(rep.Symbol)))
			if err := rep.Summary.WriteOrgFile(); err != nil {
				log.Error("write org report", zap.String("symbol", rep.Symbol), zap.Error(err))
			}
		}
		if simVerbose {
			backtest.PrintReport(os.Stdout, rep.Summary)
		}
	}

	if err := printSimulationTable(os.Stdout, reports); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(reports))
	}
	return nil
}

func printSimulationTable(w io.Writer, reports []session.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Bars", "Trades", "Win %", "Net P/L", "End Equity", "Max DD %", "Risk")

	for _, rep := range reports {
		if rep.Err != nil {
			if err := table.Append(rep.Symbol, "-", "-", "-", "-", "-", "-", "ERROR: "+rep.Err.Error()); err != nil {
				return err
			}
			continue
		}
		s := rep.Summary
		risk := "OK"
		if rep.Halted() {
			risk = "HALTED"
		}
		if err := table.Append(
			rep.Symbol,
			fmt.Sprintf("%d", s.Bars),
			fmt.Sprintf("%d", s.Trades),
			fmt.Sprintf("%.1f", s.WinRate()),
			fmt.Sprintf("%.5f", s.NetPL),
			fmt.Sprintf("%.2f", s.EndEquity),
			fmt.Sprintf("%.4f", s.MaxDDPct),
			risk,
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
