package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ftilbury/aibot/journal"
	"github.com/ftilbury/aibot/market"
	"github.com/ftilbury/aibot/session"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [SYMBOL...]",
	Short: "Score signals on the hold-out part of each series",
	Long: `Evaluate splits every series in time order, keeps the last part as hold-out
data and runs the vectorized backtest over it: strategy log returns, cumulative
return, annualized Sharpe ratio and the accuracy of the signals as next-bar
direction predictions. No latency or slippage is applied.

Examples:
  aibot evaluate
  aibot evaluate EURUSD --train 0.7 --csv-dir ./results`,
	RunE: runEvaluate,
}

var (
	evalDataDir string
	evalTrain   float64
	evalCSVDir  string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evalDataDir, "data", "d", "", "directory of <SYMBOL>.csv[.xz] files (default from config)")
	evaluateCmd.Flags().Float64Var(&evalTrain, "train", 0, "override the train fraction (0 < f < 1)")
	evaluateCmd.Flags().StringVar(&evalCSVDir, "csv-dir", "", "write backtest_<symbol>.csv per symbol into this directory")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cmd.Flags().Changed("train") {
		cfg.Evaluation.TrainFraction = evalTrain
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dataDir := cfg.DataDir
	if evalDataDir != "" {
		dataDir = evalDataDir
	}
	symbols := cfg.Symbols
	if len(args) > 0 {
		symbols = upper(args)
	}

	var evals []session.Evaluation
	failed := 0
	for _, sym := range symbols {
		s, err := market.LoadSymbol(dataDir, sym)
		if err != nil {
			log.Error("load failed", zap.String("symbol", sym), zap.Error(err))
			failed++
			continue
		}

		ev, err := session.Evaluate(s, cfg.Evaluation)
		if err != nil {
			log.Error("evaluation failed", zap.String("symbol", sym), zap.Error(err))
			failed++
			continue
		}
		evals = append(evals, ev)

		if evalCSVDir != "" {
			path, err := journal.SaveBacktestCSV(evalCSVDir, sym, s.Times()[ev.Split:], ev.Backtest)
			if err != nil {
				log.Error("write backtest csv", zap.String("symbol", sym), zap.Error(err))
			} else {
				log.Info("backtest written", zap.String("path", path))
			}
		}
	}

	if err := printEvaluationTable(os.Stdout, evals); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(symbols))
	}
	return nil
}

func printEvaluationTable(w io.Writer, evals []session.Evaluation) error {
	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Test Bars", "Cum Return %", "Sharpe", "Long Bars", "Accuracy", "Precision", "Recall")

	for _, ev := range evals {
		if err := table.Append(
			ev.Symbol,
			fmt.Sprintf("%d", ev.TestBars),
			fmt.Sprintf("%.4f", 100*ev.Strategy.CumulativeReturn),
			fmt.Sprintf("%.2f", ev.Strategy.SharpeRatio),
			fmt.Sprintf("%d", ev.Strategy.NumTrades),
			fmt.Sprintf("%.4f", ev.Classification.Accuracy),
			fmt.Sprintf("%.4f", ev.Classification.Precision),
			fmt.Sprintf("%.4f", ev.Classification.Recall),
		); err != nil {
			return err
		}
	}
	return table.Render()
}
