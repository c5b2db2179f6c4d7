package cmd

import (
	"fmt"
	"time"

	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/risk"
	"github.com/spf13/cobra"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Risk engine utilities",
}

var riskCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check an equity value against the daily loss and trailing drawdown limits",
	Long: `Check evaluates one equity value against the configured limits. --start and
--peak restore the day's starting equity and running peak; both default to the
initial capital.

Exits with an error when trading must halt.

Examples:
  aibot risk check --equity 97400
  aibot risk check --equity 98500 --start 100000 --peak 109000`,
	Args: cobra.NoArgs,
	RunE: runRiskCheck,
}

var (
	riskEquity float64
	riskStart  float64
	riskPeak   float64
	riskDate   string
)

func init() {
	rootCmd.AddCommand(riskCmd)
	riskCmd.AddCommand(riskCheckCmd)

	riskCheckCmd.Flags().Float64VarP(&riskEquity, "equity", "e", 0, "current equity (required)")
	riskCheckCmd.Flags().Float64Var(&riskStart, "start", 0, "equity at the start of the day")
	riskCheckCmd.Flags().Float64Var(&riskPeak, "peak", 0, "peak equity so far today")
	riskCheckCmd.Flags().StringVar(&riskDate, "date", "", "check date YYYY-MM-DD (default today)")
	riskCheckCmd.MarkFlagRequired("equity")
}

func runRiskCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	now := time.Now()
	if riskDate != "" {
		now, err = time.ParseInLocation("2006-01-02", riskDate, time.Local)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
	}

	d, err := checkRisk(cfg.RiskLimits(), now, riskEquity, riskStart, riskPeak)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Equity:            %.2f\n", d.Equity)
	fmt.Fprintf(out, "Daily drawdown:    %.4f%% (max %.2f%%)\n", 100*d.DailyDrawdown, 100*cfg.Risk.MaxDailyLoss)
	fmt.Fprintf(out, "Trailing drawdown: %.4f%% (max %.2f%%)\n", 100*d.TrailingDrawdown, 100*cfg.Risk.MaxTrailingDrawdown)
	if d.Allowed {
		fmt.Fprintln(out, "Status:            OK")
		return nil
	}
	fmt.Fprintln(out, "Status:            HALTED")
	return fmt.Errorf("trading halted: %s", d.Reason())
}

func checkRisk(limits risk.Limits, now time.Time, equity, start, peak float64) (risk.Decision, error) {
	if err := limits.Validate(); err != nil {
		return risk.Decision{}, err
	}
	if start == 0 {
		start = limits.InitialCapital
	}
	if peak == 0 {
		peak = start
	}
	if peak < start {
		return risk.Decision{}, fmt.Errorf("peak %.2f below start %.2f", peak, start)
	}

	e := risk.NewEngine(limits, now)
	e.Restore(risk.State{AnchorDate: risk.Day(now), StartEquity: start, PeakEquity: peak})
	return e.Evaluate(equity, now), nil
}
