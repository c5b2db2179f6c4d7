package backtest

import (
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/ftilbury/aibot/sim"
)

// Report collects everything printed for one symbol run.
type Report struct {
	RunID   string
	Created time.Time
	Symbol  string
	Dataset string

	Start time.Time
	End   time.Time
	Bars  int

	// Execution simulator
	Trades      int
	Wins        int
	Losses      int
	StartEquity float64
	EndEquity   float64
	NetPL       float64
	ReturnPct   float64
	MaxDDPct    float64

	// Risk engine
	RiskChecked bool
	RiskAllowed bool
	RiskReason  string

	// Vectorized evaluation on the held-out rows
	TestBars       int
	Strategy       StrategyStats
	Classification *ClassificationStats

	OrgPath string
	Notes   []string
}

// Summarize fills the execution fields of a report from a simulator result.
func Summarize(symbol string, res sim.Result, bars int, startEquity float64) Report {
	r := Report{
		Created:     time.Now(),
		Symbol:      symbol,
		Bars:        bars,
		Trades:      len(res.Trades),
		StartEquity: startEquity,
		EndEquity:   res.FinalEquity,
		NetPL:       res.FinalEquity - startEquity,
	}

	for _, t := range res.Trades {
		if t.PnL() > 0 {
			r.Wins++
		} else {
			r.Losses++
		}
	}
	if startEquity != 0 {
		r.ReturnPct = 100 * r.NetPL / startEquity
	}

	curve := make([]float64, len(res.Equity))
	for i, p := range res.Equity {
		curve[i] = p.Equity
	}
	r.MaxDDPct = 100 * MaxDrawdown(curve)

	if len(res.Equity) > 0 {
		r.Start = res.Equity[0].Time
		r.End = res.Equity[len(res.Equity)-1].Time
	}
	return r
}

// WinRate is wins over trades in percent.
func (r Report) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return 100 * float64(r.Wins) / float64(r.Trades)
}

func PrintReport(w io.Writer, r Report) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Simulation Result: %s\n", r.Symbol)
	fmt.Fprintln(w, "==================================================")

	if r.RunID != "" {
		fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	}
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	if r.Dataset != "" {
		fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Bars:          %d\n", r.Bars)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate())

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Equity:  %.2f\n", r.StartEquity)
	fmt.Fprintf(w, "End Equity:    %.2f\n", r.EndEquity)
	fmt.Fprintf(w, "Net P/L:       %.5f\n", r.NetPL)
	fmt.Fprintf(w, "Return:        %.4f%%\n", r.ReturnPct)
	if r.MaxDDPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.4f%%\n", r.MaxDDPct)
	}

	if r.RiskChecked {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Risk")
		fmt.Fprintln(w, "--------------------------------------------------")
		if r.RiskAllowed {
			fmt.Fprintln(w, "Status:        OK")
		} else {
			fmt.Fprintln(w, "Status:        HALTED")
			fmt.Fprintf(w, "Reason:        %s\n", r.RiskReason)
		}
	}

	if r.TestBars > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Hold-out Evaluation")
		fmt.Fprintln(w, "--------------------------------------------------")
		fmt.Fprintf(w, "Test Bars:     %d\n", r.TestBars)
		fmt.Fprintf(w, "Cum Return:    %.4f%%\n", 100*r.Strategy.CumulativeReturn)
		fmt.Fprintf(w, "Sharpe:        %.2f\n", r.Strategy.SharpeRatio)
		fmt.Fprintf(w, "Long Bars:     %d\n", r.Strategy.NumTrades)
		if c := r.Classification; c != nil {
			fmt.Fprintf(w, "Accuracy:      %.4f\n", c.Accuracy)
			fmt.Fprintf(w, "Precision:     %.4f\n", c.Precision)
			fmt.Fprintf(w, "Recall:        %.4f\n", c.Recall)
		}
	}

	if r.OrgPath != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}

var reportOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var reportOrgTmpl = template.Must(template.New("report").Funcs(reportOrgFuncs).Parse(ReportOrgTemplate))

// WriteOrg renders r as an org-mode heading.
func (r Report) WriteOrg(w io.Writer) error {
	return reportOrgTmpl.Execute(w, r)
}

// WriteOrgFile writes the org rendering to r.OrgPath.
func (r Report) WriteOrgFile() error {
	if r.OrgPath == "" {
		return fmt.Errorf("write org: no path for %s", r.Symbol)
	}
	f, err := os.Create(r.OrgPath)
	if err != nil {
		return err
	}
	if err := r.WriteOrg(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

const ReportOrgTemplate = `* SIMULATION: {{.Symbol}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:SYMBOL:      {{.Symbol}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_EQ:    {{printf "%.2f" .StartEquity}}
:END_EQ:      {{printf "%.2f" .EndEquity}}
:NET_PL:      {{printf "%.5f" .NetPL}}
:RETURN_PCT:  {{printf "%.4f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.4f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{printf "%.5f" .NetPL}}*
- Return:           *{{printf "%.4f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.4f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*
{{- if .RiskChecked }}
- Risk:             *{{if .RiskAllowed}}OK{{else}}HALTED: {{.RiskReason}}{{end}}*
{{- end }}
{{- if gt .TestBars 0 }}

** Hold-out Evaluation
| Metric            | Value |
|-------------------+-------|
| Test bars         | {{.TestBars}} |
| Cumulative return | {{printf "%.4f" (mul100 .Strategy.CumulativeReturn)}}% |
| Sharpe            | {{printf "%.2f" .Strategy.SharpeRatio}} |
| Long bars         | {{.Strategy.NumTrades}} |
{{- with .Classification }}
| Accuracy          | {{printf "%.4f" .Accuracy}} |
| Precision         | {{printf "%.4f" .Precision}} |
| Recall            | {{printf "%.4f" .Recall}} |
{{- end }}
{{- end }}

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
