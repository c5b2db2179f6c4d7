package risk

import "strings"

const (
	CodeDailyLoss        = "DAILY_LOSS_LIMIT"
	CodeTrailingDrawdown = "TRAILING_DRAWDOWN_LIMIT"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of one check. Allowed is false once any rule trips.
type Decision struct {
	Allowed    bool
	Violations []Violation

	Equity           float64
	DailyDrawdown    float64
	TrailingDrawdown float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason joins the violation messages, or returns "" when allowed.
func (d Decision) Reason() string {
	msgs := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		msgs[i] = v.Msg
	}
	return strings.Join(msgs, "; ")
}
