package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	TradesHeader = []string{"symbol", "entry_time", "entry_price", "exit_time", "exit_price", "pnl"}
	EquityHeader = []string{"time", "equity"}
)

// TradesPath is the per-symbol trade ledger file inside dir.
func TradesPath(dir, symbol string) string {
	return filepath.Join(dir, "trades_"+symbol+".csv")
}

// EquityPath is the per-symbol equity curve file inside dir.
func EquityPath(dir, symbol string) string {
	return filepath.Join(dir, "equity_"+symbol+".csv")
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

// CSVJournal writes trades_<symbol>.csv and equity_<symbol>.csv into one
// directory. A file is created on the first record for its symbol, so a
// symbol without trades leaves no trade file behind. Safe for concurrent use.
type CSVJournal struct {
	dir string

	mu     sync.Mutex
	trades map[string]*csvFile
	equity map[string]*csvFile
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csv journal: %w", err)
	}
	return &CSVJournal{
		dir:    dir,
		trades: map[string]*csvFile{},
		equity: map[string]*csvFile{},
	}, nil
}

func (j *CSVJournal) Dir() string { return j.dir }

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cf, err := j.file(j.trades, TradesPath(j.dir, t.Symbol), TradesHeader)
	if err != nil {
		return err
	}
	return cf.write([]string{
		t.Symbol,
		t.EntryTime.Format(time.RFC3339Nano),
		num(t.EntryPrice),
		t.ExitTime.Format(time.RFC3339Nano),
		num(t.ExitPrice),
		num(t.PnL),
	})
}

func (j *CSVJournal) RecordEquity(e EquityPoint) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cf, err := j.file(j.equity, EquityPath(j.dir, e.Symbol), EquityHeader)
	if err != nil {
		return err
	}
	return cf.write([]string{
		e.Time.Format(time.RFC3339Nano),
		num(e.Equity),
	})
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var errs []error
	for _, files := range []map[string]*csvFile{j.trades, j.equity} {
		for path, cf := range files {
			cf.w.Flush()
			if err := cf.w.Error(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
			}
			if err := cf.f.Close(); err != nil {
				errs = append(errs, err)
			}
			delete(files, path)
		}
	}
	return errors.Join(errs...)
}

func (j *CSVJournal) file(files map[string]*csvFile, path string, header []string) (*csvFile, error) {
	if cf, ok := files[path]; ok {
		return cf, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	cf := &csvFile{f: f, w: csv.NewWriter(f)}
	if err := cf.write(header); err != nil {
		f.Close()
		return nil, err
	}
	files[path] = cf
	return cf, nil
}

func (cf *csvFile) write(row []string) error {
	if err := cf.w.Write(row); err != nil {
		return err
	}
	cf.w.Flush()
	return cf.w.Error()
}

// ReadTradesCSV parses a trade ledger written by CSVJournal.
func ReadTradesCSV(r io.Reader) ([]TradeRecord, error) {
	rows, err := readRows(r, TradesHeader)
	if err != nil {
		return nil, err
	}

	out := make([]TradeRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := parseTradeRow(row)
		if err != nil {
			return nil, fmt.Errorf("trades row %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseTradeRow(row []string) (TradeRecord, error) {
	rec := TradeRecord{Symbol: row[0], Volume: 1}

	var err error
	if rec.EntryTime, err = time.Parse(time.RFC3339Nano, row[1]); err != nil {
		return rec, err
	}
	if rec.EntryPrice, err = parseNum(row[2]); err != nil {
		return rec, err
	}
	if rec.ExitTime, err = time.Parse(time.RFC3339Nano, row[3]); err != nil {
		return rec, err
	}
	if rec.ExitPrice, err = parseNum(row[4]); err != nil {
		return rec, err
	}
	if rec.PnL, err = parseNum(row[5]); err != nil {
		return rec, err
	}
	return rec, nil
}

// LoadTradesCSV reads a trade ledger file.
func LoadTradesCSV(path string) ([]TradeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTradesCSV(f)
}

// ReadEquityCSV parses an equity curve written by CSVJournal.
func ReadEquityCSV(r io.Reader, symbol string) ([]EquityPoint, error) {
	rows, err := readRows(r, EquityHeader)
	if err != nil {
		return nil, err
	}

	out := make([]EquityPoint, 0, len(rows))
	for i, row := range rows {
		p := EquityPoint{Symbol: symbol}
		if p.Time, err = time.Parse(time.RFC3339Nano, row[0]); err == nil {
			p.Equity, err = parseNum(row[1])
		}
		if err != nil {
			return nil, fmt.Errorf("equity row %d: %w", i+2, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func readRows(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	for i, h := range header {
		if rows[0][i] != h {
			return nil, fmt.Errorf("unexpected header %v, want %v", rows[0], header)
		}
	}
	return rows[1:], nil
}

// num formats x with the fewest digits that parse back to the same float.
func num(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return decimal.NewFromFloat(x).String()
}

func parseNum(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return strconv.ParseFloat(s, 64)
	}
	f, _ := d.Float64()
	return f, nil
}
