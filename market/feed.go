package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// ErrBadRow marks a CSV row that could not be parsed.
var ErrBadRow = errors.New("bad row")

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadCSV reads a bar+signal file:
//
//	time,close,signal
//
// Files ending in .xz are decompressed on the fly. A single header row
// ("time,...") is allowed and blank rows are skipped. When symbol is empty it
// is derived from the file name (eurusd.csv.xz -> EURUSD).
func LoadCSV(path, symbol string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return Series{}, fmt.Errorf("xz %s: %w", path, err)
		}
		r = xr
	}

	if symbol == "" {
		symbol = SymbolFromPath(path)
	}
	return ReadCSV(r, symbol)
}

// ReadCSV parses bar+signal rows from r.
func ReadCSV(r io.Reader, symbol string) (Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	s := Series{Symbol: symbol}
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return s, nil
		}
		if err != nil {
			return Series{}, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}

		bar, sig, err := parseBarRow(row)
		if err != nil {
			return Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		s.Bars = append(s.Bars, bar)
		s.Signals = append(s.Signals, sig)
	}
}

func parseBarRow(row []string) (Bar, int, error) {
	if len(row) < 3 {
		return Bar{}, 0, fmt.Errorf("%w: need time,close,signal got %v", ErrBadRow, row)
	}

	t, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return Bar{}, 0, fmt.Errorf("%w: bad time %q", ErrBadRow, row[0])
	}

	c, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return Bar{}, 0, fmt.Errorf("%w: bad close %q", ErrBadRow, row[1])
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return Bar{}, 0, fmt.Errorf("%w: bad signal %q", ErrBadRow, row[2])
	}

	return Bar{Time: t, Close: c}, SignalFromFloat(v), nil
}

func parseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// SymbolFromPath turns "data/eurusd.csv.xz" into "EURUSD".
func SymbolFromPath(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return strings.ToUpper(base)
}

// LoadSymbol finds the bar file for symbol in dir. It tries the upper and
// lower case names with .csv and .csv.xz extensions.
func LoadSymbol(dir, symbol string) (Series, error) {
	var candidates []string
	for _, name := range []string{strings.ToUpper(symbol), strings.ToLower(symbol)} {
		candidates = append(candidates,
			filepath.Join(dir, name+".csv"),
			filepath.Join(dir, name+".csv.xz"),
		)
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return LoadCSV(p, symbol)
		}
	}
	return Series{}, fmt.Errorf("no bar file for %s in %s: %w", symbol, dir, os.ErrNotExist)
}
