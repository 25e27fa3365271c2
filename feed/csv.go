package feed

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"fxscalp/market"
)

// CSV streams candles from a time,open,high,low,close[,volume] file.
// Files ending in .gz or .xz are decompressed transparently. Rows
// outside the optional [from, to) window are skipped.
type CSV struct {
	symbol   string
	f        *os.File
	gz       *gzip.Reader
	r        *csv.Reader
	from, to time.Time
	sawFirst bool
}

// NewCSV opens path and prepares to stream candles for symbol.
func NewCSV(path, symbol string) (*CSV, error) {
	return NewCSVRange(path, symbol, time.Time{}, time.Time{})
}

// NewCSVRange opens path restricted to bars with from <= t < to. A
// zero bound disables that side of the filter.
func NewCSVRange(path, symbol string, from, to time.Time) (*CSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var rd io.Reader = f
	var gz *gzip.Reader
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		rd = gz
	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		rd = xr
	}

	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1

	return &CSV{symbol: symbol, f: f, gz: gz, r: r, from: from, to: to}, nil
}

// Next returns the next in-range candle, or io.EOF at end of file.
func (s *CSV) Next() (market.Candle, error) {
	for {
		row, err := s.r.Read()
		if err == io.EOF {
			return market.Candle{}, io.EOF
		}
		if err != nil {
			return market.Candle{}, err
		}

		// Tolerate a header row in the first record.
		if !s.sawFirst {
			s.sawFirst = true
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		if len(row) < 5 {
			continue
		}

		c, err := parseCandleRow(row, s.symbol)
		if err != nil {
			return market.Candle{}, err
		}
		if !s.inRange(c.Time) {
			continue
		}
		return c, nil
	}
}

func (s *CSV) inRange(t time.Time) bool {
	if !s.from.IsZero() && t.Before(s.from) {
		return false
	}
	if !s.to.IsZero() && !t.Before(s.to) {
		return false
	}
	return true
}

// Close releases the underlying file.
func (s *CSV) Close() error {
	if s.gz != nil {
		s.gz.Close()
	}
	return s.f.Close()
}

// parseCandleRow parses time,open,high,low,close[,volume]. Timestamps
// may be RFC3339 or the bare "2006-01-02 15:04:05" export format,
// which is read as UTC.
func parseCandleRow(row []string, symbol string) (market.Candle, error) {
	ts, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return market.Candle{}, fmt.Errorf("bad time %q: %w", row[0], err)
	}

	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("bad value %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	c := market.Candle{
		Symbol: symbol,
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
	}
	if len(row) > 5 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64); err == nil {
			c.Volume = v
		}
	}
	return c, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
}
