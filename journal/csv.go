package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	tradeHeader = []string{
		"trade_id", "symbol", "direction", "lots", "entry_price",
		"exit_price", "open_time", "close_time", "pnl", "reason", "confidence",
	}
	equityHeader = []string{"time", "balance", "equity", "drawdown"}
)

// CSVJournal writes trades and equity to two CSV files, flushing after
// every record so a crash loses at most the row being written. Safe for
// concurrent use; trade closes and equity snapshots arrive from
// different goroutines.
type CSVJournal struct {
	mu     sync.Mutex
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

// NewCSV creates (truncating) the two journal files and writes headers.
func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}

	j := &CSVJournal{
		trades: csv.NewWriter(tf),
		equity: csv.NewWriter(ef),
		tf:     tf,
		ef:     ef,
	}

	if err := j.writeFlushed(j.trades, tradeHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.writeFlushed(j.equity, equityHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) writeFlushed(w *csv.Writer, row []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := w.Write(row); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.writeFlushed(j.trades, []string{
		t.TradeID,
		t.Symbol,
		t.Direction,
		f(t.Lots),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		f(t.PnL),
		t.Reason,
		f(t.Confidence),
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.writeFlushed(j.equity, []string{
		e.Time.UTC().Format(time.RFC3339),
		f(e.Balance),
		f(e.Equity),
		f(e.Drawdown),
	})
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
