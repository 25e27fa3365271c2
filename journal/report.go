package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"text/template"
	"time"
)

// Performance summarizes a session or backtest from its realized
// trades and equity curve. WinRate is a fraction; the percent fields
// are already scaled. ProfitFactor and Sharpe are zero when undefined
// (no losses, or too few trades) so the struct stays JSON-encodable.
type Performance struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	StartBalance float64   `json:"start_balance"`
	EndBalance   float64   `json:"end_balance"`

	Trades int `json:"trades"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	NetPnL         float64 `json:"net_pnl"`
	ReturnPct      float64 `json:"return_pct"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	MaxWinStreak   int     `json:"max_win_streak"`
	MaxLossStreak  int     `json:"max_loss_streak"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Sharpe         float64 `json:"sharpe"`
}

// Analyze computes the performance summary. Trades are ordered by
// close time before streaks are counted; breakeven trades count toward
// the total but neither wins nor losses.
func Analyze(trades []TradeRecord, equity []EquitySnapshot, startBalance float64) Performance {
	p := Performance{StartBalance: startBalance, Trades: len(trades)}

	ordered := make([]TradeRecord, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CloseTime.Before(ordered[j].CloseTime)
	})

	var grossWin, grossLoss float64 // grossLoss is a magnitude
	var winStreak, lossStreak int
	for _, t := range ordered {
		p.NetPnL += t.PnL
		switch {
		case t.PnL > 0:
			p.Wins++
			grossWin += t.PnL
			winStreak++
			lossStreak = 0
		case t.PnL < 0:
			p.Losses++
			grossLoss += -t.PnL
			lossStreak++
			winStreak = 0
		default:
			winStreak = 0
			lossStreak = 0
		}
		if winStreak > p.MaxWinStreak {
			p.MaxWinStreak = winStreak
		}
		if lossStreak > p.MaxLossStreak {
			p.MaxLossStreak = lossStreak
		}
	}

	if len(ordered) > 0 {
		p.Start = ordered[0].OpenTime
		p.End = ordered[len(ordered)-1].CloseTime
	}
	p.EndBalance = startBalance + p.NetPnL
	if startBalance > 0 {
		p.ReturnPct = 100 * p.NetPnL / startBalance
	}
	if p.Trades > 0 {
		p.WinRate = float64(p.Wins) / float64(p.Trades)
	}
	if grossLoss > 0 {
		p.ProfitFactor = grossWin / grossLoss
	}
	if p.Wins > 0 {
		p.AvgWin = grossWin / float64(p.Wins)
	}
	if p.Losses > 0 {
		p.AvgLoss = -grossLoss / float64(p.Losses)
	}

	p.MaxDrawdownPct = maxDrawdownPct(equity)
	p.Sharpe = sharpe(ordered)
	return p
}

// maxDrawdownPct walks the equity curve tracking the running peak.
func maxDrawdownPct(equity []EquitySnapshot) float64 {
	var peak, maxDD float64
	for _, e := range equity {
		if e.Equity > peak {
			peak = e.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - e.Equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return 100 * maxDD
}

// sharpe is the per-trade Sharpe ratio with zero risk-free rate: mean
// trade P&L over its sample standard deviation. Zero when fewer than
// two trades or when every trade returned the same amount.
func sharpe(trades []TradeRecord) float64 {
	if len(trades) < 2 {
		return 0
	}
	var sum float64
	for _, t := range trades {
		sum += t.PnL
	}
	mean := sum / float64(len(trades))

	var ss float64
	for _, t := range trades {
		d := t.PnL - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(trades)-1))
	if sd == 0 {
		return 0
	}
	return mean / sd
}

// WriteJSON writes the report to path, indented.
func (p Performance) WriteJSON(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

var reportTemplate = template.Must(template.New("report").Parse(`Performance
  Net P&L:        {{printf "%.2f" .NetPnL}} ({{printf "%.2f" .ReturnPct}}%)
  Balance:        {{printf "%.2f" .StartBalance}} -> {{printf "%.2f" .EndBalance}}
  Trades:         {{.Trades}} ({{.Wins}} wins / {{.Losses}} losses, win rate {{printf "%.1f" .WinRatePct}}%)
  Avg win/loss:   {{printf "%.2f" .AvgWin}} / {{printf "%.2f" .AvgLoss}}
  Profit factor:  {{printf "%.2f" .ProfitFactor}}
  Max streaks:    {{.MaxWinStreak}} wins, {{.MaxLossStreak}} losses
  Max drawdown:   {{printf "%.2f" .MaxDrawdownPct}}%
  Sharpe:         {{printf "%.2f" .Sharpe}}
`))

// WinRatePct is WinRate scaled for display.
func (p Performance) WinRatePct() float64 { return 100 * p.WinRate }

// String renders the console summary.
func (p Performance) String() string {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, p); err != nil {
		return fmt.Sprintf("report render failed: %v", err)
	}
	return buf.String()
}
