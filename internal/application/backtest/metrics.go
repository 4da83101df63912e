package backtest

import (
	"math"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// exitReasonOrder fixes the presentation order of the exit breakdown.
var exitReasonOrder = []domain.ExitReason{
	domain.ExitResolution,
	domain.ExitStopLoss,
	domain.ExitTakeProfit,
	domain.ExitMaxHold,
	domain.ExitTrailingStop,
	domain.ExitPartialTier1,
	domain.ExitPartialTier2,
	domain.ExitEndOfRange,
}

// dayEquity is the last observed equity value of one calendar day (UTC).
type dayEquity struct {
	day    time.Time
	equity float64
}

// metricsCollector folds ledger mutations and settled trades into the
// report aggregates, strictly in event order. Events arrive with
// nondecreasing timestamps, so the daily series append in order and no
// map iteration touches the output.
type metricsCollector struct {
	ledger *Ledger

	equity      []domain.EquityPoint
	drawdowns   []domain.DrawdownPoint
	utilization []domain.UtilizationPoint
	peak        float64

	days  []dayEquity
	daily []domain.DailyPnL
}

func newMetricsCollector(ledger *Ledger) *metricsCollector {
	return &metricsCollector{ledger: ledger, peak: ledger.Starting()}
}

// ledgerPoint records one equity curve sample after a ledger mutation,
// with its derived drawdown and capital utilization.
func (m *metricsCollector) ledgerPoint(t time.Time) {
	equity := m.ledger.Total()
	m.equity = append(m.equity, domain.EquityPoint{Timestamp: t, Equity: equity})

	if equity > m.peak {
		m.peak = equity
	}
	dd := m.peak - equity
	pct := 0.0
	if m.peak > 0 {
		pct = dd / m.peak * 100
	}
	m.drawdowns = append(m.drawdowns, domain.DrawdownPoint{Timestamp: t, Drawdown: dd, Pct: pct})

	util := 0.0
	if equity > 0 {
		util = m.ledger.Allocated() / equity * 100
	}
	m.utilization = append(m.utilization, domain.UtilizationPoint{Timestamp: t, Pct: util})

	day := t.UTC().Truncate(24 * time.Hour)
	if n := len(m.days); n > 0 && m.days[n-1].day.Equal(day) {
		m.days[n-1].equity = equity
	} else {
		m.days = append(m.days, dayEquity{day: day, equity: equity})
	}
}

// trade buckets one settled trade's net result into the daily P&L.
func (m *metricsCollector) trade(rec domain.TradeRecord) {
	day := rec.ExitTime.UTC().Truncate(24 * time.Hour)
	net := rec.PnL - rec.Fees
	if n := len(m.daily); n > 0 && m.daily[n-1].Date.Equal(day) {
		m.daily[n-1].PnL += net
	} else {
		m.daily = append(m.daily, domain.DailyPnL{Date: day, PnL: net})
	}
}

// finalize computes the aggregate metrics from the full trade log.
// Win/loss classification uses gross P&L per record: positive is a win,
// negative a loss, zero a break-even excluded from the win-rate
// denominator. Streaks run over the chronological close sequence and a
// break-even resets both.
func (m *metricsCollector) finalize(trades []domain.TradeRecord, starting, ending float64) domain.Metrics {
	var mt domain.Metrics
	mt.TotalTrades = len(trades)
	mt.SharpeRatio = m.sharpe()

	for _, d := range m.drawdowns {
		if d.Pct > mt.MaxDrawdown {
			mt.MaxDrawdown = d.Pct
		}
	}

	var (
		grossWins, grossLosses float64
		winStreak, lossStreak  int
		holdHours              float64
		finals                 int
		byReason               = map[domain.ExitReason]*domain.ExitCount{}
		bySide                 = map[domain.Side]*domain.SideStats{}
	)

	for i, rec := range trades {
		mt.TotalPnL += rec.PnL
		mt.TotalFees += rec.Fees

		switch {
		case rec.PnL > 0:
			mt.Wins++
			grossWins += rec.PnL
			winStreak++
			lossStreak = 0
		case rec.PnL < 0:
			mt.Losses++
			grossLosses += -rec.PnL
			lossStreak++
			winStreak = 0
		default:
			mt.BreakEvens++
			winStreak, lossStreak = 0, 0
		}
		if winStreak > mt.LongestWinStreak {
			mt.LongestWinStreak = winStreak
		}
		if lossStreak > mt.LongestLossStreak {
			mt.LongestLossStreak = lossStreak
		}

		if i == 0 || rec.PnL > mt.BestTrade {
			mt.BestTrade = rec.PnL
		}
		if i == 0 || rec.PnL < mt.WorstTrade {
			mt.WorstTrade = rec.PnL
		}

		if rec.Final {
			holdHours += rec.ExitTime.Sub(rec.EntryTime).Hours()
			finals++
		}

		rc, ok := byReason[rec.ExitReason]
		if !ok {
			rc = &domain.ExitCount{Reason: rec.ExitReason}
			byReason[rec.ExitReason] = rc
		}
		rc.Count++
		rc.PnL += rec.PnL

		ss, ok := bySide[rec.Side]
		if !ok {
			ss = &domain.SideStats{Side: rec.Side}
			bySide[rec.Side] = ss
		}
		ss.Trades++
		ss.PnL += rec.PnL
		if rec.PnL > 0 {
			ss.Wins++
		} else if rec.PnL < 0 {
			ss.Losses++
		}
	}

	if decided := mt.Wins + mt.Losses; decided > 0 {
		mt.WinRate = float64(mt.Wins) / float64(decided) * 100
	}
	if mt.Wins > 0 {
		mt.AvgWin = grossWins / float64(mt.Wins)
	}
	if mt.Losses > 0 {
		mt.AvgLoss = grossLosses / float64(mt.Losses)
	}
	if grossLosses > 0 {
		mt.ProfitFactor = grossWins / grossLosses
	}
	if finals > 0 {
		mt.AvgHoldHours = holdHours / float64(finals)
	}
	if starting > 0 {
		mt.TotalPnLPct = (ending - starting) / starting * 100
	}

	for _, side := range []domain.Side{domain.SideYes, domain.SideNo} {
		ss, ok := bySide[side]
		if !ok {
			continue
		}
		if decided := ss.Wins + ss.Losses; decided > 0 {
			ss.WinRate = float64(ss.Wins) / float64(decided) * 100
		}
		if ss.Trades > 0 {
			ss.AvgPnL = ss.PnL / float64(ss.Trades)
		}
		mt.BySide = append(mt.BySide, *ss)
	}

	for _, reason := range exitReasonOrder {
		if rc, ok := byReason[reason]; ok {
			mt.ExitBreakdown = append(mt.ExitBreakdown, *rc)
		}
	}

	return mt
}

// sharpe computes mean/stdev over the per-day equity returns. Fewer than
// two observed days, or a flat return series, yields 0.
func (m *metricsCollector) sharpe() float64 {
	if len(m.days) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(m.days)-1)
	for i := 1; i < len(m.days); i++ {
		prev := m.days[i-1].equity
		if prev <= 0 {
			return 0
		}
		returns = append(returns, (m.days[i].equity-prev)/prev)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}
	return mean / stdev
}
