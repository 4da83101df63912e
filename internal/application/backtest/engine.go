package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polyback/internal/domain"
	"github.com/alejandrodnm/polyback/internal/ports"
)

const (
	// maxCandidateMarkets caps how many markets one run will replay.
	maxCandidateMarkets = 500
	fetchWorkers        = 8
)

// Run executes one backtest: validate the strategy, fetch every
// candidate's candle history, merge the series into a single timeline
// and replay it against the entry and exit rules. The same config and
// candles always produce the same report; nothing here reads the clock
// or generates ids.
func Run(ctx context.Context, cfg domain.StrategyConfig, markets []domain.MarketSnapshot, source ports.CandleSource) (*domain.Report, error) {
	return RunWithWorkers(ctx, cfg, markets, source, fetchWorkers)
}

// RunWithWorkers is Run with the candle download concurrency exposed.
// Only the fetch phase runs in parallel; the replay itself is
// single-threaded either way.
func RunWithWorkers(ctx context.Context, cfg domain.StrategyConfig, markets []domain.MarketSnapshot, source ports.CandleSource, workers int) (*domain.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest.Run: %w", err)
	}

	if len(markets) > maxCandidateMarkets {
		slog.Warn("candidate markets capped",
			"candidates", len(markets),
			"cap", maxCandidateMarkets,
		)
		markets = markets[:maxCandidateMarkets]
	}

	slog.Info("backtest starting",
		"strategy", cfg.Name,
		"markets", len(markets),
		"from", cfg.StartDate.Format("2006-01-02"),
		"to", cfg.EndDate.Format("2006-01-02"),
		"bankroll", fmt.Sprintf("$%.2f", cfg.InitialBankroll),
	)

	series, err := fetchSeries(ctx, source, cfg, markets, workers)
	if err != nil {
		return nil, fmt.Errorf("backtest.Run: fetch candles: %w", err)
	}

	r := newRun(cfg, markets, series)
	report, err := r.replay(ctx)
	if err != nil {
		return nil, fmt.Errorf("backtest.Run: %w", err)
	}

	slog.Info("backtest finished",
		"trades", report.Metrics.TotalTrades,
		"pnl", fmt.Sprintf("$%.2f", report.Metrics.TotalPnL),
		"final", fmt.Sprintf("$%.2f", report.EndingCapital),
	)
	return report, nil
}

// run is the mutable state of one replay. Everything below this point is
// single-threaded: the shared ledger makes event order part of the
// result, so markets cannot be simulated in parallel.
type run struct {
	cfg      domain.StrategyConfig
	markets  map[string]domain.MarketSnapshot
	analyzed int

	ledger  *Ledger
	book    *positionBook
	metrics *metricsCollector
	state   tradingState

	// lastClose remembers each market's latest YES close for the
	// END_OF_RANGE settlement.
	lastClose map[string]float64

	streams [][]Event
}

func newRun(cfg domain.StrategyConfig, markets []domain.MarketSnapshot, series map[string][]domain.Candlestick) *run {
	ledger := NewLedger(cfg.InitialBankroll)
	r := &run{
		cfg:       cfg,
		markets:   make(map[string]domain.MarketSnapshot, len(markets)),
		analyzed:  len(markets),
		ledger:    ledger,
		book:      newPositionBook(ledger, cfg.Fees),
		metrics:   newMetricsCollector(ledger),
		lastClose: make(map[string]float64),
	}
	for _, m := range markets {
		r.markets[m.ID] = m
		events := BuildStream(m, series[m.ID], cfg.StartDate, cfg.EndDate)
		if len(events) == 0 {
			continue
		}
		r.streams = append(r.streams, events)
	}
	return r
}

// replay consumes the merged timeline event by event, then settles
// whatever is still open at the end of the range.
func (r *run) replay(ctx context.Context) (*domain.Report, error) {
	sched := NewScheduler(r.streams...)
	slog.Debug("replaying timeline",
		"events", sched.Remaining(),
		"markets_with_data", len(r.streams),
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, ok := sched.Next()
		if !ok {
			break
		}
		switch ev.Kind {
		case EventResolution:
			r.handleResolution(ev)
		case EventPrice:
			r.lastClose[ev.MarketID] = ev.Candle.Close
			r.evalExits(ev)
			r.evalEntry(ev)
		}
	}

	r.closeEndOfRange()
	return r.report(), nil
}

// handleResolution force-closes the market's positions at the terminal
// price when resolveOnExpiry is enabled. With the flag off, positions
// ride until the end of the range.
func (r *run) handleResolution(ev Event) {
	if !r.cfg.Exit.ResolveOnExpiry {
		return
	}
	for _, pos := range r.book.positionsFor(ev.MarketID) {
		final := domain.TerminalPrice(pos.Side, ev.Winner)
		d := &exitDecision{reason: domain.ExitResolution, price: final, fraction: 1}
		rec := r.book.applyExit(pos, d, ev.Time)
		r.metrics.ledgerPoint(ev.Time)
		r.metrics.trade(rec)
		slog.Debug("position resolved",
			"position", pos.ID,
			"market", domain.TruncateQuestion(pos.Question, pos.MarketID, 40),
			"winner", string(ev.Winner),
			"pnl", fmt.Sprintf("$%.2f", rec.PnL),
		)
	}
}

// evalExits walks the market's live positions in creation order and
// applies at most one exit decision each for this event.
func (r *run) evalExits(ev Event) {
	for _, pos := range r.book.positionsFor(ev.MarketID) {
		price := domain.SidePrice(pos.Side, ev.Candle.Close)
		if profit := pos.ProfitPct(price); profit > pos.PeakProfitPct {
			pos.PeakProfitPct = profit
		}
		d := evaluateExit(&r.cfg.Exit, pos, price, ev.Time)
		if d == nil {
			continue
		}
		rec := r.book.applyExit(pos, d, ev.Time)
		r.metrics.ledgerPoint(ev.Time)
		r.metrics.trade(rec)
		slog.Debug("exit filled",
			"position", pos.ID,
			"reason", string(rec.ExitReason),
			"price", fmt.Sprintf("%.4f", rec.ExitPrice),
			"shares", fmt.Sprintf("%.2f", rec.Shares),
			"pnl", fmt.Sprintf("$%.2f", rec.PnL),
		)
	}
}

// evalEntry attempts one entry on this price event. Every failed check
// is a silent skip; only a successful entry mutates state.
func (r *run) evalEntry(ev Event) {
	if r.book.hasOpenPosition(ev.MarketID) {
		return
	}
	side, ok := entrySide(&r.cfg, ev.Candle.Close, ev.Time, &r.state)
	if !ok {
		return
	}
	amount := positionSize(&r.cfg, r.ledger)
	if amount <= 0 {
		return
	}
	price := domain.SidePrice(side, ev.Candle.Close)
	pos := r.book.openPosition(r.markets[ev.MarketID], side, price, amount, r.cfg.Sizing.MaxExposurePct, ev.Time)
	if pos == nil {
		slog.Debug("entry skipped, reserve rejected",
			"market_id", ev.MarketID,
			"amount", fmt.Sprintf("$%.2f", amount),
			"available", fmt.Sprintf("$%.2f", r.ledger.Available()),
		)
		return
	}
	r.state.recordEntry(ev.Time)
	r.metrics.ledgerPoint(ev.Time)
	slog.Debug("position opened",
		"position", pos.ID,
		"market", domain.TruncateQuestion(pos.Question, pos.MarketID, 40),
		"side", string(side),
		"price", fmt.Sprintf("%.4f", price),
		"shares", fmt.Sprintf("%.2f", pos.OriginalShares),
	)
}

// closeEndOfRange settles every position still alive after the timeline
// drains, at each market's last known close, in market id order, stamped
// at the range end so equity timestamps stay nondecreasing.
func (r *run) closeEndOfRange() {
	for _, marketID := range r.book.activeMarkets() {
		for _, pos := range r.book.positionsFor(marketID) {
			price := domain.SidePrice(pos.Side, r.lastClose[marketID])
			d := &exitDecision{reason: domain.ExitEndOfRange, price: price, fraction: 1}
			rec := r.book.applyExit(pos, d, r.cfg.EndDate)
			r.metrics.ledgerPoint(r.cfg.EndDate)
			r.metrics.trade(rec)
			slog.Debug("position closed at range end",
				"position", pos.ID,
				"price", fmt.Sprintf("%.4f", price),
				"pnl", fmt.Sprintf("$%.2f", rec.PnL),
			)
		}
	}
}

func (r *run) report() *domain.Report {
	ending := r.ledger.Total()
	return &domain.Report{
		Strategy:        r.cfg,
		StartingCapital: r.ledger.Starting(),
		EndingCapital:   ending,
		MarketsAnalyzed: r.analyzed,
		MarketsTraded:   r.book.marketsTraded(),
		Trades:          r.book.trades,
		Metrics:         r.metrics.finalize(r.book.trades, r.ledger.Starting(), ending),
		EquityCurve:     r.metrics.equity,
		DrawdownCurve:   r.metrics.drawdowns,
		DailyPnL:        r.metrics.daily,
		Utilization:     r.metrics.utilization,
	}
}
