package backtest

import (
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// tradingState carries the strategy-wide frequency limits across the
// replay: the per-day trade counter and the cooldown clock.
type tradingState struct {
	lastEntry   time.Time
	hasEntered  bool
	tradesDay   time.Time
	tradesToday int
}

func (s *tradingState) recordEntry(t time.Time) {
	day := t.UTC().Truncate(24 * time.Hour)
	if !day.Equal(s.tradesDay) {
		s.tradesDay = day
		s.tradesToday = 0
	}
	s.tradesToday++
	s.lastEntry = t
	s.hasEntered = true
}

func (s *tradingState) tradesOn(t time.Time) int {
	if !t.UTC().Truncate(24 * time.Hour).Equal(s.tradesDay) {
		return 0
	}
	return s.tradesToday
}

// entrySide decides whether the strategy enters on this price event, and
// on which side. With entryType BOTH the YES band is checked first; at
// most one entry per market per event. An unset band accepts any price.
func entrySide(cfg *domain.StrategyConfig, yesClose float64, now time.Time, state *tradingState) (domain.Side, bool) {
	e := &cfg.Entry

	if !e.EarliestEntry.IsZero() && now.Before(e.EarliestEntry) {
		return "", false
	}
	if !e.LatestEntry.IsZero() && now.After(e.LatestEntry) {
		return "", false
	}
	if e.MaxTradesPerDay > 0 && state.tradesOn(now) >= e.MaxTradesPerDay {
		return "", false
	}
	if e.CooldownHours > 0 && state.hasEntered &&
		now.Sub(state.lastEntry).Hours() < e.CooldownHours {
		return "", false
	}

	for _, side := range []domain.Side{domain.SideYes, domain.SideNo} {
		if !e.AllowsSide(side) {
			continue
		}
		price := domain.SidePrice(side, yesClose)
		if price <= 0 {
			continue
		}
		if band := e.BandFor(side); band.Set() && !band.Contains(price) {
			continue
		}
		return side, true
	}
	return "", false
}

// positionSize computes the entry notional for the configured sizing
// mode. PERCENTAGE reads the available bankroll at event time, which
// makes sizing path-dependent.
func positionSize(cfg *domain.StrategyConfig, ledger *Ledger) float64 {
	if cfg.Sizing.Mode == domain.SizingPercentage {
		return ledger.Available() * cfg.Sizing.Percent / 100
	}
	return cfg.Sizing.Amount
}

// exitDecision is the single action the evaluator may emit for one
// position on one event. fraction is the share of ORIGINAL shares to
// sell; 1 closes whatever remains.
type exitDecision struct {
	reason   domain.ExitReason
	price    float64
	fraction float64
}

// evaluateExit checks a position's exit conditions against a price event
// in fixed priority order: stop-loss, take-profit, max-hold, trailing
// stop, partial tier 1, partial tier 2. The first match wins for this
// event; nil means hold. Resolution closes are handled by the replay loop
// before this runs, keeping the whole ordering deterministic.
//
// price is the side-adjusted close. The caller must update the position's
// peak for this event first. Profit-side exits fill at their configured
// level; loss and time exits fill at the close.
func evaluateExit(exit *domain.ExitConfig, pos *domain.Position, price float64, now time.Time) *exitDecision {
	profit := pos.ProfitPct(price)

	if exit.StopLossPct > 0 && profit <= -exit.StopLossPct {
		return &exitDecision{reason: domain.ExitStopLoss, price: price, fraction: 1}
	}
	if exit.TakeProfitPct > 0 && profit >= exit.TakeProfitPct {
		fill := pos.EntryPrice * (1 + exit.TakeProfitPct/100)
		return &exitDecision{reason: domain.ExitTakeProfit, price: fill, fraction: 1}
	}
	if exit.MaxHoldHours > 0 && pos.HoldHours(now) >= exit.MaxHoldHours {
		return &exitDecision{reason: domain.ExitMaxHold, price: price, fraction: 1}
	}
	if t := exit.Trailing; t != nil && pos.PeakProfitPct >= t.ActivationPct {
		peakPrice := pos.EntryPrice * (1 + pos.PeakProfitPct/100)
		level := peakPrice * (1 - t.TrailPct/100)
		if price <= level {
			return &exitDecision{reason: domain.ExitTrailingStop, price: level, fraction: 1}
		}
	}
	if p1 := exit.PartialTier1; p1 != nil && !pos.Tier1Done && profit >= p1.TriggerPct {
		fill := pos.EntryPrice * (1 + p1.TriggerPct/100)
		return &exitDecision{reason: domain.ExitPartialTier1, price: fill, fraction: p1.SellPct / 100}
	}
	if p2 := exit.PartialTier2; p2 != nil && pos.Tier1Done && !pos.Tier2Done && profit >= p2.TriggerPct {
		fill := pos.EntryPrice * (1 + p2.TriggerPct/100)
		return &exitDecision{reason: domain.ExitPartialTier2, price: fill, fraction: 1}
	}
	return nil
}
