package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyback/internal/domain"
)

var rulesT0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func openPos(entryPrice float64) *domain.Position {
	return &domain.Position{
		ID:              1,
		MarketID:        "0xa",
		Side:            domain.SideYes,
		EntryTime:       rulesT0,
		EntryPrice:      entryPrice,
		OriginalShares:  200,
		RemainingShares: 200,
		Status:          domain.PositionOpen,
	}
}

func TestEvaluateExit_NoConditionsHolds(t *testing.T) {
	exit := &domain.ExitConfig{}
	assert.Nil(t, evaluateExit(exit, openPos(0.50), 0.55, rulesT0.Add(time.Hour)))
}

func TestEvaluateExit_StopLossBeatsMaxHold(t *testing.T) {
	exit := &domain.ExitConfig{StopLossPct: 10, MaxHoldHours: 1}
	pos := openPos(0.50)

	// Ambas condiciones activas a la vez: gana el stop-loss por prioridad.
	d := evaluateExit(exit, pos, 0.44, rulesT0.Add(2*time.Hour))

	require.NotNil(t, d)
	assert.Equal(t, domain.ExitStopLoss, d.reason)
	assert.Equal(t, 0.44, d.price)
}

func TestEvaluateExit_TakeProfitBeatsMaxHold(t *testing.T) {
	exit := &domain.ExitConfig{TakeProfitPct: 10, MaxHoldHours: 1}
	pos := openPos(0.50)

	d := evaluateExit(exit, pos, 0.60, rulesT0.Add(2*time.Hour))

	require.NotNil(t, d)
	assert.Equal(t, domain.ExitTakeProfit, d.reason)
	assert.InDelta(t, 0.55, d.price, 1e-9)
}

func TestEvaluateExit_TrailingBeatsPartialTier(t *testing.T) {
	exit := &domain.ExitConfig{
		Trailing:     &domain.TrailingConfig{ActivationPct: 10, TrailPct: 5},
		PartialTier1: &domain.PartialExitConfig{TriggerPct: 10, SellPct: 50},
	}
	pos := openPos(0.50)
	pos.PeakProfitPct = 20 // pico en 0.60

	// 0.56 está bajo el nivel de trailing (0.57) y sobre el trigger del tier.
	d := evaluateExit(exit, pos, 0.56, rulesT0.Add(time.Hour))

	require.NotNil(t, d)
	assert.Equal(t, domain.ExitTrailingStop, d.reason)
	assert.InDelta(t, 0.57, d.price, 1e-9)
}

func TestEvaluateExit_TrailingNeedsActivation(t *testing.T) {
	exit := &domain.ExitConfig{
		Trailing: &domain.TrailingConfig{ActivationPct: 10, TrailPct: 5},
	}
	pos := openPos(0.50)
	pos.PeakProfitPct = 6 // nunca alcanzó el 10%

	assert.Nil(t, evaluateExit(exit, pos, 0.50, rulesT0.Add(time.Hour)))
}

func TestEvaluateExit_Tier1FiresOnce(t *testing.T) {
	exit := &domain.ExitConfig{
		PartialTier1: &domain.PartialExitConfig{TriggerPct: 20, SellPct: 50},
	}
	pos := openPos(0.50)
	pos.Tier1Done = true
	pos.Status = domain.PositionPartiallySold

	assert.Nil(t, evaluateExit(exit, pos, 0.65, rulesT0.Add(time.Hour)))
}

func TestEvaluateExit_Tier2NeedsTier1(t *testing.T) {
	exit := &domain.ExitConfig{
		PartialTier1: &domain.PartialExitConfig{TriggerPct: 20, SellPct: 50},
		PartialTier2: &domain.PartialExitConfig{TriggerPct: 40, SellPct: 50},
	}
	pos := openPos(0.50)

	// Salto directo sobre ambos triggers: solo dispara el tier 1.
	d := evaluateExit(exit, pos, 0.75, rulesT0.Add(time.Hour))

	require.NotNil(t, d)
	assert.Equal(t, domain.ExitPartialTier1, d.reason)
	assert.Equal(t, 0.5, d.fraction)
}

func TestEvaluateExit_PartialFractionOfOriginal(t *testing.T) {
	exit := &domain.ExitConfig{
		PartialTier1: &domain.PartialExitConfig{TriggerPct: 25, SellPct: 40},
	}
	pos := openPos(0.40)

	d := evaluateExit(exit, pos, 0.52, rulesT0.Add(time.Hour))

	require.NotNil(t, d)
	assert.Equal(t, 0.4, d.fraction)
	assert.InDelta(t, 0.50, d.price, 1e-9) // 0.40 * 1.25
}

// --- entrySide ---

func bandStrategy() domain.StrategyConfig {
	return domain.StrategyConfig{
		Entry: domain.EntryConfig{
			Side:    domain.EntryYes,
			YesBand: domain.PriceBand{Min: 0.40, Max: 0.60},
		},
	}
}

func TestEntrySide_InBand(t *testing.T) {
	cfg := bandStrategy()
	state := &tradingState{}

	side, ok := entrySide(&cfg, 0.45, rulesT0, state)

	assert.True(t, ok)
	assert.Equal(t, domain.SideYes, side)
}

func TestEntrySide_OutOfBand(t *testing.T) {
	cfg := bandStrategy()
	_, ok := entrySide(&cfg, 0.70, rulesT0, &tradingState{})
	assert.False(t, ok)
}

func TestEntrySide_BothChecksYesFirst(t *testing.T) {
	cfg := bandStrategy()
	cfg.Entry.Side = domain.EntryBoth
	cfg.Entry.NoBand = domain.PriceBand{Min: 0.40, Max: 0.60}

	// Con el YES a 0.45, ambos lados caen en banda (NO a 0.55): gana YES.
	side, ok := entrySide(&cfg, 0.45, rulesT0, &tradingState{})

	assert.True(t, ok)
	assert.Equal(t, domain.SideYes, side)
}

func TestEntrySide_BothFallsBackToNo(t *testing.T) {
	cfg := bandStrategy()
	cfg.Entry.Side = domain.EntryBoth
	cfg.Entry.YesBand = domain.PriceBand{Min: 0.05, Max: 0.20}
	cfg.Entry.NoBand = domain.PriceBand{Min: 0.40, Max: 0.60}

	side, ok := entrySide(&cfg, 0.45, rulesT0, &tradingState{})

	assert.True(t, ok)
	assert.Equal(t, domain.SideNo, side)
}

func TestEntrySide_TimeWindow(t *testing.T) {
	cfg := bandStrategy()
	cfg.Entry.EarliestEntry = rulesT0.Add(2 * time.Hour)
	cfg.Entry.LatestEntry = rulesT0.Add(4 * time.Hour)

	_, before := entrySide(&cfg, 0.45, rulesT0, &tradingState{})
	_, inside := entrySide(&cfg, 0.45, rulesT0.Add(3*time.Hour), &tradingState{})
	_, after := entrySide(&cfg, 0.45, rulesT0.Add(5*time.Hour), &tradingState{})

	assert.False(t, before)
	assert.True(t, inside)
	assert.False(t, after)
}

func TestEntrySide_MaxTradesPerDayResetsNextDay(t *testing.T) {
	cfg := bandStrategy()
	cfg.Entry.MaxTradesPerDay = 1

	state := &tradingState{}
	state.recordEntry(rulesT0)

	_, sameDay := entrySide(&cfg, 0.45, rulesT0.Add(5*time.Hour), state)
	_, nextDay := entrySide(&cfg, 0.45, rulesT0.AddDate(0, 0, 1), state)

	assert.False(t, sameDay)
	assert.True(t, nextDay)
}

func TestEntrySide_Cooldown(t *testing.T) {
	cfg := bandStrategy()
	cfg.Entry.CooldownHours = 3

	state := &tradingState{}
	state.recordEntry(rulesT0)

	_, tooSoon := entrySide(&cfg, 0.45, rulesT0.Add(2*time.Hour), state)
	_, allowed := entrySide(&cfg, 0.45, rulesT0.Add(3*time.Hour), state)

	assert.False(t, tooSoon)
	assert.True(t, allowed)
}

func TestEntrySide_UnsetBandAcceptsAnyPrice(t *testing.T) {
	cfg := bandStrategy()
	cfg.Entry.YesBand = domain.PriceBand{}

	_, ok := entrySide(&cfg, 0.97, rulesT0, &tradingState{})
	assert.True(t, ok)
}

func TestPositionSize_Fixed(t *testing.T) {
	cfg := domain.StrategyConfig{Sizing: domain.SizingConfig{Mode: domain.SizingFixed, Amount: 250}}
	assert.Equal(t, 250.0, positionSize(&cfg, NewLedger(10_000)))
}

func TestPositionSize_PercentageOfAvailable(t *testing.T) {
	cfg := domain.StrategyConfig{Sizing: domain.SizingConfig{Mode: domain.SizingPercentage, Percent: 10}}
	l := NewLedger(10_000)
	l.Reserve(1_000, 0)

	assert.InDelta(t, 900.0, positionSize(&cfg, l), 1e-9)
}
