package backtest

import (
	"testing"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookMarket() domain.MarketSnapshot {
	return domain.MarketSnapshot{ID: "0xbook", Question: "Book test?"}
}

func bookTime() time.Time {
	return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
}

func TestPositionBook_OpenReservesCapitalWithEntryFee(t *testing.T) {
	ledger := NewLedger(10_000)
	fees := &domain.FeeConfig{Mode: domain.FeeFlat, Value: 2}
	book := newPositionBook(ledger, fees)

	pos := book.openPosition(bookMarket(), domain.SideYes, 0.50, 1_000, 0, bookTime())

	require.NotNil(t, pos)
	assert.Equal(t, 1, pos.ID)
	assert.Equal(t, domain.PositionOpen, pos.Status)
	assert.InDelta(t, 2_000, pos.OriginalShares, 1e-9)
	assert.InDelta(t, 1_002, pos.CapitalAllocated, 1e-9)
	assert.InDelta(t, 2, pos.EntryFee, 1e-9)
	assert.InDelta(t, 8_998, ledger.Available(), 1e-9)
	assert.InDelta(t, 1_002, ledger.Allocated(), 1e-9)
	assert.True(t, book.hasOpenPosition("0xbook"))
}

func TestPositionBook_OpenSkipsWhenLedgerRejects(t *testing.T) {
	ledger := NewLedger(100)
	book := newPositionBook(ledger, nil)

	pos := book.openPosition(bookMarket(), domain.SideYes, 0.50, 500, 0, bookTime())

	assert.Nil(t, pos)
	assert.False(t, book.hasOpenPosition("0xbook"))
	assert.Equal(t, 100.0, ledger.Available())
}

func TestPositionBook_PartialExitReleasesProportionalSlice(t *testing.T) {
	ledger := NewLedger(10_000)
	fees := &domain.FeeConfig{Mode: domain.FeeBps, Value: 100} // 1%
	book := newPositionBook(ledger, fees)

	entry := bookTime()
	pos := book.openPosition(bookMarket(), domain.SideYes, 0.50, 1_000, 0, entry)
	require.NotNil(t, pos)

	rec := book.applyExit(pos, &exitDecision{
		reason:   domain.ExitPartialTier1,
		price:    0.60,
		fraction: 0.5,
	}, entry.Add(2*time.Hour))

	assert.Equal(t, domain.PositionPartiallySold, pos.Status)
	assert.True(t, pos.Tier1Done)
	assert.False(t, rec.Final)
	assert.InDelta(t, 1_000, rec.Shares, 1e-9)
	assert.InDelta(t, 100, rec.PnL, 1e-9)
	assert.InDelta(t, 20, rec.PnLPct, 1e-9)

	// La mitad del coste (505) sale de allocated; entra el bruto menos la
	// comisión de salida (600 - 6). Las fees del record son la comisión de
	// salida más la mitad proporcional de la de entrada.
	assert.InDelta(t, 11, rec.Fees, 1e-9)
	assert.InDelta(t, 505, ledger.Allocated(), 1e-9)
	assert.InDelta(t, 9_584, ledger.Available(), 1e-9)
	assert.InDelta(t, 10_000+rec.PnL-rec.Fees, ledger.Total(), 1e-9)
}

func TestPositionBook_FullCloseAfterPartialLeavesNoResidue(t *testing.T) {
	ledger := NewLedger(10_000)
	fees := &domain.FeeConfig{Mode: domain.FeeBps, Value: 100}
	book := newPositionBook(ledger, fees)

	entry := bookTime()
	pos := book.openPosition(bookMarket(), domain.SideYes, 0.50, 1_000, 0, entry)
	require.NotNil(t, pos)

	first := book.applyExit(pos, &exitDecision{reason: domain.ExitPartialTier1, price: 0.60, fraction: 0.5}, entry.Add(2*time.Hour))
	last := book.applyExit(pos, &exitDecision{reason: domain.ExitTakeProfit, price: 0.70, fraction: 1}, entry.Add(4*time.Hour))

	assert.False(t, first.Final)
	assert.True(t, last.Final)
	assert.Equal(t, domain.PositionClosed, pos.Status)
	assert.Zero(t, pos.RemainingShares)
	assert.InDelta(t, 0.65, pos.AvgSellPrice, 1e-9)
	assert.False(t, book.hasOpenPosition("0xbook"))
	assert.Empty(t, book.activeMarkets())

	// Los dos slices devuelven exactamente el capital asignado
	assert.InDelta(t, 0, ledger.Allocated(), 1e-9)
	totalPnL := first.PnL + last.PnL
	totalFees := first.Fees + last.Fees
	assert.InDelta(t, 10_000+totalPnL-totalFees, ledger.Total(), 1e-9)
}

func TestPositionBook_OversellPanics(t *testing.T) {
	ledger := NewLedger(10_000)
	book := newPositionBook(ledger, nil)

	entry := bookTime()
	pos := book.openPosition(bookMarket(), domain.SideYes, 0.50, 1_000, 0, entry)
	require.NotNil(t, pos)

	book.applyExit(pos, &exitDecision{reason: domain.ExitPartialTier1, price: 0.60, fraction: 0.8}, entry.Add(time.Hour))

	// Vender otro 80% del original supera lo que queda
	assert.Panics(t, func() {
		book.applyExit(pos, &exitDecision{reason: domain.ExitPartialTier1, price: 0.65, fraction: 0.8}, entry.Add(2*time.Hour))
	})
}

func TestPositionBook_MarketsTradedCountsDistinctMarkets(t *testing.T) {
	ledger := NewLedger(10_000)
	book := newPositionBook(ledger, nil)

	entry := bookTime()
	a := book.openPosition(domain.MarketSnapshot{ID: "0xaaa"}, domain.SideYes, 0.50, 500, 0, entry)
	b := book.openPosition(domain.MarketSnapshot{ID: "0xbbb"}, domain.SideNo, 0.40, 500, 0, entry)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, 2, b.ID, "los ids son secuenciales")
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, book.activeMarkets())

	// Dos slices del mismo mercado cuentan como un solo mercado tradeado
	book.applyExit(a, &exitDecision{reason: domain.ExitPartialTier1, price: 0.60, fraction: 0.5}, entry.Add(time.Hour))
	book.applyExit(a, &exitDecision{reason: domain.ExitPartialTier2, price: 0.65, fraction: 1}, entry.Add(2*time.Hour))

	assert.Equal(t, 1, book.marketsTraded())
	assert.Equal(t, []string{"0xbbb"}, book.activeMarkets())
	assert.Len(t, book.trades, 2)
}
