package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// positionBook is the trade lifecycle manager. It is the only code that
// creates or mutates positions once the replay starts: entries reserve
// capital and open, exit fills sell shares, release capital and append to
// the trade log. Position IDs are a sequential counter so identical
// inputs replay to identical reports.
type positionBook struct {
	ledger *Ledger
	fees   *domain.FeeConfig
	open   map[string][]*domain.Position
	trades []domain.TradeRecord
	nextID int
}

func newPositionBook(ledger *Ledger, fees *domain.FeeConfig) *positionBook {
	return &positionBook{
		ledger: ledger,
		fees:   fees,
		open:   make(map[string][]*domain.Position),
	}
}

// hasOpenPosition reports whether the market has a position in OPEN
// state. PARTIALLY_SOLD positions do not block a new entry.
func (b *positionBook) hasOpenPosition(marketID string) bool {
	for _, pos := range b.open[marketID] {
		if pos.Status == domain.PositionOpen {
			return true
		}
	}
	return false
}

// positionsFor returns a snapshot of the market's live positions in
// creation order, safe to iterate while fills remove entries.
func (b *positionBook) positionsFor(marketID string) []*domain.Position {
	live := b.open[marketID]
	if len(live) == 0 {
		return nil
	}
	out := make([]*domain.Position, len(live))
	copy(out, live)
	return out
}

// activeMarkets returns the ids of markets that still hold positions,
// sorted ascending.
func (b *positionBook) activeMarkets() []string {
	ids := make([]string, 0, len(b.open))
	for id, positions := range b.open {
		if len(positions) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// openPosition reserves amount plus the entry fee and creates an OPEN
// position. It returns nil when the ledger rejects the reservation,
// which is a silent skip, not an error.
func (b *positionBook) openPosition(market domain.MarketSnapshot, side domain.Side, price, amount, maxExposurePct float64, now time.Time) *domain.Position {
	entryFee := b.fees.Apply(amount)
	if !b.ledger.Reserve(amount+entryFee, maxExposurePct) {
		return nil
	}
	shares := amount / price
	b.nextID++
	pos := &domain.Position{
		ID:               b.nextID,
		MarketID:         market.ID,
		Question:         market.Question,
		Side:             side,
		EntryTime:        now,
		EntryPrice:       price,
		OriginalShares:   shares,
		RemainingShares:  shares,
		Status:           domain.PositionOpen,
		CapitalAllocated: amount + entryFee,
		EntryFee:         entryFee,
	}
	b.open[market.ID] = append(b.open[market.ID], pos)
	return pos
}

// applyExit executes one exit decision against a position and returns
// the settled trade record. The released cost basis is proportional to
// the shares sold, so the entry fee unwinds with the position. Selling
// more shares than remain is an engine bug and panics.
func (b *positionBook) applyExit(pos *domain.Position, d *exitDecision, now time.Time) domain.TradeRecord {
	shares := pos.RemainingShares
	if d.fraction < 1 {
		shares = pos.OriginalShares * d.fraction
	}
	if shares > pos.RemainingShares+epsilon {
		panic(fmt.Sprintf("backtest: position %d oversold: %.6f of %.6f remaining shares",
			pos.ID, shares, pos.RemainingShares))
	}
	if shares > pos.RemainingShares {
		shares = pos.RemainingShares
	}

	gross := d.price * shares
	exitFee := b.fees.Apply(gross)
	sliceFraction := shares / pos.OriginalShares
	costBasis := pos.CapitalAllocated * sliceFraction
	entryFeeSlice := pos.EntryFee * sliceFraction

	b.ledger.Release(costBasis, gross-exitFee)

	pos.AvgSellPrice = (pos.AvgSellPrice*pos.SoldShares + d.price*shares) / (pos.SoldShares + shares)
	pos.SoldShares += shares
	pos.RemainingShares -= shares

	switch d.reason {
	case domain.ExitPartialTier1:
		pos.Tier1Done = true
	case domain.ExitPartialTier2:
		pos.Tier2Done = true
	}

	final := pos.RemainingShares <= epsilon
	if final {
		pos.RemainingShares = 0
		pos.Status = domain.PositionClosed
		b.remove(pos)
	} else {
		pos.Status = domain.PositionPartiallySold
	}

	pnl := (d.price - pos.EntryPrice) * shares
	rec := domain.TradeRecord{
		PositionID: pos.ID,
		MarketID:   pos.MarketID,
		Question:   pos.Question,
		Side:       pos.Side,
		EntryTime:  pos.EntryTime,
		EntryPrice: pos.EntryPrice,
		ExitTime:   now,
		ExitPrice:  d.price,
		Shares:     shares,
		PnL:        pnl,
		PnLPct:     pnl / (pos.EntryPrice * shares) * 100,
		Fees:       entryFeeSlice + exitFee,
		ExitReason: d.reason,
		Final:      final,
	}
	b.trades = append(b.trades, rec)
	return rec
}

// remove drops a closed position from the live set.
func (b *positionBook) remove(pos *domain.Position) {
	live := b.open[pos.MarketID]
	for i, p := range live {
		if p.ID == pos.ID {
			b.open[pos.MarketID] = append(live[:i], live[i+1:]...)
			return
		}
	}
}

// marketsTraded counts the distinct markets that produced at least one
// trade record.
func (b *positionBook) marketsTraded() int {
	seen := make(map[string]bool, len(b.trades))
	for _, t := range b.trades {
		seen[t.MarketID] = true
	}
	return len(seen)
}
