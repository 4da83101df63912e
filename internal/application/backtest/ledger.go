package backtest

// epsilon absorbs float drift in capital and share comparisons.
const epsilon = 1e-9

// Ledger tracks the shared capital pool while the timeline replays. Cash
// moves to allocated on entry and comes back (plus or minus realized P&L)
// on exit, so total equity only changes when a position realizes value.
type Ledger struct {
	cash      float64
	allocated float64
	starting  float64
}

// NewLedger creates a ledger holding the initial bankroll as free cash.
func NewLedger(initial float64) *Ledger {
	return &Ledger{cash: initial, starting: initial}
}

// Available returns the cash not reserved by open positions.
func (l *Ledger) Available() float64 { return l.cash }

// Allocated returns the capital reserved by open positions, at cost.
func (l *Ledger) Allocated() float64 { return l.allocated }

// Total returns current equity: cash plus allocated capital.
func (l *Ledger) Total() float64 { return l.cash + l.allocated }

// Starting returns the initial bankroll.
func (l *Ledger) Starting() float64 { return l.starting }

// Reserve moves amount from cash to allocated. It fails without mutating
// when cash is insufficient or the exposure cap would be exceeded. A
// failed reserve is a normal skip-entry outcome, not an error.
func (l *Ledger) Reserve(amount, maxExposurePct float64) bool {
	if amount <= 0 || amount > l.cash+epsilon {
		return false
	}
	if maxExposurePct > 0 {
		limit := l.Total() * maxExposurePct / 100
		if l.allocated+amount > limit+epsilon {
			return false
		}
	}
	l.cash -= amount
	if l.cash < 0 {
		l.cash = 0
	}
	l.allocated += amount
	return true
}

// Release settles a position slice: costBasis leaves allocated and the
// exit proceeds (gross minus exit fee) enter cash.
func (l *Ledger) Release(costBasis, proceeds float64) {
	l.allocated -= costBasis
	if l.allocated < 0 && l.allocated > -epsilon {
		l.allocated = 0
	}
	l.cash += proceeds
}
