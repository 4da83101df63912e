package domain

import "time"

// PositionStatus es el estado del ciclo de vida de una posición.
type PositionStatus string

const (
	PositionOpen          PositionStatus = "OPEN"
	PositionPartiallySold PositionStatus = "PARTIALLY_SOLD"
	PositionClosed        PositionStatus = "CLOSED"
)

// ExitReason indica qué condición cerró (total o parcialmente) una posición.
type ExitReason string

const (
	ExitTakeProfit   ExitReason = "TAKE_PROFIT"
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitResolution   ExitReason = "RESOLUTION"
	ExitMaxHold      ExitReason = "MAX_HOLD_TIME"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitPartialTier1 ExitReason = "PARTIAL_TIER_1"
	ExitPartialTier2 ExitReason = "PARTIAL_TIER_2"
	ExitEndOfRange   ExitReason = "END_OF_RANGE"
)

// Position es una posición abierta durante la simulación.
type Position struct {
	ID              int
	MarketID        string
	Question        string
	Side            Side
	EntryTime       time.Time
	EntryPrice      float64
	OriginalShares  float64
	RemainingShares float64
	SoldShares      float64
	AvgSellPrice    float64
	Status          PositionStatus
	// PeakProfitPct es el máximo beneficio no realizado visto desde la
	// entrada, en %. Alimenta el trailing stop.
	PeakProfitPct float64
	// CapitalAllocated es el coste total reservado en el ledger
	// (notional + comisión de entrada).
	CapitalAllocated float64
	EntryFee         float64
	Tier1Done        bool
	Tier2Done        bool
}

// ProfitPct devuelve el beneficio no realizado en % frente al precio de
// entrada.
func (p *Position) ProfitPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// HoldHours devuelve las horas transcurridas desde la entrada.
func (p *Position) HoldHours(now time.Time) float64 {
	return now.Sub(p.EntryTime).Hours()
}

// TradeRecord es un fill de salida ya liquidado. Una posición con ventas
// parciales genera varios records, el último con Final == true.
type TradeRecord struct {
	PositionID int
	MarketID   string
	Question   string
	Side       Side
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	Shares     float64
	PnL        float64
	PnLPct     float64
	Fees       float64
	ExitReason ExitReason
	Final      bool
}
