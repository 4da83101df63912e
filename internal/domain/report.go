package domain

import "time"

// EquityPoint es un punto de la curva de equity: el valor total de la
// cartera (cash + capital asignado) tras una mutación del ledger.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// DrawdownPoint es la caída respecto al máximo de equity visto hasta ese
// momento, en valor absoluto y en % del pico.
type DrawdownPoint struct {
	Timestamp time.Time
	Drawdown  float64
	Pct       float64
}

// DailyPnL es el P&L realizado agregado por día natural (UTC).
type DailyPnL struct {
	Date time.Time
	PnL  float64
}

// UtilizationPoint es el % del equity total asignado a posiciones abiertas.
type UtilizationPoint struct {
	Timestamp time.Time
	Pct       float64
}

// SideStats son las métricas de una partición por lado (YES o NO).
type SideStats struct {
	Side    Side
	Trades  int
	Wins    int
	Losses  int
	WinRate float64
	PnL     float64
	AvgPnL  float64
}

// Metrics son los agregados finales de un backtest.
type Metrics struct {
	TotalTrades       int
	Wins              int
	Losses            int
	BreakEvens        int
	WinRate           float64
	TotalPnL          float64
	TotalPnLPct       float64
	TotalFees         float64
	AvgWin            float64
	AvgLoss           float64
	ProfitFactor      float64
	MaxDrawdown       float64
	SharpeRatio       float64
	BestTrade         float64
	WorstTrade        float64
	LongestWinStreak  int
	LongestLossStreak int
	AvgHoldHours      float64
	BySide            []SideStats
	ExitBreakdown     []ExitCount
}

// ExitCount cuenta los cierres por motivo de salida.
type ExitCount struct {
	Reason ExitReason
	Count  int
	PnL    float64
}

// Report es el resultado completo y determinista de un backtest. No
// contiene identificadores aleatorios ni timestamps de reloj: dos
// ejecuciones con el mismo input producen Reports idénticos.
type Report struct {
	Strategy        StrategyConfig
	StartingCapital float64
	EndingCapital   float64
	MarketsAnalyzed int
	MarketsTraded   int
	Trades          []TradeRecord
	Metrics         Metrics
	EquityCurve     []EquityPoint
	DrawdownCurve   []DrawdownPoint
	DailyPnL        []DailyPnL
	Utilization     []UtilizationPoint
}

// RunSummary es la fila de listado de una ejecución persistida.
type RunSummary struct {
	ID           string
	Strategy     string
	CreatedAt    time.Time
	StartDate    time.Time
	EndDate      time.Time
	StartCapital float64
	EndCapital   float64
	TotalTrades  int
	WinRate      float64
	TotalPnL     float64
	MaxDrawdown  float64
	SharpeRatio  float64
}
