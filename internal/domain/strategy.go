package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntryType indica qué lados del mercado puede tomar la estrategia.
type EntryType string

const (
	EntryYes  EntryType = "YES"
	EntryNo   EntryType = "NO"
	EntryBoth EntryType = "BOTH"
)

// SizingMode indica cómo se calcula el tamaño de cada posición.
type SizingMode string

const (
	SizingFixed      SizingMode = "FIXED"
	SizingPercentage SizingMode = "PERCENTAGE"
)

// FeeMode indica cómo se calculan las comisiones por fill.
type FeeMode string

const (
	FeeFlat FeeMode = "FLAT"
	FeeBps  FeeMode = "BPS"
)

// DefaultBankroll es el capital inicial cuando la estrategia no lo define.
const DefaultBankroll = 10_000

// StrategyConfig es el input inmutable de un backtest.
type StrategyConfig struct {
	Name            string
	Markets         MarketFilterConfig
	Entry           EntryConfig
	Exit            ExitConfig
	Sizing          SizingConfig
	Fees            *FeeConfig // nil = sin comisiones
	StartDate       time.Time
	EndDate         time.Time
	Interval        Interval
	InitialBankroll float64
}

// MarketFilterConfig son los criterios de selección de mercados candidatos.
// Los ceros desactivan cada criterio.
type MarketFilterConfig struct {
	Categories           []string
	MinLiquidity         float64
	MaxLiquidity         float64
	MinHoursToResolution float64 // horas entre el inicio del rango y la resolución
	MaxHoursToResolution float64
}

// Matches devuelve true si el mercado pasa todos los filtros activos.
// rangeStart es el inicio del rango del backtest, la referencia para medir
// las horas hasta resolución.
func (f MarketFilterConfig) Matches(m MarketSnapshot, rangeStart time.Time) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if strings.EqualFold(c, m.Category) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinLiquidity > 0 && m.Liquidity < f.MinLiquidity {
		return false
	}
	if f.MaxLiquidity > 0 && m.Liquidity > f.MaxLiquidity {
		return false
	}
	hours := m.HoursToResolution(rangeStart)
	if f.MinHoursToResolution > 0 && hours < f.MinHoursToResolution {
		return false
	}
	if f.MaxHoursToResolution > 0 && hours > f.MaxHoursToResolution {
		return false
	}
	return true
}

// PriceBand es un rango de precios [Min, Max] dentro de [0, 1].
// Una banda con Max == 0 se considera sin restricción.
type PriceBand struct {
	Min float64
	Max float64
}

// Set devuelve true si la banda está configurada.
func (b PriceBand) Set() bool {
	return b.Max > 0
}

// Contains devuelve true si el precio cae dentro de la banda (inclusive).
func (b PriceBand) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

// EntryConfig define cuándo la estrategia abre posiciones.
type EntryConfig struct {
	Side            EntryType
	YesBand         PriceBand
	NoBand          PriceBand
	EarliestEntry   time.Time // zero = sin límite inferior
	LatestEntry     time.Time // zero = sin límite superior
	MaxTradesPerDay int       // 0 = sin límite
	CooldownHours   float64   // horas mínimas entre entradas (cualquier mercado)
}

// AllowsSide devuelve true si el entryType permite operar el lado dado.
func (e EntryConfig) AllowsSide(s Side) bool {
	switch e.Side {
	case EntryBoth:
		return true
	case EntryYes:
		return s == SideYes
	case EntryNo:
		return s == SideNo
	}
	return false
}

// BandFor devuelve la banda de precios configurada para un lado.
func (e EntryConfig) BandFor(s Side) PriceBand {
	if s == SideNo {
		return e.NoBand
	}
	return e.YesBand
}

// TrailingConfig define el trailing stop: se activa cuando el beneficio pico
// alcanza ActivationPct y dispara cuando el precio retrocede TrailPct desde
// el pico.
type TrailingConfig struct {
	ActivationPct float64
	TrailPct      float64
}

// PartialExitConfig define un tier de venta parcial: al cruzar TriggerPct de
// beneficio se vende SellPct de las acciones ORIGINALES.
type PartialExitConfig struct {
	TriggerPct float64
	SellPct    float64
}

// ExitConfig define cuándo la estrategia cierra posiciones.
// Los ceros y nils desactivan cada condición.
type ExitConfig struct {
	ResolveOnExpiry bool
	StopLossPct     float64
	TakeProfitPct   float64
	MaxHoldHours    float64
	Trailing        *TrailingConfig
	PartialTier1    *PartialExitConfig
	PartialTier2    *PartialExitConfig
}

// SizingConfig define el tamaño de cada posición nueva.
type SizingConfig struct {
	Mode           SizingMode
	Amount         float64 // USD por posición (FIXED)
	Percent        float64 // % del bankroll disponible (PERCENTAGE)
	MaxExposurePct float64 // 0 = sin tope de exposición
}

// FeeConfig define la comisión aplicada simétricamente en entrada y salida.
type FeeConfig struct {
	Mode  FeeMode
	Value float64 // USD por fill (FLAT) o basis points del notional (BPS)
}

// Apply devuelve la comisión para un notional dado.
func (f *FeeConfig) Apply(notional float64) float64 {
	if f == nil {
		return 0
	}
	switch f.Mode {
	case FeeFlat:
		return f.Value
	case FeeBps:
		return notional * f.Value / 10_000
	}
	return 0
}

// ValidationError agrupa todas las violaciones encontradas en una
// StrategyConfig. Se reporta completo, no solo la primera.
type ValidationError struct {
	Violations []string
}

// Error implementa el interface error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid strategy config: %s", strings.Join(e.Violations, "; "))
}

// Validate comprueba todos los invariantes de la configuración y devuelve
// un *ValidationError con TODAS las violaciones, o nil si es válida.
func (c StrategyConfig) Validate() error {
	var v []string

	add := func(format string, args ...any) {
		v = append(v, fmt.Sprintf(format, args...))
	}

	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		add("start_date and end_date are required")
	} else if !c.StartDate.Before(c.EndDate) {
		add("start_date %s must be before end_date %s",
			c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
	}

	if c.InitialBankroll <= 0 {
		add("initial_bankroll must be positive, got %.2f", c.InitialBankroll)
	}

	if !c.Interval.Valid() {
		add("interval must be 1, 60 or 1440 minutes, got %d", int(c.Interval))
	}

	switch c.Entry.Side {
	case EntryYes, EntryNo, EntryBoth:
	default:
		add("entry side must be YES, NO or BOTH, got %q", c.Entry.Side)
	}

	checkBand := func(name string, b PriceBand) {
		if !b.Set() {
			return
		}
		if b.Min < 0 || b.Max > 1 || b.Min > b.Max {
			add("%s must satisfy 0 <= min <= max <= 1, got [%.4f, %.4f]", name, b.Min, b.Max)
		}
	}
	checkBand("entry yes_band", c.Entry.YesBand)
	checkBand("entry no_band", c.Entry.NoBand)

	if !c.Entry.EarliestEntry.IsZero() && !c.Entry.LatestEntry.IsZero() &&
		c.Entry.EarliestEntry.After(c.Entry.LatestEntry) {
		add("earliest_entry must not be after latest_entry")
	}
	if c.Entry.MaxTradesPerDay < 0 {
		add("max_trades_per_day must not be negative, got %d", c.Entry.MaxTradesPerDay)
	}
	if c.Entry.CooldownHours < 0 {
		add("cooldown_hours must not be negative, got %.2f", c.Entry.CooldownHours)
	}

	checkPct := func(name string, p float64) {
		if p < 0 || p > 100 {
			add("%s must be within [0, 100], got %.2f", name, p)
		}
	}
	checkPct("stop_loss_pct", c.Exit.StopLossPct)
	checkPct("take_profit_pct", c.Exit.TakeProfitPct)
	if c.Exit.MaxHoldHours < 0 {
		add("max_hold_hours must not be negative, got %.2f", c.Exit.MaxHoldHours)
	}
	if t := c.Exit.Trailing; t != nil {
		checkPct("trailing activation_pct", t.ActivationPct)
		checkPct("trailing trail_pct", t.TrailPct)
		if t.ActivationPct == 0 || t.TrailPct == 0 {
			add("trailing stop requires both activation_pct and trail_pct")
		}
	}
	if p := c.Exit.PartialTier1; p != nil {
		checkPct("partial_tier1 trigger_pct", p.TriggerPct)
		checkPct("partial_tier1 sell_pct", p.SellPct)
		if p.SellPct == 0 {
			add("partial_tier1 sell_pct must be positive")
		}
	}
	if p := c.Exit.PartialTier2; p != nil {
		checkPct("partial_tier2 trigger_pct", p.TriggerPct)
		checkPct("partial_tier2 sell_pct", p.SellPct)
		if c.Exit.PartialTier1 == nil {
			add("partial_tier2 requires partial_tier1")
		} else if p.TriggerPct <= c.Exit.PartialTier1.TriggerPct {
			add("partial_tier2 trigger_pct %.2f must exceed partial_tier1 trigger_pct %.2f",
				p.TriggerPct, c.Exit.PartialTier1.TriggerPct)
		}
	}

	switch c.Sizing.Mode {
	case SizingFixed:
		if c.Sizing.Amount <= 0 {
			add("sizing amount must be positive for FIXED mode, got %.2f", c.Sizing.Amount)
		}
	case SizingPercentage:
		if c.Sizing.Percent <= 0 || c.Sizing.Percent > 100 {
			add("sizing percent must be within (0, 100], got %.2f", c.Sizing.Percent)
		}
	default:
		add("sizing mode must be FIXED or PERCENTAGE, got %q", c.Sizing.Mode)
	}
	checkPct("max_exposure_pct", c.Sizing.MaxExposurePct)

	if f := c.Fees; f != nil {
		if f.Mode != FeeFlat && f.Mode != FeeBps {
			add("fee mode must be FLAT or BPS, got %q", f.Mode)
		}
		if f.Value < 0 {
			add("fee value must not be negative, got %.4f", f.Value)
		}
	}

	if c.Markets.MinLiquidity < 0 || c.Markets.MaxLiquidity < 0 {
		add("liquidity bounds must not be negative")
	}
	if c.Markets.MaxLiquidity > 0 && c.Markets.MinLiquidity > c.Markets.MaxLiquidity {
		add("min_liquidity %.2f must not exceed max_liquidity %.2f",
			c.Markets.MinLiquidity, c.Markets.MaxLiquidity)
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}
