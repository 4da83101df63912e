package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// strategyFile es el documento YAML de una estrategia. Es un espejo de
// domain.StrategyConfig con tags yaml y tipos amigables para escribir a
// mano (fechas como texto, intervalo como "1h").
type strategyFile struct {
	Name     string      `yaml:"name"`
	Range    rangeYAML   `yaml:"range"`
	Bankroll float64     `yaml:"bankroll"`
	Markets  marketsYAML `yaml:"markets"`
	Entry    entryYAML   `yaml:"entry"`
	Exit     exitYAML    `yaml:"exit"`
	Sizing   sizingYAML  `yaml:"sizing"`
	Fees     *feesYAML   `yaml:"fees"`
}

type rangeYAML struct {
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Interval string `yaml:"interval"` // 1m, 1h o 1d
}

type marketsYAML struct {
	Categories           []string `yaml:"categories"`
	MinLiquidity         float64  `yaml:"min_liquidity"`
	MaxLiquidity         float64  `yaml:"max_liquidity"`
	MinHoursToResolution float64  `yaml:"min_hours_to_resolution"`
	MaxHoursToResolution float64  `yaml:"max_hours_to_resolution"`
}

type bandYAML struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type entryYAML struct {
	Side            string    `yaml:"side"` // YES, NO o BOTH
	YesBand         *bandYAML `yaml:"yes_band"`
	NoBand          *bandYAML `yaml:"no_band"`
	Earliest        string    `yaml:"earliest"`
	Latest          string    `yaml:"latest"`
	MaxTradesPerDay int       `yaml:"max_trades_per_day"`
	CooldownHours   float64   `yaml:"cooldown_hours"`
}

type trailingYAML struct {
	ActivationPct float64 `yaml:"activation_pct"`
	TrailPct      float64 `yaml:"trail_pct"`
}

type tierYAML struct {
	TriggerPct float64 `yaml:"trigger_pct"`
	SellPct    float64 `yaml:"sell_pct"`
}

type exitYAML struct {
	ResolveOnExpiry bool          `yaml:"resolve_on_expiry"`
	StopLossPct     float64       `yaml:"stop_loss_pct"`
	TakeProfitPct   float64       `yaml:"take_profit_pct"`
	MaxHoldHours    float64       `yaml:"max_hold_hours"`
	Trailing        *trailingYAML `yaml:"trailing"`
	PartialTier1    *tierYAML     `yaml:"partial_tier1"`
	PartialTier2    *tierYAML     `yaml:"partial_tier2"`
}

type sizingYAML struct {
	Mode           string  `yaml:"mode"` // FIXED o PERCENTAGE
	Amount         float64 `yaml:"amount"`
	Percent        float64 `yaml:"percent"`
	MaxExposurePct float64 `yaml:"max_exposure_pct"`
}

type feesYAML struct {
	Mode  string  `yaml:"mode"` // FLAT o BPS
	Value float64 `yaml:"value"`
}

// LoadStrategy lee y valida el fichero YAML de una estrategia. Si la
// configuración resultante viola alguna regla devuelve el
// domain.ValidationError con todas las violaciones.
func LoadStrategy(path string) (domain.StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("config.LoadStrategy: read %q: %w", path, err)
	}

	var f strategyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("config.LoadStrategy: parse %q: %w", path, err)
	}

	cfg, err := f.toDomain()
	if err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("config.LoadStrategy: %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("config.LoadStrategy: %q: %w", path, err)
	}
	return cfg, nil
}

func (f strategyFile) toDomain() (domain.StrategyConfig, error) {
	cfg := domain.StrategyConfig{
		Name:            f.Name,
		InitialBankroll: f.Bankroll,
		Interval:        parseInterval(f.Range.Interval),
		Markets: domain.MarketFilterConfig{
			Categories:           f.Markets.Categories,
			MinLiquidity:         f.Markets.MinLiquidity,
			MaxLiquidity:         f.Markets.MaxLiquidity,
			MinHoursToResolution: f.Markets.MinHoursToResolution,
			MaxHoursToResolution: f.Markets.MaxHoursToResolution,
		},
		Entry: domain.EntryConfig{
			Side:            domain.EntryType(strings.ToUpper(f.Entry.Side)),
			MaxTradesPerDay: f.Entry.MaxTradesPerDay,
			CooldownHours:   f.Entry.CooldownHours,
		},
		Exit: domain.ExitConfig{
			ResolveOnExpiry: f.Exit.ResolveOnExpiry,
			StopLossPct:     f.Exit.StopLossPct,
			TakeProfitPct:   f.Exit.TakeProfitPct,
			MaxHoldHours:    f.Exit.MaxHoldHours,
		},
		Sizing: domain.SizingConfig{
			Mode:           domain.SizingMode(strings.ToUpper(f.Sizing.Mode)),
			Amount:         f.Sizing.Amount,
			Percent:        f.Sizing.Percent,
			MaxExposurePct: f.Sizing.MaxExposurePct,
		},
	}
	if cfg.InitialBankroll == 0 {
		cfg.InitialBankroll = domain.DefaultBankroll
	}

	var err error
	if cfg.StartDate, err = parseDate(f.Range.Start); err != nil {
		return cfg, fmt.Errorf("range.start: %w", err)
	}
	if cfg.EndDate, err = parseDate(f.Range.End); err != nil {
		return cfg, fmt.Errorf("range.end: %w", err)
	}
	if f.Entry.Earliest != "" {
		if cfg.Entry.EarliestEntry, err = parseDate(f.Entry.Earliest); err != nil {
			return cfg, fmt.Errorf("entry.earliest: %w", err)
		}
	}
	if f.Entry.Latest != "" {
		if cfg.Entry.LatestEntry, err = parseDate(f.Entry.Latest); err != nil {
			return cfg, fmt.Errorf("entry.latest: %w", err)
		}
	}

	if f.Entry.YesBand != nil {
		cfg.Entry.YesBand = domain.PriceBand{Min: f.Entry.YesBand.Min, Max: f.Entry.YesBand.Max}
	}
	if f.Entry.NoBand != nil {
		cfg.Entry.NoBand = domain.PriceBand{Min: f.Entry.NoBand.Min, Max: f.Entry.NoBand.Max}
	}
	if f.Exit.Trailing != nil {
		cfg.Exit.Trailing = &domain.TrailingConfig{
			ActivationPct: f.Exit.Trailing.ActivationPct,
			TrailPct:      f.Exit.Trailing.TrailPct,
		}
	}
	if f.Exit.PartialTier1 != nil {
		cfg.Exit.PartialTier1 = &domain.PartialExitConfig{
			TriggerPct: f.Exit.PartialTier1.TriggerPct,
			SellPct:    f.Exit.PartialTier1.SellPct,
		}
	}
	if f.Exit.PartialTier2 != nil {
		cfg.Exit.PartialTier2 = &domain.PartialExitConfig{
			TriggerPct: f.Exit.PartialTier2.TriggerPct,
			SellPct:    f.Exit.PartialTier2.SellPct,
		}
	}
	if f.Fees != nil {
		cfg.Fees = &domain.FeeConfig{
			Mode:  domain.FeeMode(strings.ToUpper(f.Fees.Mode)),
			Value: f.Fees.Value,
		}
	}
	return cfg, nil
}

// parseInterval traduce el intervalo textual del YAML. Un valor
// desconocido devuelve cero y lo rechaza Validate.
func parseInterval(s string) domain.Interval {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1m":
		return domain.Interval1m
	case "1h":
		return domain.Interval1h
	case "1d":
		return domain.Interval1d
	}
	return 0
}

// strategyDateLayouts son los formatos aceptados para fechas en el YAML
// de estrategia, de más a menos específico.
var strategyDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("fecha vacía")
	}
	for _, layout := range strategyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha inválida %q", s)
}
