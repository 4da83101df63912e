package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.MarketSnapshot.
// Devuelve ok=false si al mercado le falta algo imprescindible para el
// backtest: condition id, fecha de resolución o los dos tokens CLOB.
func mapGammaMarket(gm gammaMarket) (domain.MarketSnapshot, bool) {
	if gm.ConditionID == "" {
		return domain.MarketSnapshot{}, false
	}

	endDate, ok := parseGammaDate(gm.EndDateISO)
	if !ok {
		return domain.MarketSnapshot{}, false
	}

	tokens := decodeStringArray(gm.ClobTokenIDs)
	outcomes := decodeStringArray(gm.Outcomes)
	if len(tokens) < 2 || len(outcomes) < 2 {
		return domain.MarketSnapshot{}, false
	}

	// Gamma lista los outcomes en el mismo orden que los tokens; localizamos
	// el índice del lado YES en vez de asumir que siempre va primero.
	yesIdx, noIdx := 0, 1
	if strings.EqualFold(outcomes[1], "yes") {
		yesIdx, noIdx = 1, 0
	}

	m := domain.MarketSnapshot{
		ID:         gm.ConditionID,
		Question:   gm.Question,
		Slug:       gm.Slug,
		Category:   gm.Category,
		EndDate:    endDate,
		YesTokenID: tokens[yesIdx],
		NoTokenID:  tokens[noIdx],
	}

	if v, err := gm.Liquidity.Float64(); err == nil {
		m.Liquidity = v
	}
	if v, err := gm.Volume.Float64(); err == nil {
		m.Volume = v
	}

	if gm.Closed {
		if winner, ok := resolveWinner(decodeStringArray(gm.OutcomePrices), yesIdx, noIdx); ok {
			m.Resolved = true
			m.WinningSide = winner
		}
	}

	return m, true
}

// resolveWinner deduce el lado ganador a partir de los outcome prices.
// Tras resolver, Gamma deja el precio del ganador en 1 y el del perdedor
// en 0; aceptamos >= 0.99 para tolerar redondeos.
func resolveWinner(prices []string, yesIdx, noIdx int) (domain.Side, bool) {
	if len(prices) < 2 {
		return "", false
	}
	yes, errY := strconv.ParseFloat(prices[yesIdx], 64)
	no, errN := strconv.ParseFloat(prices[noIdx], 64)
	if errY != nil || errN != nil {
		return "", false
	}
	switch {
	case yes >= 0.99:
		return domain.SideYes, true
	case no >= 0.99:
		return domain.SideNo, true
	}
	return "", false
}

// decodeStringArray decodifica un array JSON embebido como string.
// Gamma serializa outcomes, outcomePrices y clobTokenIds de esta forma.
func decodeStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// parseGammaDate parsea una fecha de Gamma.
func parseGammaDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	// Polymarket usa varios formatos; intentamos los más comunes
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// bucketCandles agrega la serie de puntos del CLOB en velas OHLC alineadas
// al intervalo. El endpoint /prices-history no reporta volumen, así que las
// velas salen con Volume 0.
func bucketCandles(points []pricePoint, interval domain.Interval) []domain.Candlestick {
	if len(points) == 0 {
		return nil
	}

	sort.Slice(points, func(i, j int) bool { return points[i].T < points[j].T })

	step := int64(interval) * 60
	candles := make([]domain.Candlestick, 0, len(points))
	for _, p := range points {
		bucket := p.T - p.T%step
		ts := time.Unix(bucket, 0).UTC()

		if n := len(candles); n > 0 && candles[n-1].Timestamp.Equal(ts) {
			c := &candles[n-1]
			if p.P > c.High {
				c.High = p.P
			}
			if p.P < c.Low {
				c.Low = p.P
			}
			c.Close = p.P
			continue
		}

		candles = append(candles, domain.Candlestick{
			Timestamp: ts,
			Open:      p.P,
			High:      p.P,
			Low:       p.P,
			Close:     p.P,
		})
	}
	return candles
}
