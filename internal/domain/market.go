package domain

import "time"

// Side es uno de los dos lados de un mercado binario.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Opposite devuelve el lado contrario.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// MarketSnapshot es la metadata inmutable de un mercado de predicción binario.
// Se construye una vez en el fetch y no se modifica durante la simulación.
type MarketSnapshot struct {
	ID          string    // condition_id del mercado
	Question    string    // enriquecido desde Gamma
	Slug        string    // enriquecido desde Gamma
	Category    string    // categoría/tag principal del mercado
	Liquidity   float64   // liquidez en USDC
	Volume      float64   // volumen acumulado en USDC
	EndDate     time.Time // fecha de resolución
	Resolved    bool      // true si el mercado ya se resolvió
	WinningSide Side      // lado ganador, válido solo si Resolved
	YesTokenID  string    // token CLOB del lado YES (fuente de precios)
	NoTokenID   string    // token CLOB del lado NO
}

// HoursToResolution devuelve las horas entre `from` y la resolución del mercado.
// Devuelve 0 si EndDate no está definido o ya pasó.
func (m MarketSnapshot) HoursToResolution(from time.Time) float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	h := m.EndDate.Sub(from).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// SidePrice traduce un precio del token YES al precio efectivo del lado dado.
// Los candlesticks siempre cotizan el token YES; el lado NO vale 1 - precio.
func SidePrice(side Side, yesPrice float64) float64 {
	if side == SideNo {
		return 1 - yesPrice
	}
	return yesPrice
}

// TerminalPrice devuelve el precio final de un lado cuando el mercado resuelve.
// 1 si el lado coincide con el ganador, 0 si no.
func TerminalPrice(side, winner Side) float64 {
	if side == winner {
		return 1
	}
	return 0
}

// TruncateQuestion devuelve la pregunta truncada a maxLen caracteres.
// Si la pregunta está vacía usa los primeros caracteres del ID como fallback.
func TruncateQuestion(question, marketID string, maxLen int) string {
	q := question
	if q == "" {
		if len(marketID) > 20 {
			q = marketID[:20] + "..."
		} else {
			q = marketID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
