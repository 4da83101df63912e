package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket contiene la metadata de un mercado binario.
// Gamma devuelve algunos campos numéricos como strings JSON (json.Number) y
// los arrays de outcomes como strings JSON-encoded que hay que decodificar
// en un segundo paso.
type gammaMarket struct {
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Slug          string      `json:"slug"`
	Category      string      `json:"category"`
	EndDateISO    string      `json:"endDateIso"`
	Liquidity     json.Number `json:"liquidity"`
	Volume        json.Number `json:"volume"`
	Outcomes      string      `json:"outcomes"`      // ej: "[\"Yes\", \"No\"]"
	OutcomePrices string      `json:"outcomePrices"` // ej: "[\"1\", \"0\"]" tras resolver
	ClobTokenIDs  string      `json:"clobTokenIds"`  // ej: "[\"123...\", \"456...\"]"
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
}

// --- CLOB API ---

// historyResponse es la respuesta de GET /prices-history del CLOB.
type historyResponse struct {
	History []pricePoint `json:"history"`
}

// pricePoint es un punto de la serie de precios del token YES.
type pricePoint struct {
	T int64   `json:"t"` // epoch en segundos
	P float64 `json:"p"` // precio en [0, 1]
}
