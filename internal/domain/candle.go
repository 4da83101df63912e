package domain

import "time"

// Interval es la granularidad de un candlestick en minutos.
type Interval int

const (
	Interval1m Interval = 1
	Interval1h Interval = 60
	Interval1d Interval = 1440
)

// Valid devuelve true si el intervalo es uno de los soportados por el proveedor.
func (i Interval) Valid() bool {
	return i == Interval1m || i == Interval1h || i == Interval1d
}

// Duration devuelve el intervalo como time.Duration.
func (i Interval) Duration() time.Duration {
	return time.Duration(i) * time.Minute
}

// Candlestick es una barra OHLCV del token YES de un mercado.
// Los precios están en (0, 1]; la secuencia por mercado es estrictamente
// creciente en Timestamp.
type Candlestick struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
