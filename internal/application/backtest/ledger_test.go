package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_ReserveMovesCashToAllocated(t *testing.T) {
	l := NewLedger(10_000)

	ok := l.Reserve(1_000, 0)

	assert.True(t, ok)
	assert.Equal(t, 9_000.0, l.Available())
	assert.Equal(t, 1_000.0, l.Allocated())
	assert.Equal(t, 10_000.0, l.Total())
}

func TestLedger_ReserveInsufficientCash(t *testing.T) {
	l := NewLedger(500)

	ok := l.Reserve(501, 0)

	assert.False(t, ok)
	assert.Equal(t, 500.0, l.Available())
	assert.Equal(t, 0.0, l.Allocated())
}

func TestLedger_ReserveExposureCap(t *testing.T) {
	l := NewLedger(10_000)

	// Cap del 15% sobre el total: 1500 max asignado.
	assert.True(t, l.Reserve(1_000, 15))
	assert.False(t, l.Reserve(1_000, 15))
	assert.True(t, l.Reserve(500, 15))

	assert.Equal(t, 1_500.0, l.Allocated())
}

func TestLedger_ReserveZeroCapMeansUncapped(t *testing.T) {
	l := NewLedger(10_000)

	assert.True(t, l.Reserve(10_000, 0))
	assert.Equal(t, 0.0, l.Available())
}

func TestLedger_FailedReserveDoesNotMutate(t *testing.T) {
	l := NewLedger(1_000)
	l.Reserve(600, 0)

	before := l.Total()
	assert.False(t, l.Reserve(600, 0))
	assert.Equal(t, before, l.Total())
	assert.Equal(t, 400.0, l.Available())
	assert.Equal(t, 600.0, l.Allocated())
}

func TestLedger_ReleaseRealizesGain(t *testing.T) {
	l := NewLedger(10_000)
	l.Reserve(1_000, 0)

	// Cierre con ganancia: 1000 de coste vuelven como 1200.
	l.Release(1_000, 1_200)

	assert.Equal(t, 0.0, l.Allocated())
	assert.Equal(t, 10_200.0, l.Available())
	assert.Equal(t, 10_200.0, l.Total())
}

func TestLedger_ReleaseRealizesLoss(t *testing.T) {
	l := NewLedger(10_000)
	l.Reserve(1_000, 0)

	l.Release(1_000, 700)

	assert.Equal(t, 9_700.0, l.Total())
}

func TestLedger_PartialRelease(t *testing.T) {
	l := NewLedger(10_000)
	l.Reserve(1_000, 0)

	l.Release(500, 650)

	assert.Equal(t, 500.0, l.Allocated())
	assert.Equal(t, 9_650.0, l.Available())
}

func TestLedger_TotalUnchangedByReserve(t *testing.T) {
	l := NewLedger(10_000)

	for _, amount := range []float64{100, 2_500, 3_000} {
		l.Reserve(amount, 0)
		assert.Equal(t, 10_000.0, l.Total())
	}
}
