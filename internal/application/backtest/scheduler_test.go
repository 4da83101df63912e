package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyback/internal/domain"
)

var schedT0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func priceEvent(marketID string, at time.Time, close float64) Event {
	return Event{
		Time:     at,
		Kind:     EventPrice,
		MarketID: marketID,
		Candle:   domain.Candlestick{Timestamp: at, Close: close},
	}
}

func drain(s *Scheduler) []Event {
	var out []Event
	for {
		ev, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestScheduler_MergesStreamsChronologically(t *testing.T) {
	a := []Event{
		priceEvent("0xa", schedT0, 0.5),
		priceEvent("0xa", schedT0.Add(3*time.Hour), 0.5),
	}
	b := []Event{
		priceEvent("0xb", schedT0.Add(1*time.Hour), 0.5),
		priceEvent("0xb", schedT0.Add(2*time.Hour), 0.5),
		priceEvent("0xb", schedT0.Add(4*time.Hour), 0.5),
	}

	got := drain(NewScheduler(a, b))

	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Time.Before(got[i-1].Time),
			"evento %d fuera de orden", i)
	}
	assert.Equal(t, []string{"0xa", "0xb", "0xb", "0xa", "0xb"}, marketIDs(got))
}

func TestScheduler_TieBreaksByMarketID(t *testing.T) {
	a := []Event{priceEvent("0xbbb", schedT0, 0.5)}
	b := []Event{priceEvent("0xaaa", schedT0, 0.5)}
	c := []Event{priceEvent("0xccc", schedT0, 0.5)}

	got := drain(NewScheduler(a, b, c))

	assert.Equal(t, []string{"0xaaa", "0xbbb", "0xccc"}, marketIDs(got))
}

func TestScheduler_PriceBeforeResolutionAtSameInstant(t *testing.T) {
	stream := []Event{
		priceEvent("0xa", schedT0, 0.5),
		{Time: schedT0, Kind: EventResolution, MarketID: "0xa", Winner: domain.SideYes},
	}

	got := drain(NewScheduler(stream))

	require.Len(t, got, 2)
	assert.Equal(t, EventPrice, got[0].Kind)
	assert.Equal(t, EventResolution, got[1].Kind)
}

func TestScheduler_EmptyStreamsIgnored(t *testing.T) {
	s := NewScheduler(nil, []Event{priceEvent("0xa", schedT0, 0.5)}, []Event{})

	assert.Equal(t, 1, s.Remaining())
	got := drain(s)
	assert.Len(t, got, 1)
	assert.Equal(t, 0, s.Remaining())
}

func TestBuildStream_ClampsToRange(t *testing.T) {
	m := domain.MarketSnapshot{ID: "0xa"}
	candles := []domain.Candlestick{
		{Timestamp: schedT0.Add(-time.Hour), Close: 0.4},
		{Timestamp: schedT0, Close: 0.5},
		{Timestamp: schedT0.Add(time.Hour), Close: 0.6},
		{Timestamp: schedT0.Add(48 * time.Hour), Close: 0.7},
	}

	events := BuildStream(m, candles, schedT0, schedT0.Add(24*time.Hour))

	require.Len(t, events, 2)
	assert.Equal(t, schedT0, events[0].Time)
	assert.Equal(t, schedT0.Add(time.Hour), events[1].Time)
}

func TestBuildStream_ResolvedInRangeGetsResolutionEvent(t *testing.T) {
	end := schedT0.Add(12 * time.Hour)
	m := domain.MarketSnapshot{
		ID:          "0xa",
		Resolved:    true,
		WinningSide: domain.SideYes,
		EndDate:     end,
	}
	candles := []domain.Candlestick{
		{Timestamp: schedT0, Close: 0.5},
		{Timestamp: schedT0.Add(13 * time.Hour), Close: 0.99}, // tras la resolución
	}

	events := BuildStream(m, candles, schedT0, schedT0.Add(24*time.Hour))

	require.Len(t, events, 2)
	assert.Equal(t, EventPrice, events[0].Kind)
	assert.Equal(t, EventResolution, events[1].Kind)
	assert.Equal(t, end, events[1].Time)
	assert.Equal(t, domain.SideYes, events[1].Winner)
}

func TestBuildStream_ResolvedAfterRangeGetsNoResolutionEvent(t *testing.T) {
	m := domain.MarketSnapshot{
		ID:          "0xa",
		Resolved:    true,
		WinningSide: domain.SideNo,
		EndDate:     schedT0.Add(72 * time.Hour),
	}
	candles := []domain.Candlestick{{Timestamp: schedT0, Close: 0.5}}

	events := BuildStream(m, candles, schedT0, schedT0.Add(24*time.Hour))

	require.Len(t, events, 1)
	assert.Equal(t, EventPrice, events[0].Kind)
}

func TestBuildStream_EmptyCandlesNoEvents(t *testing.T) {
	m := domain.MarketSnapshot{ID: "0xa"}
	assert.Empty(t, BuildStream(m, nil, schedT0, schedT0.Add(time.Hour)))
}

func marketIDs(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.MarketID
	}
	return out
}
