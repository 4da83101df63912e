package backtest

import (
	"container/heap"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// EventKind distinguishes what can happen to a market on the timeline.
// Price sorts before resolution at the same instant, so the final candle
// is replayed before the market settles.
type EventKind int

const (
	EventPrice EventKind = iota
	EventResolution
)

// Event is one point on the merged timeline.
type Event struct {
	Time     time.Time
	Kind     EventKind
	MarketID string
	Candle   domain.Candlestick // price events only
	Winner   domain.Side        // resolution events only
}

// marketStream is one market's chronological event sequence with a read
// cursor.
type marketStream struct {
	events []Event
	pos    int
}

func (s *marketStream) head() Event { return s.events[s.pos] }

// streamHeap is a min-heap of streams keyed by each stream's head event:
// earliest timestamp first, ties by market id ascending, then price
// events before resolution events.
type streamHeap []*marketStream

func (h streamHeap) Len() int { return len(h) }

func (h streamHeap) Less(i, j int) bool {
	a, b := h[i].head(), h[j].head()
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	if a.MarketID != b.MarketID {
		return a.MarketID < b.MarketID
	}
	return a.Kind < b.Kind
}

func (h streamHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *streamHeap) Push(x any) { *h = append(*h, x.(*marketStream)) }

func (h *streamHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return s
}

// Scheduler merges every market's event stream into one chronological
// timeline. Only each stream's head sits in the heap, so merging M
// markets with N total events costs O(N log M).
type Scheduler struct {
	h         streamHeap
	remaining int
}

// NewScheduler builds the merged timeline from per-market streams. Each
// stream must already be sorted by time.
func NewScheduler(streams ...[]Event) *Scheduler {
	s := &Scheduler{}
	for _, events := range streams {
		if len(events) == 0 {
			continue
		}
		s.h = append(s.h, &marketStream{events: events})
		s.remaining += len(events)
	}
	heap.Init(&s.h)
	return s
}

// Next pops the earliest pending event across all markets.
func (s *Scheduler) Next() (Event, bool) {
	if len(s.h) == 0 {
		return Event{}, false
	}
	st := s.h[0]
	ev := st.head()
	st.pos++
	if st.pos >= len(st.events) {
		heap.Pop(&s.h)
	} else {
		heap.Fix(&s.h, 0)
	}
	s.remaining--
	return ev, true
}

// Remaining returns how many events have not been replayed yet.
func (s *Scheduler) Remaining() int { return s.remaining }

// BuildStream converts a market's candles into its event stream, clamped
// to [start, end]. A resolved market whose end date falls inside the
// range gets a terminal resolution event, and candles past that instant
// are dropped. Markets resolving after the range end as END_OF_RANGE
// instead.
func BuildStream(market domain.MarketSnapshot, candles []domain.Candlestick, start, end time.Time) []Event {
	resolves := market.Resolved && !market.EndDate.IsZero() &&
		!market.EndDate.Before(start) && !market.EndDate.After(end)

	events := make([]Event, 0, len(candles)+1)
	for _, c := range candles {
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			continue
		}
		if resolves && c.Timestamp.After(market.EndDate) {
			continue
		}
		events = append(events, Event{
			Time:     c.Timestamp,
			Kind:     EventPrice,
			MarketID: market.ID,
			Candle:   c,
		})
	}
	if resolves {
		events = append(events, Event{
			Time:     market.EndDate,
			Kind:     EventResolution,
			MarketID: market.ID,
			Winner:   market.WinningSide,
		})
	}
	return events
}
