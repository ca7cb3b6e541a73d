package scale

import (
	"sync"
	"time"

	"weighbridge-backend/internal/metrics"
	"weighbridge-backend/internal/weighing"
)

// Hub keeps the latest reading and fans it out to subscribers. Only the most
// recent reading matters: slow subscribers see newer values replace older ones.
type Hub struct {
	mu         sync.RWMutex
	latest     Reading
	has        bool
	connected  bool
	staleAfter time.Duration
	subs       map[chan Reading]struct{}
	now        func() time.Time
}

// Status is the hub state served to clients.
type Status struct {
	Reading
	Connected bool `json:"connected"`
	Stale     bool `json:"stale"`
}

func NewHub(staleAfter time.Duration) *Hub {
	return &Hub{
		staleAfter: staleAfter,
		subs:       make(map[chan Reading]struct{}),
		now:        time.Now,
	}
}

// Publish replaces the latest reading and pushes it to every subscriber without blocking.
func (h *Hub) Publish(r Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = r
	h.has = true
	metrics.LiveWeightKg.Set(r.WeightKg)

	for ch := range h.subs {
		offer(ch, r)
	}
}

func offer(ch chan Reading, r Reading) {
	select {
	case ch <- r:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- r:
	default:
	}
}

// Subscribe returns a channel of readings, primed with the latest one, and a cancel func.
func (h *Hub) Subscribe() (<-chan Reading, func()) {
	ch := make(chan Reading, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.has {
		ch <- h.latest
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

func (h *Hub) SetConnected(connected bool) {
	h.mu.Lock()
	h.connected = connected
	h.mu.Unlock()

	if connected {
		metrics.ScaleConnected.Set(1)
	} else {
		metrics.ScaleConnected.Set(0)
	}
}

func (h *Hub) Latest() (Reading, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.has
}

// Status reports the latest reading; ok is false before the first reading.
func (h *Hub) Status() (Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.has {
		return Status{Connected: h.connected}, false
	}
	return Status{
		Reading:   h.latest,
		Connected: h.connected,
		Stale:     h.isStale(h.latest),
	}, true
}

// LiveWeight returns the latest weight if it is fresh enough to bill against.
func (h *Hub) LiveWeight() (float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.has || h.isStale(h.latest) {
		return 0, weighing.ErrNoLiveWeight
	}
	return h.latest.WeightKg, nil
}

func (h *Hub) isStale(r Reading) bool {
	return h.now().Sub(r.ReceivedAt) > h.staleAfter
}

func (h *Hub) subscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
