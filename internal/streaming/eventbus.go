package streaming

import (
	"context"
	"strconv"
	"sync"

	"permguard-lab/pkg/logger"
)

// EventBus distributes report events to in-process subscribers and, when
// connected, to NATS.
type EventBus struct {
	nats   *NATSPublisher
	logger *logger.Logger

	mu          sync.RWMutex
	subscribers map[string]*subscriber
	nextID      int
	published   int64
	dropped     int64
}

type subscriber struct {
	ch  chan *ReportEvent
	sub *Subscription
}

// NewEventBus creates a new event bus. nats may be nil.
func NewEventBus(nats *NATSPublisher, log *logger.Logger) *EventBus {
	return &EventBus{
		nats:        nats,
		logger:      log.WithComponent("event-bus"),
		subscribers: make(map[string]*subscriber),
	}
}

// Publish publishes an event to NATS and all matching local subscribers.
// Slow subscribers lose events instead of blocking the publisher.
func (eb *EventBus) Publish(ctx context.Context, event *ReportEvent) error {
	if eb.nats.IsConnected() {
		if err := eb.nats.PublishReportEvent(ctx, event); err != nil {
			eb.logger.Warn().Err(err).Msg("failed to publish to NATS, using local broadcast only")
		}
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.published++
	for id, s := range eb.subscribers {
		if s.sub != nil && !s.sub.Matches(event) {
			continue
		}
		select {
		case s.ch <- event:
		default:
			eb.dropped++
			eb.logger.Debug().Str("subscriber", id).Msg("subscriber channel full, dropping event")
		}
	}

	return nil
}

// Subscribe registers a local subscriber. The returned function removes it
// and closes the channel.
func (eb *EventBus) Subscribe(sub *Subscription) (<-chan *ReportEvent, func()) {
	eb.mu.Lock()
	eb.nextID++
	id := strconv.Itoa(eb.nextID)
	ch := make(chan *ReportEvent, 100)
	eb.subscribers[id] = &subscriber{ch: ch, sub: sub}
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", id).Msg("new subscriber")

	unsubscribe := func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if s, ok := eb.subscribers[id]; ok {
			close(s.ch)
			delete(eb.subscribers, id)
			eb.logger.Debug().Str("subscriber_id", id).Msg("subscriber removed")
		}
	}

	return ch, unsubscribe
}

// BusStats is a point-in-time view of the bus
type BusStats struct {
	Subscribers   int   `json:"subscribers"`
	Published     int64 `json:"published"`
	Dropped       int64 `json:"dropped"`
	NATSConnected bool  `json:"nats_connected"`
}

// Stats returns bus counters
func (eb *EventBus) Stats() BusStats {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return BusStats{
		Subscribers:   len(eb.subscribers),
		Published:     eb.published,
		Dropped:       eb.dropped,
		NATSConnected: eb.nats.IsConnected(),
	}
}

// SubscriberCount returns the number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// Close removes all subscribers and closes the NATS connection
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for id, s := range eb.subscribers {
		close(s.ch)
		delete(eb.subscribers, id)
	}

	if eb.nats != nil {
		eb.nats.Close()
	}
}
