package hub

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
)

// ErrReentrantPublish is returned when a consumer publishes on the hub that is
// currently dispatching to it.
var ErrReentrantPublish = errors.New("reentrant publish on hub")

// Subscription identifies a registered consumer.
type Subscription struct {
	index int
}

// Index returns the consumer's position in dispatch order.
func (s Subscription) Index() int { return s.index }

type Hub[T any] struct {
	name        string
	current     T
	hasCurrent  bool
	consumers   []domain.Consumer[T]
	dispatching bool
}

// New creates an empty hub. name labels logs and metrics.
func New[T any](name string) *Hub[T] {
	return &Hub[T]{name: name}
}

// Subscribe appends a consumer to the dispatch list. Consumers live as long as
// the hub; there is no unsubscribe.
func (h *Hub[T]) Subscribe(c domain.Consumer[T]) Subscription {
	h.consumers = append(h.consumers, c)
	return Subscription{index: len(h.consumers) - 1}
}

// Publish stores value as current and invokes every consumer with it.
// A panicking consumer is logged and skipped; the rest still run.
func (h *Hub[T]) Publish(value T) error {
	if h.dispatching {
		metrics.HubReentrantPublishesTotal.WithLabelValues(h.name).Inc()
		slog.Error("Reentrant publish rejected", "hub", h.name)
		return fmt.Errorf("%s: %w", h.name, ErrReentrantPublish)
	}

	h.dispatching = true
	defer func() { h.dispatching = false }()

	h.current = value
	h.hasCurrent = true
	metrics.HubPublishedTotal.WithLabelValues(h.name).Inc()

	for i, c := range h.consumers {
		h.invoke(i, c, value)
	}
	return nil
}

func (h *Hub[T]) invoke(index int, c domain.Consumer[T], value T) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HubConsumerPanicsTotal.WithLabelValues(h.name).Inc()
			slog.Error("Hub consumer panic recovered",
				"hub", h.name,
				"consumer", index,
				"consumer_type", fmt.Sprintf("%T", c),
				"panic", r,
			)
		}
	}()
	c.Accept(value)
}

// Current returns the most recently published value.
func (h *Hub[T]) Current() (T, bool) {
	return h.current, h.hasCurrent
}

// Len returns the number of registered consumers.
func (h *Hub[T]) Len() int {
	return len(h.consumers)
}

// Name returns the hub's label.
func (h *Hub[T]) Name() string {
	return h.name
}
