package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Handlers subscribe by Event.Type() and are called synchronously in the
// publisher's goroutine. Handler errors are joined and returned from Publish.
// Observers see every publish and delivery; counters in Metrics are only
// collected while at least one observer is registered.
type EventBus interface {
	// Publish delivers the event to all active subscribers of event.Type().
	Publish(event Event) error
	// PublishAsync publishes in a separate goroutine. The returned channel
	// receives the joined handler error (or nil) and is then closed.
	PublishAsync(event Event) <-chan error
	// Subscribe registers a handler for an event type. Subscribing to
	// Wildcard receives every event.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is ignored.
	Unsubscribe(Subscription) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// Metrics returns a snapshot of the counters.
	Metrics() Metrics
}

// Event is an immutable message transported by the bus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

// EventHandler is called once per delivered event.
type EventHandler func(event Event) error

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about publishes and deliveries. Implementations should
// return quickly.
type Observer interface {
	OnPublish(eventType string, event Event)
	OnDelivered(eventType string, handlers int, err error, elapsed time.Duration)
}

// Metrics holds the bus counters.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
