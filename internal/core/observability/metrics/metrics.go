// Package metrics holds the Prometheus collectors shared by the simulation.
// Collectors register with the default registry on package load.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zeusync/habitat/internal/core/events/bus"
)

// Search outcomes.
const (
	OutcomeFound       = "found"
	OutcomeUnreachable = "unreachable"
	OutcomeSameCell    = "same_cell"
	OutcomeNoCandidate = "no_candidate"
)

var (
	// searchTotal counts completed candidate searches by outcome
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_search_total",
		Help: "Completed pathfinding queries by outcome",
	}, []string{"node", "outcome"})

	// searchSteps tracks A* expansions spent per query
	searchSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "habitat_search_steps",
		Help:    "A* expansions spent per pathfinding query",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	// nodeResults counts root results per tree
	nodeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_node_results_total",
		Help: "Behaviour tree root results by tree and status",
	}, []string{"tree", "status"})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "habitat_tick_duration_seconds",
		Help:    "Wall time spent ticking all agents once",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	agentsAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "habitat_agents_alive",
		Help: "Agents currently registered with the manager",
	})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_events_published_total",
		Help: "Events published on the simulation bus by type",
	}, []string{"type"})

	eventErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_event_handler_errors_total",
		Help: "Publishes where at least one handler failed, by type",
	}, []string{"type"})
)

// ObserveSearch records one finished query.
func ObserveSearch(node, outcome string, steps int) {
	searchTotal.WithLabelValues(node, outcome).Inc()
	if steps > 0 {
		searchSteps.Observe(float64(steps))
	}
}

// ObserveTreeResult records the root status of a tree tick.
func ObserveTreeResult(tree, status string) {
	nodeResults.WithLabelValues(tree, status).Inc()
}

// ObserveTick records the duration of a manager update.
func ObserveTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// SetAgentsAlive publishes the current agent count.
func SetAgentsAlive(n int) {
	agentsAlive.Set(float64(n))
}

// EventObserver exports bus activity to Prometheus.
type EventObserver struct{}

var _ bus.Observer = EventObserver{}

func (EventObserver) OnPublish(string, bus.Event) {}

func (EventObserver) OnDelivered(eventType string, _ int, err error, _ time.Duration) {
	eventsPublished.WithLabelValues(eventType).Inc()
	if err != nil {
		eventErrors.WithLabelValues(eventType).Inc()
	}
}
