// Package injector assembles the logger, event bus, simulation and observer
// server. InitializeApp is generated by wire from injector.go.
package injector

import (
	"context"
	"errors"
	"time"

	"github.com/google/wire"

	"github.com/zeusync/habitat/internal/core/events/bus"
	"github.com/zeusync/habitat/internal/core/observability/log"
	"github.com/zeusync/habitat/internal/core/observability/metrics"
	"github.com/zeusync/habitat/internal/core/sim"
	"github.com/zeusync/habitat/internal/server"
)

const shutdownTimeout = 5 * time.Second

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideEventBus,
	ProvideSimulation,
	ProvideServer,
	NewApp,
)

func ProvideLogger(level log.Level) *log.Logger {
	return log.New(level)
}

// ProvideEventBus returns a bus whose traffic is exported to Prometheus.
func ProvideEventBus() bus.EventBus {
	events := bus.New()
	events.AddObserver(metrics.EventObserver{})
	return events
}

func ProvideSimulation(cfg *sim.Config, logger log.Log, events bus.EventBus, stats *sim.StatsWriter) (*sim.Simulation, error) {
	return sim.New(cfg, logger, events, sim.WithStats(stats))
}

// ProvideServer returns nil when no listen address is configured.
func ProvideServer(config server.Config, simulation *sim.Simulation, events bus.EventBus, logger log.Log) (*server.HTTPServer, error) {
	if config.Addr == "" {
		return nil, nil
	}
	return server.NewHTTPServer(config, simulation, events, logger)
}

type App struct {
	Simulation *sim.Simulation
	Server     *server.HTTPServer
	Logger     *log.Logger
}

func NewApp(simulation *sim.Simulation, srv *server.HTTPServer, logger *log.Logger) *App {
	return &App{
		Simulation: simulation,
		Server:     srv,
		Logger:     logger,
	}
}

// Run serves observers while the simulation runs, then shuts the server down.
func (a *App) Run(ctx context.Context) error {
	if a.Server != nil {
		if err := a.Server.Start(ctx); err != nil {
			return err
		}
	}

	runErr := a.Simulation.Run(ctx)

	var stopErr error
	if a.Server != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopErr = a.Server.Stop(stopCtx)
	}

	snap := a.Simulation.Snapshot()
	a.Logger.Info("Simulation finished",
		log.Uint64("ticks", snap.Tick),
		log.Int("alive", len(snap.Animals)),
		log.Uint64("deaths", snap.Deaths))
	_ = a.Logger.Sync()

	return errors.Join(runErr, stopErr)
}
