//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/habitat/internal/core/observability/log"
	"github.com/zeusync/habitat/internal/core/sim"
	"github.com/zeusync/habitat/internal/server"
)

func InitializeApp(cfg *sim.Config, serverConfig server.Config, level log.Level, stats *sim.StatsWriter) (*App, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
