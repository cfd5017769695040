package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/events/bus"
	"github.com/zeusync/habitat/internal/core/npc"
	"github.com/zeusync/habitat/internal/core/pathfinding"
)

var (
	rabbit = SpeciesConfig{Name: "rabbit", Diet: Herbivore, Speed: 3}
	fox    = SpeciesConfig{Name: "fox", Diet: Carnivore, Speed: 3}
)

// testConfig is a scenario with no initial population and frozen needs.
func testConfig(layout ...string) *Config {
	cfg := Default()
	cfg.World.Layout = layout
	cfg.Species = nil
	cfg.Vitals.HungerPerSecond = 0
	cfg.Vitals.ThirstPerSecond = 0
	cfg.Vitals.HealthDecayPerSecond = 0
	cfg.Sim.Seed = 7
	cfg.Sim.Workers = 1
	cfg.Sim.StatsEvery = 0
	cfg.Sim.TickInterval = time.Millisecond
	return cfg
}

func newTestSim(t *testing.T, events bus.EventBus, layout ...string) *Simulation {
	t.Helper()
	s, err := New(testConfig(layout...), nil, events)
	require.NoError(t, err)
	return s
}

func spawnAt(t *testing.T, s *Simulation, species SpeciesConfig, x, y int) *Animal {
	t.Helper()
	a, err := s.SpawnAt(species, pathfinding.Point{X: x, Y: y}, 11)
	require.NoError(t, err)
	return a
}

// execContext is what the manager hands an animal's tree during a tick.
func execContext(s *Simulation, a *Animal) *npc.ExecutionContext {
	return &npc.ExecutionContext{
		Blackboard: a.Tree().Blackboard(),
		Agent:      a,
		World:      s.World(),
		Grid:       s.Grid(),
		DeltaTime:  100 * time.Millisecond,
	}
}

func cellOf(s *Simulation, a *Animal) pathfinding.Point {
	return pathfinding.WorldToCell(a.Position(), s.Config().World.CellSize)
}

func targetOf(a *Animal) int64 {
	return a.Tree().Blackboard().Int(blackboard.KeyTarget, 0)
}
