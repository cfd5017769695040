package sim

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/habitat/internal/core/events/bus"
	"github.com/zeusync/habitat/internal/core/npc"
)

type recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recorder) handle(e bus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(typ string) []bus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bus.Event
	for _, e := range r.events {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

func subscribeAll(t *testing.T, events bus.EventBus) *recorder {
	t.Helper()
	rec := &recorder{}
	_, err := events.Subscribe(bus.Wildcard, rec.handle)
	require.NoError(t, err)
	return rec
}

func TestNewSpawnsDefaultScenario(t *testing.T) {
	events := bus.New()
	rec := subscribeAll(t, events)

	s, err := New(Default(), nil, events)
	require.NoError(t, err)

	assert.Equal(t, 15, s.Manager().Len())
	assert.Len(t, s.World().EntitiesByTag(TagWaterSource), 34)
	assert.Len(t, s.World().EntitiesByTag(TagHerbivoreFood), 19)
	assert.Len(t, s.World().EntitiesByTag(TagCarnivoreFood), 2)
	assert.Len(t, s.World().EntitiesByTag(TagPredator), 3)
	assert.Len(t, s.World().EntitiesByTag(TagPassiveCreature), 12)
	assert.Len(t, rec.ofType(EventAgentSpawned), 15)

	for _, a := range s.Manager().Animals() {
		cell := cellOf(s, a)
		assert.True(t, s.Grid().Traversable(cell.X, cell.Y), "spawned on rock at %v", cell)
		assert.Equal(t, FoodTags(a.Species().Diet), a.Tree().Blackboard().Strings("TargetTags", nil))
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)

	cfg := testConfig("#.#")
	cfg.World.Topology = "spiral"
	_, err = New(cfg, nil, nil)
	assert.Error(t, err)

	cfg = testConfig("#.#")
	cfg.Tree = "missing-tree.yaml"
	_, err = New(cfg, nil, nil)
	assert.Error(t, err)

	cfg = testConfig("###")
	cfg.Species = []SpeciesConfig{rabbit}
	cfg.Species[0].Count = 1
	_, err = New(cfg, nil, nil)
	assert.ErrorContains(t, err, "no open cell")
}

func TestSpawnAtRejectsRock(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	_, err := s.SpawnAt(rabbit, cellOf(s, spawnAt(t, s, rabbit, 1, 1)), 1)
	require.NoError(t, err, "animals may share a cell")

	a, err := s.SpawnAt(rabbit, s.Grid().Cell(0, 0).Point(), 1)
	assert.Error(t, err)
	assert.Nil(t, a)
}

func TestStepPublishesSnapshot(t *testing.T) {
	events := bus.New()
	rec := subscribeAll(t, events)
	s := newTestSim(t, events, openField...)
	a := spawnAt(t, s, rabbit, 1, 1)

	snap, err := s.Step(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Tick)
	assert.InDelta(t, 0.1, snap.Time, 1e-9)
	require.Len(t, snap.Animals, 1)
	assert.Equal(t, a.UUID().String(), snap.Animals[0].ID)
	assert.Equal(t, "rabbit", snap.Animals[0].Species)

	ticks := rec.ofType(EventTick)
	require.Len(t, ticks, 1)
	assert.Equal(t, snap, ticks[0].Data())
	assert.Equal(t, snap, s.Snapshot())
}

func TestStepReportsDeaths(t *testing.T) {
	events := bus.New()
	rec := subscribeAll(t, events)
	s := newTestSim(t, events, openField...)
	a := spawnAt(t, s, fox, 1, 1)
	a.Kill()

	snap, err := s.Step(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, snap.Animals)
	assert.Equal(t, uint64(1), snap.Deaths)

	died := rec.ofType(EventAgentDied)
	require.Len(t, died, 1)
	assert.Equal(t, a.UUID().String(), died[0].Data().(AnimalState).ID)
}

func TestStepExportsStats(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(openField...)
	cfg.Sim.StatsEvery = 2
	cfg.Species = []SpeciesConfig{rabbit}
	cfg.Species[0].Count = 2

	s, err := New(cfg, nil, nil, WithStats(NewStatsWriter(&buf)))
	require.NoError(t, err)
	for range 4 {
		_, err := s.Step(context.Background(), 50*time.Millisecond)
		require.NoError(t, err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2,0.1,2,2,"))
	assert.True(t, strings.HasPrefix(lines[2], "4,0.2,2,2,"))
}

func TestRunStopsAtTickLimit(t *testing.T) {
	cfg := testConfig(openField...)
	cfg.Sim.MaxTicks = 3
	s, err := New(cfg, nil, nil)
	require.NoError(t, err)
	spawnAt(t, s, rabbit, 1, 1)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, uint64(3), s.Snapshot().Tick)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	spawnAt(t, s, rabbit, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.Positive(t, s.Snapshot().Tick)
}

func TestRunStopsOnExtinction(t *testing.T) {
	events := bus.New()
	rec := subscribeAll(t, events)
	s := newTestSim(t, events, openField...)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, uint64(1), s.Snapshot().Tick)
	assert.Len(t, rec.ofType(EventExtinct), 1)
}

func TestWithTreeReplacesBehaviour(t *testing.T) {
	tree, err := npc.LoadYAML(strings.NewReader(`
root: idle
nodes:
  idle: {type: Wait, params: {duration: 10s}}
`))
	require.NoError(t, err)

	cfg := testConfig(openField...)
	s, err := New(cfg, nil, nil, WithTree(tree))
	require.NoError(t, err)
	a := spawnAt(t, s, rabbit, 1, 1)
	start := a.Position()

	for range 5 {
		_, err := s.Step(context.Background(), 100*time.Millisecond)
		require.NoError(t, err)
	}
	assert.Equal(t, start, a.Position())
	assert.Equal(t, "Wait", a.Tree().Root().GetType())
}
