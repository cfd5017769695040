package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/npc"
	"github.com/zeusync/habitat/internal/core/pathfinding"
)

var openField = []string{
	"#########",
	"#.......#",
	"#.......#",
	"#.......#",
	"#########",
}

func TestLoadTree(t *testing.T) {
	cfg, err := LoadTree("")
	require.NoError(t, err)
	assert.Equal(t, "behaviour", cfg.Root)

	root, err := cfg.Build(NewBehaviourRegistry(VitalsConfig{}, nil))
	require.NoError(t, err)

	var names []string
	for _, child := range root.(npc.CompositeNode).GetChildren() {
		names = append(names, child.GetName())
	}
	assert.Equal(t, []string{"predator", "water", "food", "wander"}, names)

	_, err = LoadTree("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestNeedPredicates(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	a := spawnAt(t, s, rabbit, 1, 1)
	reg := NewBehaviourRegistry(s.Config().Vitals, nil)
	ctx := execContext(s, a)

	thirsty, err := reg.Predicate("thirsty")
	require.NoError(t, err)
	hungry, err := reg.Predicate("hungry")
	require.NoError(t, err)
	prey, err := reg.Predicate("prey")
	require.NoError(t, err)

	assert.False(t, thirsty(ctx))
	assert.False(t, hungry(ctx))
	assert.True(t, prey(ctx))

	a.SetThirst(0.45)
	assert.True(t, thirsty(ctx))

	// The stronger need wins, and only past its threshold.
	a.SetHunger(0.6)
	assert.False(t, thirsty(ctx))
	assert.True(t, hungry(ctx))
	a.SetThirst(0)
	a.SetHunger(0.45)
	assert.False(t, hungry(ctx))

	predator := spawnAt(t, s, fox, 2, 1)
	assert.False(t, prey(execContext(s, predator)))
	assert.False(t, thirsty(&npc.ExecutionContext{Blackboard: blackboard.New()}))
}

func TestSearchingPredicate(t *testing.T) {
	searching, err := NewBehaviourRegistry(VitalsConfig{}, nil).Predicate("searching")
	require.NoError(t, err)

	bb := blackboard.New()
	ctx := &npc.ExecutionContext{Blackboard: bb}
	assert.True(t, searching(ctx), "first pass")

	bb.SetInt(blackboard.KeyRepeatCount, 2)
	assert.False(t, searching(ctx))
	bb.SetPath(blackboard.KeyPath, []pathfinding.Point{{X: 1, Y: 1}})
	assert.True(t, searching(ctx), "still walking")
}

func TestTrimPath(t *testing.T) {
	bb := blackboard.New()
	ctx := &npc.ExecutionContext{Blackboard: bb}

	assert.False(t, trimPath(ctx))

	bb.SetPath(blackboard.KeyPath, []pathfinding.Point{{X: 1}, {X: 2}})
	assert.True(t, trimPath(ctx))
	assert.Equal(t, []pathfinding.Point{{X: 1}}, bb.Path(blackboard.KeyPath, nil))

	bb.SetPath(blackboard.KeyPath, nil)
	assert.True(t, trimPath(ctx))
	assert.True(t, bb.Exists(blackboard.KeyPath))
	assert.Empty(t, bb.Path(blackboard.KeyPath, nil))
}

func TestEatPrey(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	hunter := spawnAt(t, s, fox, 1, 1)
	prey := spawnAt(t, s, rabbit, 3, 1)
	hunter.SetHunger(0.9)

	ctx := execContext(s, hunter)
	ctx.Blackboard.SetInt(blackboard.KeyTarget, int64(prey.ID()))
	ctx.Blackboard.SetPath(blackboard.KeyPath, nil)

	require.True(t, eat(ctx, s.Manager().ByEntity))
	assert.InDelta(t, 0.4, hunter.Vitals().Hunger, 1e-9)
	assert.False(t, prey.Alive())
	assert.False(t, ctx.Blackboard.Exists(blackboard.KeyPath))

	// A carcass has nothing left to give.
	hunter.SetHunger(0.9)
	require.True(t, eat(ctx, s.Manager().ByEntity))
	assert.InDelta(t, 0.9, hunter.Vitals().Hunger, 1e-9)

	dead, err := s.Manager().Update(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, prey.UUID().String(), dead[0].ID)
	_, exists := s.World().Entity(prey.ID())
	assert.False(t, exists)
}

func TestEatPlantsAndVanishedTargets(t *testing.T) {
	s := newTestSim(t, nil,
		"#####",
		"#.*.#",
		"#####",
	)
	grass := s.World().EntitiesByTag(TagHerbivoreFood)
	require.Len(t, grass, 1)

	a := spawnAt(t, s, rabbit, 1, 1)
	a.SetHunger(0.8)
	ctx := execContext(s, a)

	// Nothing targeted yet: the trip is wasted but the hunt goes on.
	assert.True(t, eat(ctx, s.Manager().ByEntity))
	assert.InDelta(t, 0.8, a.Vitals().Hunger, 1e-9)

	ctx.Blackboard.SetInt(blackboard.KeyTarget, int64(grass[0].ID))
	assert.True(t, eat(ctx, s.Manager().ByEntity))
	assert.Zero(t, a.Vitals().Hunger)
	_, exists := s.World().Entity(grass[0].ID)
	assert.True(t, exists, "grass is not used up")

	a.SetHunger(0.8)
	ctx.Blackboard.SetInt(blackboard.KeyTarget, 999)
	assert.True(t, eat(ctx, s.Manager().ByEntity))
	assert.InDelta(t, 0.8, a.Vitals().Hunger, 1e-9)

	assert.False(t, eat(&npc.ExecutionContext{Blackboard: blackboard.New()}, nil))
}

func TestWanderDirection(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	a := spawnAt(t, s, rabbit, 3, 2)
	ctx := execContext(s, a)

	for range 10 {
		require.True(t, wanderDirection(ctx))
		dir := npc.Direction(ctx.Blackboard, r2.Vec{})
		assert.InDelta(t, 1, r2.Norm(dir), 1e-9)
		assert.True(t, dir.X == 0 || dir.Y == 0, "axis aligned: %v", dir)
		assert.InDelta(t, rabbit.Speed/2, ctx.Blackboard.Float(blackboard.KeySpeed, 0), 1e-9)
	}

	boxed := newTestSim(t, nil,
		"###",
		"#.#",
		"###",
	)
	stuck := spawnAt(t, boxed, rabbit, 1, 1)
	assert.False(t, wanderDirection(execContext(boxed, stuck)))
}

func TestFleeDirection(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	hunter := spawnAt(t, s, fox, 1, 2)
	a := spawnAt(t, s, rabbit, 4, 2)
	ctx := execContext(s, a)
	ctx.Blackboard.SetInt(blackboard.KeyTarget, int64(hunter.ID()))
	ctx.Blackboard.SetPath(blackboard.KeyPath, []pathfinding.Point{{X: 2, Y: 2}})
	ctx.Blackboard.SetFloat(blackboard.KeySpeed, 1)

	require.True(t, fleeDirection(ctx))
	dir := npc.Direction(ctx.Blackboard, r2.Vec{})
	assert.InDelta(t, 1, dir.X, 1e-9)
	assert.InDelta(t, 0, dir.Y, 1e-9)
	assert.InDelta(t, rabbit.Speed, ctx.Blackboard.Float(blackboard.KeySpeed, 0), 1e-9)
	assert.False(t, ctx.Blackboard.Exists(blackboard.KeyPath))

	// With the predator gone the rabbit still bolts somewhere.
	ctx.Blackboard.SetInt(blackboard.KeyTarget, 999)
	require.True(t, fleeDirection(ctx))
	assert.InDelta(t, 1, r2.Norm(npc.Direction(ctx.Blackboard, r2.Vec{})), 1e-9)
}

func TestFreeMovementStopsAtRock(t *testing.T) {
	s := newTestSim(t, nil,
		"#####",
		"#...#",
		"#####",
	)
	a := spawnAt(t, s, rabbit, 1, 1)
	start := a.Position()

	a.SetPosition(r2.Vec{X: 0.5, Y: 1.5})
	assert.Equal(t, start, a.Position(), "rock")
	a.SetPosition(r2.Vec{X: -3, Y: 1.5})
	assert.Equal(t, start, a.Position(), "off the map")

	a.SetPosition(r2.Vec{X: 2.5, Y: 1.5})
	assert.Equal(t, r2.Vec{X: 2.5, Y: 1.5}, a.Position())

	// Path following is trusted to stay on open cells.
	a.Tree().Blackboard().SetPath(blackboard.KeyPath, []pathfinding.Point{{X: 3, Y: 1}})
	a.SetPosition(r2.Vec{X: 2.5, Y: 0.9})
	assert.Equal(t, r2.Vec{X: 2.5, Y: 0.9}, a.Position())
}

func TestThirstyAnimalWalksToWaterAndDrinks(t *testing.T) {
	s := newTestSim(t, nil,
		"#########",
		"#......~#",
		"#.......#",
		"#.......#",
		"#########",
	)
	a := spawnAt(t, s, rabbit, 1, 3)
	a.SetThirst(0.9)

	for i := 0; i < 200 && a.Vitals().Thirst > 0; i++ {
		_, err := s.Step(context.Background(), 100*time.Millisecond)
		require.NoError(t, err)
	}

	require.Zero(t, a.Vitals().Thirst)
	water := s.World().EntitiesByTag(TagWaterSource)
	require.Len(t, water, 1)
	assert.Equal(t, int64(water[0].ID), targetOf(a))

	// The walk ends one step short of the water cell.
	cell := cellOf(s, a)
	assert.LessOrEqual(t, abs(cell.X-7)+abs(cell.Y-1), 2)
	assert.NotEqual(t, pathfinding.Point{X: 7, Y: 1}, cell)
}

func TestPreyFleesFromPredator(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	spawnAt(t, s, fox, 1, 2)
	a := spawnAt(t, s, rabbit, 3, 2)
	start := a.Position()

	_, err := s.Step(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)

	assert.Greater(t, a.Position().X, start.X)
	assert.InDelta(t, rabbit.Speed, a.Tree().Blackboard().Float(blackboard.KeySpeed, 0), 1e-9)
}

func TestHungryHunterKillsPrey(t *testing.T) {
	s := newTestSim(t, nil,
		"#######",
		"#.....#",
		"#######",
	)
	hunter := spawnAt(t, s, fox, 1, 1)
	prey := spawnAt(t, s, rabbit, 5, 1)
	hunter.SetHunger(0.9)

	died := false
	for i := 0; i < 300 && !died; i++ {
		_, err := s.Step(context.Background(), 100*time.Millisecond)
		require.NoError(t, err)
		_, err = s.Manager().Get(prey.UUID())
		died = err != nil
	}

	require.True(t, died, "the corridor leaves nowhere to run")
	assert.Less(t, hunter.Vitals().Hunger, 0.9)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
