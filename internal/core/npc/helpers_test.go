package npc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
)

// scripted returns its results in order, repeating the last one.
type scripted struct {
	*BaseNode
	results []Status
	calls   int
	resets  int
}

func newScripted(results ...Status) *scripted {
	return &scripted{BaseNode: NewBaseNode("scripted", "Scripted"), results: results}
}

func (s *scripted) Execute(*ExecutionContext) Status {
	i := min(s.calls, len(s.results)-1)
	s.calls++
	return s.results[i]
}

func (s *scripted) Reset() { s.resets++ }

// testAgent mirrors its position into a registry entry.
type testAgent struct {
	id      world.EntityID
	pos     r2.Vec
	heading float64
	reg     *world.Registry
}

func (a *testAgent) ID() world.EntityID { return a.id }
func (a *testAgent) Position() r2.Vec   { return a.pos }
func (a *testAgent) Heading() float64   { return a.heading }

func (a *testAgent) SetPosition(p r2.Vec) {
	a.pos = p
	if a.reg != nil {
		a.reg.SetPosition(a.id, p)
	}
}

func (a *testAgent) SetHeading(h float64) {
	a.heading = h
	if a.reg != nil {
		a.reg.SetHeading(a.id, h)
	}
}

func spawnAgent(reg *world.Registry, pos r2.Vec, tags ...string) *testAgent {
	return &testAgent{id: reg.Spawn(pos, tags...), pos: pos, reg: reg}
}

func newContext(dt time.Duration) *ExecutionContext {
	return &ExecutionContext{
		Blackboard: blackboard.New(blackboard.WithStrict(true)),
		DeltaTime:  dt,
	}
}

func newGrid(t *testing.T, w, h int, blocked ...pathfinding.Point) *pathfinding.Grid {
	t.Helper()
	g, err := pathfinding.NewGrid(w, h, pathfinding.Square{})
	require.NoError(t, err)
	for _, p := range blocked {
		g.SetTraversable(p.X, p.Y, false)
	}
	g.RefreshNodes()
	return g
}

func tickN(ctx *ExecutionContext, n Node, times int) []Status {
	out := make([]Status, 0, times)
	for i := 0; i < times; i++ {
		out = append(out, n.Execute(ctx))
	}
	return out
}

// cellCenter places an entity in the middle of cell (x, y) with unit cells.
func cellCenter(x, y int) r2.Vec {
	return r2.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

const (
	S = StatusSuccess
	F = StatusFailure
	P = StatusPending
)
