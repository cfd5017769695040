package pathfinding

import (
	"container/heap"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrid(t *testing.T, w, h int, topo Topology, blocked ...Point) *Grid {
	t.Helper()
	g, err := NewGrid(w, h, topo)
	require.NoError(t, err)
	for _, p := range blocked {
		g.SetTraversable(p.X, p.Y, false)
	}
	g.RefreshNodes()
	return g
}

func assertConnected(t *testing.T, path []*Cell) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		assert.Contains(t, path[i-1].Neighbours(), path[i], "step %d", i)
	}
}

func TestAStarOptimalSquare(t *testing.T) {
	g := newTestGrid(t, 5, 5, Square{})
	a := NewAStar()

	a.StartSearch(g.Cell(0, 0), g.Cell(3, 4))
	a.Finish()

	require.True(t, a.IsFinished())
	require.True(t, a.IsPathValid())
	path := a.Path()
	assert.Len(t, path, 8)
	assert.Equal(t, Point{0, 0}, path[0].Point())
	assert.Equal(t, Point{3, 4}, path[len(path)-1].Point())
	assertConnected(t, path)
}

func TestAStarAvoidsObstacle(t *testing.T) {
	g := newTestGrid(t, 5, 5, Square{}, Point{2, 2})
	a := NewAStar()

	a.StartSearch(g.Cell(0, 0), g.Cell(4, 4))
	a.Finish()

	require.True(t, a.IsPathValid())
	assert.Len(t, a.Path(), 9)
	assert.NotContains(t, a.PathPoints(), Point{2, 2})
	assertConnected(t, a.Path())
}

func TestAStarRespectsCost(t *testing.T) {
	g := newTestGrid(t, 3, 3, Square{})
	g.SetCost(1, 1, 10)

	a := NewAStar()
	a.StartSearch(g.Cell(0, 1), g.Cell(2, 1))
	a.Finish()

	require.True(t, a.IsPathValid())
	assert.NotContains(t, a.PathPoints(), Point{1, 1})
	assert.Len(t, a.Path(), 5)
	assert.Equal(t, 4.0, a.Path()[4].G)
}

func TestAStarUnreachable(t *testing.T) {
	g := newTestGrid(t, 5, 5, Square{}, Point{3, 4}, Point{4, 3}, Point{3, 3})
	a := NewAStar()

	a.StartSearch(g.Cell(0, 0), g.Cell(4, 4))
	a.Finish()

	assert.True(t, a.IsFinished())
	assert.False(t, a.IsPathValid())
	assert.Empty(t, a.Path())
	assert.Less(t, a.Steps(), FinishMaxIterations)
}

func TestAStarFinishCeiling(t *testing.T) {
	g := newTestGrid(t, 60, 60, Square{}, Point{58, 59}, Point{59, 58})
	a := NewAStar()

	a.StartSearch(g.Cell(0, 0), g.Cell(59, 59))
	a.Finish()

	assert.True(t, a.IsFinished())
	assert.False(t, a.IsPathValid())
	assert.Nil(t, a.Path())
	assert.Equal(t, FinishMaxIterations, a.Steps())
}

func TestAStarSameCell(t *testing.T) {
	g := newTestGrid(t, 3, 3, Square{})
	a := NewAStar()

	a.StartSearch(g.Cell(1, 1), g.Cell(1, 1))

	assert.True(t, a.IsFinished())
	assert.Len(t, a.Path(), 1)
	assert.False(t, a.IsPathValid())
}

func TestAStarStepIsIncremental(t *testing.T) {
	g := newTestGrid(t, 10, 10, Square{})
	a := NewAStar()
	a.StartSearch(g.Cell(0, 0), g.Cell(9, 9))

	assert.False(t, a.Run(3))
	assert.Equal(t, 3, a.Steps())
	assert.Nil(t, a.Path())

	for !a.IsFinished() {
		a.Step()
	}
	assert.Len(t, a.Path(), 19)

	// Stepping a finished search is a no-op.
	steps := a.Steps()
	a.Step()
	assert.Equal(t, steps, a.Steps())
}

func TestAStarScoresStayConsistent(t *testing.T) {
	g := newTestGrid(t, 6, 6, Square{}, Point{2, 1}, Point{2, 2}, Point{2, 3})
	a := NewAStar(WithHeuristic(Euclidean), WithWeight(1.5))
	a.StartSearch(g.Cell(0, 2), g.Cell(5, 2))
	a.Finish()

	require.True(t, a.IsPathValid())
	g.ForEach(func(c *Cell) {
		assert.InDelta(t, c.G+c.H, c.F, 1e-9)
	})
	assert.False(t, math.IsInf(a.SmallestFScore(), 1))
	assert.LessOrEqual(t, a.SmallestFScore(), a.LargestFScore())
}

func TestAStarDiagonalChebyshev(t *testing.T) {
	g := newTestGrid(t, 4, 4, Square{Diagonal: true})
	a := NewAStar(WithHeuristic(Chebyshev))
	a.StartSearch(g.Cell(0, 0), g.Cell(3, 3))
	a.Finish()

	require.True(t, a.IsPathValid())
	assert.Len(t, a.Path(), 4)
}

func TestAStarHexAndTriangle(t *testing.T) {
	hex := newTestGrid(t, 6, 6, Hex{})
	a := NewAStar()
	a.StartSearch(hex.Cell(0, 0), hex.Cell(5, 5))
	a.Finish()
	require.True(t, a.IsPathValid())
	assertConnected(t, a.Path())

	tri := newTestGrid(t, 6, 6, Triangle{})
	a.StartSearch(tri.Cell(0, 0), tri.Cell(5, 5))
	a.Finish()
	require.True(t, a.IsPathValid())
	assertConnected(t, a.Path())
}

func TestAStarSessionReuse(t *testing.T) {
	g := newTestGrid(t, 5, 5, Square{})
	a := NewAStar()

	a.StartSearch(g.Cell(0, 0), g.Cell(4, 0))
	a.Finish()
	require.Len(t, a.Path(), 5)

	a.StartSearch(g.Cell(0, 0), g.Cell(0, 3))
	a.Finish()
	require.Len(t, a.Path(), 4)
	assert.Equal(t, Point{0, 3}, a.Path()[3].Point())
}

func TestOpenListTieBreakFirstInserted(t *testing.T) {
	cells := []*Cell{{X: 0, F: 2}, {X: 1, F: 1}, {X: 2, F: 1}, {X: 3, F: 1}}
	var o openList
	for i, c := range cells {
		heap.Push(&o, &openItem{cell: c, seq: uint64(i)})
	}

	var order []int
	for o.Len() > 0 {
		order = append(order, heap.Pop(&o).(*openItem).cell.X)
	}
	assert.Equal(t, []int{1, 2, 3, 0}, order)
}

func TestParseHeuristic(t *testing.T) {
	end := &Cell{X: 3, Y: 4}
	start := &Cell{}
	for name, want := range map[string]float64{"manhattan": 7, "euclidean": 5, "chebyshev": 4} {
		h, err := ParseHeuristic(name)
		require.NoError(t, err)
		assert.InDelta(t, want, h(start, end), 1e-9, name)
	}
	_, err := ParseHeuristic("zigzag")
	assert.Error(t, err)
}
