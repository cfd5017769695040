package pathfinding

import (
	"errors"
	"sync"
)

var ErrInvalidSize = errors.New("pathfinding: grid width and height must be positive")

// Source is the read side of a world grid that searches copy from.
type Source interface {
	Width() int
	Height() int
	Cell(x, y int) *Cell
	Topology() Topology
	RefreshNodes()
}

var _ Source = (*Grid)(nil)

// Grid is a fixed size 2D array of cells with a pluggable adjacency rule.
// Width and height never change after construction.
//
// The mutex guards traversability/cost edits against concurrent readers such
// as CopyGrid. Search state on the cells is not guarded: a grid that is being
// searched belongs to a single goroutine.
type Grid struct {
	mu       sync.RWMutex
	width    int
	height   int
	topology Topology
	cells    []Cell
}

// NewGrid allocates a grid of traversable cells with cost 1 and computes adjacency.
func NewGrid(width, height int, topology Topology) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	if topology == nil {
		topology = Square{}
	}
	g := &Grid{
		width:    width,
		height:   height,
		topology: topology,
		cells:    make([]Cell, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := &g.cells[y*width+x]
			c.X, c.Y = x, y
			c.Cost = 1
			c.Traversable = true
		}
	}
	g.RefreshNodes()
	return g, nil
}

func (g *Grid) Width() int { return g.width }

func (g *Grid) Height() int { return g.height }

func (g *Grid) Topology() Topology { return g.topology }

// InBounds reports whether (x, y) addresses a cell.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// Cell returns the cell at (x, y). Coordinates outside the grid are clamped to
// the nearest edge so rounding in world-to-grid conversion never fails.
func (g *Grid) Cell(x, y int) *Cell {
	x = clamp(x, 0, g.width-1)
	y = clamp(y, 0, g.height-1)
	return &g.cells[y*g.width+x]
}

// SetTraversable changes a cell's traversability. Call RefreshNodes afterwards
// to rebuild adjacency.
func (g *Grid) SetTraversable(x, y int, traversable bool) {
	if !g.InBounds(x, y) {
		return
	}
	g.mu.Lock()
	g.cells[y*g.width+x].Traversable = traversable
	g.mu.Unlock()
}

// SetCost changes the cost of entering a cell. Negative costs are stored as 0.
func (g *Grid) SetCost(x, y int, cost float64) {
	if !g.InBounds(x, y) {
		return
	}
	if cost < 0 {
		cost = 0
	}
	g.mu.Lock()
	g.cells[y*g.width+x].Cost = cost
	g.mu.Unlock()
}

// Traversable reports the traversability of an in-bounds cell, false otherwise.
func (g *Grid) Traversable(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cells[y*g.width+x].Traversable
}

// RefreshNodes recomputes every neighbour list from the current traversability
// and zeroes the search scores. Running it twice without edits yields the same lists.
func (g *Grid) RefreshNodes() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.cells {
		c := &g.cells[i]
		c.neighbours = g.topology.Neighbours(g, c.X, c.Y, c.neighbours[:0])
		c.resetScores()
	}
}

// open returns the in-bounds traversable cell at (x, y) or nil.
func (g *Grid) open(x, y int) *Cell {
	if !g.InBounds(x, y) {
		return nil
	}
	c := &g.cells[y*g.width+x]
	if !c.Traversable {
		return nil
	}
	return c
}

// ForEach visits every cell in row-major order.
func (g *Grid) ForEach(fn func(c *Cell)) {
	for i := range g.cells {
		fn(&g.cells[i])
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
