package pathfinding

import "fmt"

// Point is an integer grid coordinate.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Cell is the search state of one grid node. Cells live inside a Grid and are
// mutated in place by searches running over that grid.
type Cell struct {
	X, Y        int
	Cost        float64
	Traversable bool

	G, H, F  float64
	Previous *Cell

	neighbours []*Cell
}

// Point returns the cell coordinates.
func (c *Cell) Point() Point {
	return Point{X: c.X, Y: c.Y}
}

// Neighbours returns the adjacency computed by the last RefreshNodes.
func (c *Cell) Neighbours() []*Cell {
	return c.neighbours
}

// setScores keeps F == G + H.
func (c *Cell) setScores(g, h float64) {
	c.G = g
	c.H = h
	c.F = g + h
}

func (c *Cell) resetScores() {
	c.G, c.H, c.F = 0, 0, 0
	c.Previous = nil
}

// Points converts a cell path into coordinates.
func Points(cells []*Cell) []Point {
	if cells == nil {
		return nil
	}
	out := make([]Point, len(cells))
	for i, c := range cells {
		out[i] = c.Point()
	}
	return out
}
