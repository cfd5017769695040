package pathfinding

import "fmt"

// Topology defines which cells are adjacent.
type Topology interface {
	Name() string
	// Sides is the maximum number of neighbours a cell can have.
	Sides() int
	// Neighbours appends the traversable in-bounds neighbours of (x, y) to dst.
	Neighbours(g *Grid, x, y int, dst []*Cell) []*Cell
}

// Square connects orthogonal neighbours, and diagonal ones when Diagonal is set.
// A diagonal move is only allowed when both orthogonal corner cells are open.
type Square struct {
	Diagonal bool
}

var (
	squareOrthogonal = [4]Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	squareDiagonal   = [4]Point{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

func (s Square) Name() string {
	if s.Diagonal {
		return "square8"
	}
	return "square"
}

func (s Square) Sides() int {
	if s.Diagonal {
		return 8
	}
	return 4
}

func (s Square) Neighbours(g *Grid, x, y int, dst []*Cell) []*Cell {
	for _, o := range squareOrthogonal {
		if c := g.open(x+o.X, y+o.Y); c != nil {
			dst = append(dst, c)
		}
	}
	if !s.Diagonal {
		return dst
	}
	for _, o := range squareDiagonal {
		c := g.open(x+o.X, y+o.Y)
		if c == nil {
			continue
		}
		if g.open(x+o.X, y) == nil || g.open(x, y+o.Y) == nil {
			continue
		}
		dst = append(dst, c)
	}
	return dst
}

// Hex uses offset coordinates where even rows are shifted half a cell right.
// Horizontal neighbours are fixed, the four diagonal ones depend on row parity.
type Hex struct{}

var (
	hexEvenRow = [6]Point{{1, 0}, {-1, 0}, {0, -1}, {1, -1}, {0, 1}, {1, 1}}
	hexOddRow  = [6]Point{{1, 0}, {-1, 0}, {-1, -1}, {0, -1}, {-1, 1}, {0, 1}}
)

func (Hex) Name() string { return "hex" }

func (Hex) Sides() int { return 6 }

func (Hex) Neighbours(g *Grid, x, y int, dst []*Cell) []*Cell {
	offsets := hexEvenRow
	if y%2 != 0 {
		offsets = hexOddRow
	}
	for _, o := range offsets {
		if c := g.open(x+o.X, y+o.Y); c != nil {
			dst = append(dst, c)
		}
	}
	return dst
}

// Triangle alternates orientation in a checkerboard. Every cell touches its left
// and right neighbours plus one vertical neighbour on its flat side.
type Triangle struct{}

// PointsUp reports whether the triangle at (x, y) points up. Up triangles
// connect to the row above, down triangles to the row below.
func PointsUp(x, y int) bool {
	return (x+y)%2 == 0
}

func (Triangle) Name() string { return "triangle" }

func (Triangle) Sides() int { return 3 }

func (Triangle) Neighbours(g *Grid, x, y int, dst []*Cell) []*Cell {
	if c := g.open(x-1, y); c != nil {
		dst = append(dst, c)
	}
	if c := g.open(x+1, y); c != nil {
		dst = append(dst, c)
	}
	dy := 1
	if PointsUp(x, y) {
		dy = -1
	}
	if c := g.open(x, y+dy); c != nil {
		dst = append(dst, c)
	}
	return dst
}

// ParseTopology resolves a topology by name.
func ParseTopology(name string) (Topology, error) {
	switch name {
	case "", "square":
		return Square{}, nil
	case "square8":
		return Square{Diagonal: true}, nil
	case "hex":
		return Hex{}, nil
	case "triangle":
		return Triangle{}, nil
	default:
		return nil, fmt.Errorf("pathfinding: unknown topology %q", name)
	}
}
