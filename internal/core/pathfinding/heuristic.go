package pathfinding

import (
	"fmt"
	"math"
)

// Heuristic estimates the remaining cost from cell to end.
type Heuristic func(cell, end *Cell) float64

// Manhattan is |dx| + |dy|. Admissible for 4-way square grids.
func Manhattan(cell, end *Cell) float64 {
	return math.Abs(float64(cell.X-end.X)) + math.Abs(float64(cell.Y-end.Y))
}

// Euclidean is the straight-line distance.
func Euclidean(cell, end *Cell) float64 {
	return math.Hypot(float64(cell.X-end.X), float64(cell.Y-end.Y))
}

// Chebyshev is max(|dx|, |dy|). Admissible for 8-way square grids with unit moves.
func Chebyshev(cell, end *Cell) float64 {
	return math.Max(math.Abs(float64(cell.X-end.X)), math.Abs(float64(cell.Y-end.Y)))
}

// ParseHeuristic resolves a heuristic by name.
func ParseHeuristic(name string) (Heuristic, error) {
	switch name {
	case "", "manhattan":
		return Manhattan, nil
	case "euclidean":
		return Euclidean, nil
	case "chebyshev":
		return Chebyshev, nil
	default:
		return nil, fmt.Errorf("pathfinding: unknown heuristic %q", name)
	}
}
