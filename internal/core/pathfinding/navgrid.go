package pathfinding

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// WorldToCell converts a world position to the cell containing it.
// A non-positive cell size is treated as 1.
func WorldToCell(pos r2.Vec, cellSize float64) Point {
	if cellSize <= 0 {
		cellSize = 1
	}
	return Point{
		X: int(math.Floor(pos.X / cellSize)),
		Y: int(math.Floor(pos.Y / cellSize)),
	}
}

// CellCenter returns the world position of the centre of a cell.
func CellCenter(p Point, cellSize float64) r2.Vec {
	if cellSize <= 0 {
		cellSize = 1
	}
	return r2.Vec{
		X: (float64(p.X) + 0.5) * cellSize,
		Y: (float64(p.Y) + 0.5) * cellSize,
	}
}
