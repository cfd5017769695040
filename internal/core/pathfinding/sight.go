package pathfinding

// LineOfSight walks the Bresenham line between two cells and reports whether
// every cell on it is traversable. The endpoints themselves are not tested.
func LineOfSight(src Source, from, to Point) bool {
	if src == nil {
		return true
	}
	unlock := readLock(src)
	defer unlock()

	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	e := dx + dy
	x, y := from.X, from.Y
	for {
		if (x != from.X || y != from.Y) && (x != to.X || y != to.Y) {
			if !src.Cell(x, y).Traversable {
				return false
			}
		}
		if x == to.X && y == to.Y {
			return true
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
