package pathfinding

import (
	"container/heap"
	"math"
)

// FinishMaxIterations bounds Finish so unreachable goals terminate.
const FinishMaxIterations = 1000

// AStar is a resumable A* search over cells borrowed from a Grid. A session is
// reused across searches: StartSearch resets it, Step expands one cell.
type AStar struct {
	heuristic Heuristic
	weight    float64

	start, end *Cell
	open       openList
	queued     map[*Cell]*openItem
	closed     map[*Cell]struct{}
	path       []*Cell
	finished   bool

	seq       uint64
	steps     int
	largestF  float64
	smallestF float64
}

type Option func(*AStar)

// WithHeuristic replaces the default Manhattan heuristic.
func WithHeuristic(h Heuristic) Option {
	return func(a *AStar) {
		if h != nil {
			a.heuristic = h
		}
	}
}

// WithWeight scales the heuristic term. Weights above 1 trade optimality for speed.
func WithWeight(w float64) Option {
	return func(a *AStar) {
		if w >= 0 {
			a.weight = w
		}
	}
}

func NewAStar(opts ...Option) *AStar {
	a := &AStar{
		heuristic: Manhattan,
		weight:    1,
		queued:    make(map[*Cell]*openItem),
		closed:    make(map[*Cell]struct{}),
		finished:  true,
		smallestF: math.Inf(1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StartSearch primes a search from start to end. When start == end the search is
// immediately finished with the single-cell path, which IsPathValid rejects.
func (a *AStar) StartSearch(start, end *Cell) {
	a.open = a.open[:0]
	clear(a.queued)
	clear(a.closed)
	a.path = nil
	a.steps = 0
	a.largestF = 0
	a.smallestF = math.Inf(1)
	a.start, a.end = start, end
	a.finished = true

	if start == nil || end == nil {
		return
	}
	if start == end {
		a.path = []*Cell{start}
		return
	}

	a.finished = false
	start.setScores(0, 0)
	start.Previous = nil
	end.Previous = nil
	a.push(start)
}

// Step expands the open cell with the lowest F score.
func (a *AStar) Step() {
	if a.finished {
		return
	}
	if a.open.Len() == 0 {
		a.finished = true
		return
	}

	item := heap.Pop(&a.open).(*openItem)
	current := item.cell
	delete(a.queued, current)
	a.steps++

	if current == a.end {
		a.finished = true
		a.path = a.reconstruct()
		return
	}

	a.closed[current] = struct{}{}
	for _, n := range current.neighbours {
		if n == nil || !n.Traversable {
			continue
		}
		if _, done := a.closed[n]; done {
			continue
		}

		g := current.G + n.Cost
		h := a.heuristic(n, a.end) * a.weight
		f := g + h

		queued, seen := a.queued[n]
		if seen && f >= n.F {
			continue
		}
		n.setScores(g, h)
		n.Previous = current
		a.observe(f)

		if seen {
			heap.Fix(&a.open, queued.index)
		} else {
			a.push(n)
		}
	}
}

// Run steps at most n times and reports whether the search finished.
func (a *AStar) Run(n int) bool {
	for i := 0; i < n && !a.finished; i++ {
		a.Step()
	}
	return a.finished
}

// Finish steps until the search ends or FinishMaxIterations is reached. Hitting
// the ceiling force-finishes the search without a path.
func (a *AStar) Finish() {
	for i := 0; !a.finished; i++ {
		if i >= FinishMaxIterations {
			a.finished = true
			a.path = nil
			return
		}
		a.Step()
	}
}

func (a *AStar) IsFinished() bool { return a.finished }

// IsPathValid reports a path of more than one cell.
func (a *AStar) IsPathValid() bool { return len(a.path) > 1 }

// Path returns the cells from start to end, or nil when no path is known.
func (a *AStar) Path() []*Cell { return a.path }

// PathPoints returns Path as coordinates.
func (a *AStar) PathPoints() []Point { return Points(a.path) }

// Steps is the number of expansions of the current search.
func (a *AStar) Steps() int { return a.steps }

func (a *AStar) LargestFScore() float64 { return a.largestF }

// SmallestFScore is +Inf until a neighbour has been scored.
func (a *AStar) SmallestFScore() float64 { return a.smallestF }

func (a *AStar) push(c *Cell) {
	item := &openItem{cell: c, seq: a.seq}
	a.seq++
	a.queued[c] = item
	heap.Push(&a.open, item)
}

func (a *AStar) observe(f float64) {
	if f > a.largestF {
		a.largestF = f
	}
	if f < a.smallestF {
		a.smallestF = f
	}
}

func (a *AStar) reconstruct() []*Cell {
	// The walk never needs more links than cells closed in this search.
	limit := len(a.closed) + 1
	var path []*Cell
	for c := a.end; c != nil && len(path) <= limit; c = c.Previous {
		path = append(path, c)
		if c == a.start {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
