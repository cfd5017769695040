package npc

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/observability/log"
	"github.com/zeusync/habitat/internal/core/observability/metrics"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
)

const (
	// DefaultSearchSteps bounds the A* expansions spent on each candidate.
	DefaultSearchSteps = 500
	// DefaultNavigatableSight applies when FromBlackboard is set and Sight is absent.
	DefaultNavigatableSight = 10000.0
)

// FindClosestNavigatableNode picks the nearest tagged entity the agent can
// actually reach and publishes the path to it.
//
// Candidates are visited in order of straight-line distance. Each one gets a
// bounded search on a private copy of the world grid; the copy is refreshed
// only when the grid fingerprint changes. A candidate is skipped when its
// search finds no path, or when the smallest F score seen while searching
// exceeds the best accepted so far. That second rule compares scores across
// different goals and can drop a cheaper target on uneven terrain.
//
// With Background set the search runs on its own goroutine against its own
// grid copy; the node reports Pending until the result arrives and commits it
// to the blackboard on the tick that receives it.
type FindClosestNavigatableNode struct {
	*BaseNode
	Sight          float64
	TargetTags     []string
	FromBlackboard bool
	Background     bool
	MaxSteps       int

	snapshot pathfinding.Snapshot
	astar    *pathfinding.AStar
	job      *navJob
}

type navCandidate struct {
	id       world.EntityID
	cell     pathfinding.Point
	distance float64
}

type navQuery struct {
	from       pathfinding.Point
	candidates []navCandidate
	maxSteps   int
}

type navResult struct {
	outcome string
	target  world.EntityID
	path    []pathfinding.Point
	steps   int
}

type navJob struct {
	cancel context.CancelFunc
	result chan navResult
}

func NewFindClosestNavigatableNode(name string, sight float64, tags ...string) *FindClosestNavigatableNode {
	return &FindClosestNavigatableNode{
		BaseNode:   NewBaseNode(name, "FindClosestNavigatable"),
		Sight:      sight,
		TargetTags: tags,
		MaxSteps:   DefaultSearchSteps,
		astar:      pathfinding.NewAStar(),
	}
}

func (fn *FindClosestNavigatableNode) Execute(ctx *ExecutionContext) Status {
	if fn.job != nil {
		return fn.poll(ctx)
	}
	if ctx.Agent == nil || ctx.World == nil || ctx.Grid == nil {
		return StatusFailure
	}

	q := fn.query(ctx)
	if len(q.candidates) == 0 {
		metrics.ObserveSearch(fn.nodeType, metrics.OutcomeNoCandidate, 0)
		return StatusFailure
	}

	if fn.Background {
		return fn.spawn(ctx, q)
	}

	grid, _, err := fn.snapshot.Sync(ctx.Grid)
	if err != nil {
		ctx.logger().Warn("grid snapshot failed", log.String("node", fn.name), log.Error(err))
		return StatusFailure
	}
	return fn.commit(ctx, searchCandidates(context.Background(), grid, fn.astar, q))
}

// query collects the candidates in range, nearest first.
func (fn *FindClosestNavigatableNode) query(ctx *ExecutionContext) navQuery {
	sight, tags := fn.Sight, fn.TargetTags
	if fn.FromBlackboard {
		bb := ctx.Blackboard
		sight = bb.Float(blackboard.KeySight, DefaultNavigatableSight)
		tags = bb.Strings(blackboard.KeyTargetTags, nil)
		if tag := bb.String(blackboard.KeyTargetTag, ""); tag != "" {
			tags = append(tags, tag)
		}
	}

	cellSize := ctx.cellSize()
	pos := ctx.Agent.Position()
	q := navQuery{
		from:     pathfinding.WorldToCell(pos, cellSize),
		maxSteps: fn.MaxSteps,
	}
	if q.maxSteps <= 0 {
		q.maxSteps = DefaultSearchSteps
	}

	for _, e := range others(ctx, tags) {
		d := distance(e.Position, pos)
		if d >= sight {
			continue
		}
		q.candidates = append(q.candidates, navCandidate{
			id:       e.ID,
			cell:     pathfinding.WorldToCell(e.Position, cellSize),
			distance: d,
		})
	}
	slices.SortStableFunc(q.candidates, func(a, b navCandidate) int {
		return cmp.Compare(a.distance, b.distance)
	})
	return q
}

// searchCandidates runs the candidate loop on grid. It only touches grid and
// astar, so it is safe to run off the tick goroutine when both are private.
func searchCandidates(ctx context.Context, grid *pathfinding.Grid, astar *pathfinding.AStar, q navQuery) navResult {
	var (
		best          navResult
		closest       = math.Inf(1)
		smallestScore = math.Inf(1)
		steps         int
	)
	best.outcome = metrics.OutcomeUnreachable

	for _, c := range q.candidates {
		if ctx.Err() != nil {
			break
		}
		if c.distance >= closest {
			continue
		}
		if c.cell == q.from {
			return navResult{outcome: metrics.OutcomeSameCell, target: c.id, steps: steps}
		}

		astar.StartSearch(grid.Cell(q.from.X, q.from.Y), grid.Cell(c.cell.X, c.cell.Y))
		astar.Run(q.maxSteps)
		steps += astar.Steps()

		if !astar.IsPathValid() || astar.SmallestFScore() > smallestScore {
			continue
		}
		closest = c.distance
		smallestScore = astar.SmallestFScore()
		best = navResult{
			outcome: metrics.OutcomeFound,
			target:  c.id,
			path:    astar.PathPoints(),
		}
	}
	best.steps = steps
	return best
}

// commit publishes a finished search to the blackboard.
func (fn *FindClosestNavigatableNode) commit(ctx *ExecutionContext, res navResult) Status {
	metrics.ObserveSearch(fn.nodeType, res.outcome, res.steps)
	bb := ctx.Blackboard

	switch res.outcome {
	case metrics.OutcomeSameCell:
		bb.SetPath(blackboard.KeyPath, nil)
		return StatusSuccess
	case metrics.OutcomeFound:
		bb.SetBool(blackboard.KeyNewPath, true)
		bb.SetPath(blackboard.KeyPath, res.path)
		bb.SetInt(blackboard.KeyTarget, int64(res.target))
		bb.SetInt(blackboard.KeyFound, int64(res.target))
		return StatusSuccess
	default:
		ctx.logger().Debug("no navigable target",
			log.String("node", fn.name),
			log.Int("steps", res.steps),
		)
		return StatusFailure
	}
}

// spawn hands the query to a worker goroutine with its own grid and search session.
func (fn *FindClosestNavigatableNode) spawn(ctx *ExecutionContext, q navQuery) Status {
	grid, err := pathfinding.CopyGrid(ctx.Grid)
	if err != nil {
		return StatusFailure
	}

	parent := ctx.Context
	if parent == nil {
		parent = context.Background()
	}
	workerCtx, cancel := context.WithCancel(parent)
	job := &navJob{cancel: cancel, result: make(chan navResult, 1)}
	fn.job = job

	go func() {
		job.result <- searchCandidates(workerCtx, grid, pathfinding.NewAStar(), q)
	}()
	return StatusPending
}

func (fn *FindClosestNavigatableNode) poll(ctx *ExecutionContext) Status {
	select {
	case res := <-fn.job.result:
		fn.job.cancel()
		fn.job = nil
		return fn.commit(ctx, res)
	default:
		return StatusPending
	}
}

// Reset abandons an in-flight background search.
func (fn *FindClosestNavigatableNode) Reset() {
	if fn.job != nil {
		fn.job.cancel()
		fn.job = nil
	}
}
