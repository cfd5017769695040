package npc

import (
	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/observability/metrics"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
)

// arriveRadius is how close the agent must get to a waypoint before moving on.
const arriveRadius = 1.0

// NavigatePathNode walks the agent along the Path stored on the blackboard,
// one waypoint at a time, heading for each cell's centre. Reached waypoints
// are popped; the key is cleared once the path is exhausted.
type NavigatePathNode struct {
	*BaseNode
	Speed float64
}

func NewNavigatePathNode(name string, speed float64) *NavigatePathNode {
	return &NavigatePathNode{BaseNode: NewBaseNode(name, "NavigatePath"), Speed: speed}
}

func (nn *NavigatePathNode) Execute(ctx *ExecutionContext) Status {
	bb := ctx.Blackboard
	if ctx.Agent == nil || !bb.Exists(blackboard.KeyPath) {
		return StatusFailure
	}

	path := bb.Path(blackboard.KeyPath, nil)
	if len(path) == 0 {
		return StatusSuccess
	}

	speed := nn.Speed
	if speed <= 0 {
		speed = DefaultSpeed
	}
	speed = bb.Float(blackboard.KeySpeed, speed)

	waypoint := pathfinding.CellCenter(path[0], ctx.cellSize())
	if distance(ctx.Agent.Position(), waypoint) < arriveRadius {
		path = path[1:]
		if len(path) == 0 {
			bb.ClearKey(blackboard.KeyPath)
			return StatusSuccess
		}
		bb.SetPath(blackboard.KeyPath, path)
		return StatusPending
	}

	stepTowards(ctx.Agent, waypoint, speed*ctx.seconds())
	return StatusPending
}

// FindPathNode plans a path to the blackboard Target with an incremental
// search, spending StepsPerUpdate expansions per tick. Path is written only
// once the search completes.
type FindPathNode struct {
	*BaseNode
	StepsPerUpdate int

	snapshot pathfinding.Snapshot
	astar    *pathfinding.AStar
	started  bool
}

// DefaultStepsPerUpdate is the per-tick expansion budget of FindPath.
const DefaultStepsPerUpdate = 10

func NewFindPathNode(name string, stepsPerUpdate int, opts ...pathfinding.Option) *FindPathNode {
	if stepsPerUpdate <= 0 {
		stepsPerUpdate = DefaultStepsPerUpdate
	}
	return &FindPathNode{
		BaseNode:       NewBaseNode(name, "FindPath"),
		StepsPerUpdate: stepsPerUpdate,
		astar:          pathfinding.NewAStar(opts...),
	}
}

func (fn *FindPathNode) Execute(ctx *ExecutionContext) Status {
	if !fn.started {
		return fn.start(ctx)
	}

	if !fn.astar.Run(fn.StepsPerUpdate) && fn.astar.Steps() < pathfinding.FinishMaxIterations {
		return StatusPending
	}
	fn.started = false

	switch {
	case fn.astar.IsPathValid():
		metrics.ObserveSearch(fn.nodeType, metrics.OutcomeFound, fn.astar.Steps())
		ctx.Blackboard.SetPath(blackboard.KeyPath, fn.astar.PathPoints())
		return StatusSuccess
	default:
		metrics.ObserveSearch(fn.nodeType, metrics.OutcomeUnreachable, fn.astar.Steps())
		return StatusFailure
	}
}

func (fn *FindPathNode) start(ctx *ExecutionContext) Status {
	if ctx.Agent == nil || ctx.World == nil {
		return StatusFailure
	}
	targetID := world.EntityID(ctx.Blackboard.Int(blackboard.KeyTarget, int64(world.NoEntity)))
	target, ok := ctx.World.Entity(targetID)
	if targetID == world.NoEntity || !ok {
		return StatusFailure
	}

	grid, _, err := fn.snapshot.Sync(ctx.Grid)
	if err != nil {
		return StatusFailure
	}

	cellSize := ctx.cellSize()
	from := pathfinding.WorldToCell(ctx.Agent.Position(), cellSize)
	to := pathfinding.WorldToCell(target.Position, cellSize)
	if from == to {
		metrics.ObserveSearch(fn.nodeType, metrics.OutcomeSameCell, 0)
		ctx.Blackboard.SetPath(blackboard.KeyPath, nil)
		return StatusSuccess
	}

	fn.astar.StartSearch(grid.Cell(from.X, from.Y), grid.Cell(to.X, to.Y))
	fn.started = true
	return StatusPending
}

func (fn *FindPathNode) Reset() {
	fn.started = false
}
