package npc

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
)

// Default perception parameters used when neither node nor blackboard set them.
const (
	DefaultSightRange  = 100.0
	DefaultFieldOfView = 60.0
)

// GridVisibility tests line of sight across the blocked cells of a grid.
// A nil Grid sees everything.
type GridVisibility struct {
	Grid     pathfinding.Source
	CellSize float64
}

func (v GridVisibility) CanSee(from, to r2.Vec) bool {
	if v.Grid == nil {
		return true
	}
	return pathfinding.LineOfSight(v.Grid,
		pathfinding.WorldToCell(from, v.CellSize),
		pathfinding.WorldToCell(to, v.CellSize),
	)
}

// InFieldOfView reports whether target lies inside the cone of fovDegrees
// centred on heading. A target at the origin is always in view.
func InFieldOfView(origin r2.Vec, heading float64, target r2.Vec, fovDegrees float64) bool {
	offset := r2.Sub(target, origin)
	if r2.Norm(offset) == 0 {
		return true
	}
	forward := r2.Vec{X: math.Cos(heading), Y: math.Sin(heading)}
	cos := r2.Dot(forward, r2.Unit(offset))
	angle := math.Acos(math.Max(-1, math.Min(1, cos)))
	return angle < fovDegrees*math.Pi/360
}

// others returns the entities matching tags, minus the agent itself.
func others(ctx *ExecutionContext, tags []string) []world.Entity {
	var self world.EntityID
	if ctx.Agent != nil {
		self = ctx.Agent.ID()
	}
	all := ctx.World.EntitiesByTag(tags...)
	out := all[:0]
	for _, e := range all {
		if e.ID != self {
			out = append(out, e)
		}
	}
	return out
}

func publishFound(bb *blackboard.Blackboard, id world.EntityID, target bool) {
	bb.SetInt(blackboard.KeyFound, int64(id))
	if target {
		bb.SetInt(blackboard.KeyTarget, int64(id))
	}
}

// FindClosestNode stores the nearest entity carrying TargetTag under Found.
// An empty tag matches every entity.
type FindClosestNode struct {
	*BaseNode
	TargetTag      string
	FromBlackboard bool
}

func NewFindClosestNode(name, tag string, fromBlackboard bool) *FindClosestNode {
	return &FindClosestNode{BaseNode: NewBaseNode(name, "FindClosest"), TargetTag: tag, FromBlackboard: fromBlackboard}
}

func (fn *FindClosestNode) Execute(ctx *ExecutionContext) Status {
	if ctx.Agent == nil || ctx.World == nil {
		return StatusFailure
	}
	tag := fn.TargetTag
	if fn.FromBlackboard {
		tag = ctx.Blackboard.String(blackboard.KeyTargetTag, tag)
	}
	var tags []string
	if tag != "" {
		tags = []string{tag}
	}

	candidates := others(ctx, tags)
	if len(candidates) == 0 {
		return StatusFailure
	}

	pos := ctx.Agent.Position()
	closest := candidates[0]
	best := distance(closest.Position, pos)
	for _, e := range candidates[1:] {
		if d := distance(e.Position, pos); d < best {
			closest, best = e, d
		}
	}

	publishFound(ctx.Blackboard, closest.ID, false)
	return StatusSuccess
}

// FindFirstNode stores the lowest-id entity carrying Tag under Found and Target.
type FindFirstNode struct {
	*BaseNode
	Tag            string
	FromBlackboard bool
}

func NewFindFirstNode(name, tag string, fromBlackboard bool) *FindFirstNode {
	return &FindFirstNode{BaseNode: NewBaseNode(name, "FindFirst"), Tag: tag, FromBlackboard: fromBlackboard}
}

func (fn *FindFirstNode) Execute(ctx *ExecutionContext) Status {
	if ctx.World == nil {
		return StatusFailure
	}
	tag := fn.Tag
	if fn.FromBlackboard {
		tag = ctx.Blackboard.String(blackboard.KeyTargetTag, tag)
	}
	if tag == "" {
		return StatusFailure
	}

	candidates := others(ctx, []string{tag})
	if len(candidates) == 0 {
		return StatusFailure
	}
	publishFound(ctx.Blackboard, candidates[0].ID, true)
	return StatusSuccess
}

// WithinDistanceNode succeeds while the target entity is closer than MaxDistance.
type WithinDistanceNode struct {
	*BaseNode
	Target         world.EntityID
	MaxDistance    float64
	FromBlackboard bool
}

func NewWithinDistanceNode(name string, target world.EntityID, maxDistance float64, fromBlackboard bool) *WithinDistanceNode {
	return &WithinDistanceNode{
		BaseNode:       NewBaseNode(name, "WithinDistance"),
		Target:         target,
		MaxDistance:    maxDistance,
		FromBlackboard: fromBlackboard,
	}
}

func (wn *WithinDistanceNode) Execute(ctx *ExecutionContext) Status {
	if ctx.Agent == nil || ctx.World == nil {
		return StatusFailure
	}
	target := wn.Target
	if wn.FromBlackboard {
		target = world.EntityID(ctx.Blackboard.Int(blackboard.KeyTarget, int64(target)))
	}
	e, ok := ctx.World.Entity(target)
	if target == world.NoEntity || !ok {
		return StatusFailure
	}
	if distance(e.Position, ctx.Agent.Position()) < wn.MaxDistance {
		return StatusSuccess
	}
	return StatusFailure
}

// CanSeeNode looks for the closest entity carrying TargetTag that is within
// range, inside the field of view and not occluded. On success it is stored
// under Target and Found.
type CanSeeNode struct {
	*BaseNode
	TargetTag      string
	SightRange     float64
	FieldOfView    float64
	FromBlackboard bool
}

func NewCanSeeNode(name, tag string, sight, fovDegrees float64, fromBlackboard bool) *CanSeeNode {
	return &CanSeeNode{
		BaseNode:       NewBaseNode(name, "CanSee"),
		TargetTag:      tag,
		SightRange:     sight,
		FieldOfView:    fovDegrees,
		FromBlackboard: fromBlackboard,
	}
}

func (cn *CanSeeNode) Execute(ctx *ExecutionContext) Status {
	if ctx.Agent == nil || ctx.World == nil {
		return StatusFailure
	}
	tag, sight, fov := cn.TargetTag, cn.SightRange, cn.FieldOfView
	if cn.FromBlackboard {
		tag = ctx.Blackboard.String(blackboard.KeyTargetTag, tag)
		sight = ctx.Blackboard.Float(blackboard.KeySight, sight)
		fov = ctx.Blackboard.Float(blackboard.KeyFieldOfView, fov)
	}
	if tag == "" {
		return StatusFailure
	}

	pos, heading := ctx.Agent.Position(), ctx.Agent.Heading()
	var (
		closest  world.Entity
		found    bool
		bestDist float64
	)
	for _, e := range others(ctx, []string{tag}) {
		d := distance(e.Position, pos)
		if d > sight || !InFieldOfView(pos, heading, e.Position, fov) {
			continue
		}
		if !found || d < bestDist {
			closest, bestDist, found = e, d, true
		}
	}
	if !found || !ctx.visibility().CanSee(pos, closest.Position) {
		return StatusFailure
	}

	publishFound(ctx.Blackboard, closest.ID, true)
	return StatusSuccess
}

// CanSeeTargetNode checks whether one specific entity is visible.
// With FromBlackboard the entity comes from Found and the range and field of
// view from Sight and FieldOfView.
type CanSeeTargetNode struct {
	*BaseNode
	Target         world.EntityID
	SightRange     float64
	FieldOfView    float64
	FromBlackboard bool
}

func NewCanSeeTargetNode(name string, target world.EntityID, sight, fovDegrees float64, fromBlackboard bool) *CanSeeTargetNode {
	return &CanSeeTargetNode{
		BaseNode:       NewBaseNode(name, "CanSeeTarget"),
		Target:         target,
		SightRange:     sight,
		FieldOfView:    fovDegrees,
		FromBlackboard: fromBlackboard,
	}
}

func (cn *CanSeeTargetNode) Execute(ctx *ExecutionContext) Status {
	if ctx.Agent == nil || ctx.World == nil {
		return StatusFailure
	}
	target, sight, fov := cn.Target, cn.SightRange, cn.FieldOfView
	if cn.FromBlackboard {
		sight = ctx.Blackboard.Float(blackboard.KeySight, DefaultSightRange)
		fov = ctx.Blackboard.Float(blackboard.KeyFieldOfView, DefaultFieldOfView)
		target = world.EntityID(ctx.Blackboard.Int(blackboard.KeyFound, int64(world.NoEntity)))
	}
	if target == world.NoEntity || target == ctx.Agent.ID() {
		return StatusFailure
	}

	e, ok := ctx.World.Entity(target)
	if !ok {
		return StatusFailure
	}
	pos := ctx.Agent.Position()
	if distance(e.Position, pos) > sight || !InFieldOfView(pos, ctx.Agent.Heading(), e.Position, fov) {
		return StatusFailure
	}
	if !ctx.visibility().CanSee(pos, e.Position) {
		return StatusFailure
	}
	return StatusSuccess
}
