package npc

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/world"
)

// DefaultSpeed is used by movement nodes when neither the node nor the
// blackboard provides a speed.
const DefaultSpeed = 100.0

// CallFunctionNode runs a registered function; true maps to Success.
type CallFunctionNode struct {
	*BaseNode
	Function Function
}

func NewCallFunctionNode(name string, fn Function) *CallFunctionNode {
	return &CallFunctionNode{BaseNode: NewBaseNode(name, "CallFunction"), Function: fn}
}

func (cn *CallFunctionNode) Execute(ctx *ExecutionContext) Status {
	if cn.Function != nil && cn.Function(ctx) {
		return StatusSuccess
	}
	return StatusFailure
}

// WaitNode stays Pending until Duration of tick time has passed.
type WaitNode struct {
	*BaseNode
	Duration time.Duration

	left    time.Duration
	started bool
}

func NewWaitNode(name string, d time.Duration) *WaitNode {
	return &WaitNode{BaseNode: NewBaseNode(name, "Wait"), Duration: d}
}

func (wn *WaitNode) Execute(ctx *ExecutionContext) Status {
	if !wn.started {
		wn.left = wn.Duration
		wn.started = true
	}
	wn.left -= ctx.DeltaTime
	if wn.left > 0 {
		return StatusPending
	}
	wn.started = false
	return StatusSuccess
}

func (wn *WaitNode) Reset() {
	wn.started = false
	wn.left = 0
}

// Remaining reports the time left on the current wait.
func (wn *WaitNode) Remaining() time.Duration {
	if !wn.started {
		return wn.Duration
	}
	return wn.left
}

// SetValueNode writes a fixed value to the blackboard.
type SetValueNode struct {
	*BaseNode
	Key   string
	Value blackboard.Value
}

func NewSetValueNode(name, key string, value blackboard.Value) *SetValueNode {
	return &SetValueNode{BaseNode: NewBaseNode(name, "SetValue"), Key: key, Value: value}
}

func (sn *SetValueNode) Execute(ctx *ExecutionContext) Status {
	if sn.Key == "" || !sn.Value.IsValid() {
		return StatusFailure
	}
	ctx.Blackboard.Set(sn.Key, sn.Value)
	return StatusSuccess
}

// ValueExistsNode succeeds when Key is present on the blackboard.
type ValueExistsNode struct {
	*BaseNode
	Key string
}

func NewValueExistsNode(name, key string) *ValueExistsNode {
	return &ValueExistsNode{BaseNode: NewBaseNode(name, "ValueExists"), Key: key}
}

func (vn *ValueExistsNode) Execute(ctx *ExecutionContext) Status {
	if vn.Key != "" && ctx.Blackboard.Exists(vn.Key) {
		return StatusSuccess
	}
	return StatusFailure
}

// MoveNode displaces the agent by Direction * Speed * DeltaTime.
// With FromBlackboard, Speed and Direction are read from the blackboard,
// falling back to the node's own fields.
type MoveNode struct {
	*BaseNode
	Speed          float64
	Direction      r2.Vec
	FromBlackboard bool
}

func NewMoveNode(name string, speed float64, direction r2.Vec, fromBlackboard bool) *MoveNode {
	return &MoveNode{
		BaseNode:       NewBaseNode(name, "Move"),
		Speed:          speed,
		Direction:      direction,
		FromBlackboard: fromBlackboard,
	}
}

func (mn *MoveNode) Execute(ctx *ExecutionContext) Status {
	if ctx.Agent == nil {
		return StatusFailure
	}

	speed, dir := mn.Speed, mn.Direction
	if mn.FromBlackboard {
		speed = ctx.Blackboard.Float(blackboard.KeySpeed, speed)
		dir = Direction(ctx.Blackboard, dir)
	}

	step := r2.Scale(speed*ctx.seconds(), dir)
	ctx.Agent.SetPosition(r2.Add(ctx.Agent.Position(), step))
	if r2.Norm(dir) > 0 {
		ctx.Agent.SetHeading(math.Atan2(dir.Y, dir.X))
	}
	return StatusSuccess
}

// MoveTowardsNode moves the agent straight at a target entity without overshooting it.
type MoveTowardsNode struct {
	*BaseNode
	Target         world.EntityID
	Speed          float64
	FromBlackboard bool
}

func NewMoveTowardsNode(name string, target world.EntityID, speed float64, fromBlackboard bool) *MoveTowardsNode {
	return &MoveTowardsNode{
		BaseNode:       NewBaseNode(name, "MoveTowards"),
		Target:         target,
		Speed:          speed,
		FromBlackboard: fromBlackboard,
	}
}

func (mn *MoveTowardsNode) Execute(ctx *ExecutionContext) Status {
	if ctx.Agent == nil || ctx.World == nil {
		return StatusFailure
	}

	target, speed := mn.Target, mn.Speed
	if mn.FromBlackboard {
		target = world.EntityID(ctx.Blackboard.Int(blackboard.KeyTarget, int64(target)))
		speed = ctx.Blackboard.Float(blackboard.KeySpeed, speed)
	}
	if speed <= 0 {
		speed = DefaultSpeed
	}
	if target == world.NoEntity {
		return StatusFailure
	}

	e, ok := ctx.World.Entity(target)
	if !ok {
		return StatusFailure
	}

	stepTowards(ctx.Agent, e.Position, speed*ctx.seconds())
	return StatusSuccess
}

// Direction reads the movement direction stored under the Direction key.
func Direction(bb *blackboard.Blackboard, def r2.Vec) r2.Vec {
	if v, ok := bb.Opaque(blackboard.KeyDirection, nil).(r2.Vec); ok {
		return v
	}
	return def
}

// SetDirection stores a movement direction under the Direction key.
func SetDirection(bb *blackboard.Blackboard, dir r2.Vec) {
	bb.SetOpaque(blackboard.KeyDirection, dir)
}

// stepTowards moves the agent up to dist units towards dst and turns it to face
// dst. It reports whether the agent reached dst.
func stepTowards(agent Agent, dst r2.Vec, dist float64) bool {
	pos := agent.Position()
	diff := r2.Sub(dst, pos)
	remaining := r2.Norm(diff)
	if remaining == 0 {
		return true
	}

	agent.SetHeading(math.Atan2(diff.Y, diff.X))
	if dist >= remaining {
		agent.SetPosition(dst)
		return true
	}
	agent.SetPosition(r2.Add(pos, r2.Scale(dist/remaining, diff)))
	return false
}

func distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}
