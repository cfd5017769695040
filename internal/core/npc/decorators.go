package npc

import (
	"time"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/observability/log"
)

// decorator holds the single owned child shared by every decorator node.
type decorator struct {
	*BaseNode
	child Node
}

func newDecorator(name, nodeType string, child Node) decorator {
	return decorator{BaseNode: NewBaseNode(name, nodeType), child: child}
}

// SetChild sets the child node
func (d *decorator) SetChild(child Node) { d.child = child }

// GetChild returns the child node
func (d *decorator) GetChild() Node { return d.child }

func (d *decorator) Reset() {
	if d.child != nil {
		d.child.Reset()
	}
}

// InverseNode flips Success and Failure. Pending passes through.
type InverseNode struct{ decorator }

func NewInverseNode(name string, child Node) *InverseNode {
	return &InverseNode{decorator: newDecorator(name, "Inverse", child)}
}

func (in *InverseNode) Execute(ctx *ExecutionContext) Status {
	if in.child == nil {
		return StatusFailure
	}
	switch in.child.Execute(ctx) {
	case StatusSuccess:
		return StatusFailure
	case StatusFailure:
		return StatusSuccess
	default:
		return StatusPending
	}
}

// SucceederNode reports Success once its child completes, whatever the outcome.
type SucceederNode struct{ decorator }

func NewSucceederNode(name string, child Node) *SucceederNode {
	return &SucceederNode{decorator: newDecorator(name, "Succeeder", child)}
}

func (sn *SucceederNode) Execute(ctx *ExecutionContext) Status {
	if sn.child == nil {
		return StatusFailure
	}
	if sn.child.Execute(ctx) == StatusPending {
		return StatusPending
	}
	return StatusSuccess
}

// LogNode emits a fixed message at info level and then runs its child.
type LogNode struct {
	decorator
	Message string
}

func NewLogNode(name, message string, child Node) *LogNode {
	return &LogNode{decorator: newDecorator(name, "Log", child), Message: message}
}

func (ln *LogNode) Execute(ctx *ExecutionContext) Status {
	ctx.logger().Info(ln.Message, log.String("node", ln.name))
	if ln.child == nil {
		return StatusFailure
	}
	return ln.child.Execute(ctx)
}

// DynamicLogNode emits a message computed at tick time and then runs its child.
type DynamicLogNode struct {
	decorator
	Message MessageFunc
}

func NewDynamicLogNode(name string, message MessageFunc, child Node) *DynamicLogNode {
	return &DynamicLogNode{decorator: newDecorator(name, "DynamicLog", child), Message: message}
}

func (dn *DynamicLogNode) Execute(ctx *ExecutionContext) Status {
	if dn.Message != nil {
		ctx.logger().Info(dn.Message(ctx), log.String("node", dn.name))
	}
	if dn.child == nil {
		return StatusFailure
	}
	return dn.child.Execute(ctx)
}

// RepeatNode runs its child once per tick while Condition holds and publishes
// the number of runs under RepeatCount. Once the condition turns false it
// reports the last child result, or Failure if the child never ran.
type RepeatNode struct {
	decorator
	Condition Predicate

	count int64
	last  Status
	ran   bool
}

func NewRepeatNode(name string, cond Predicate, child Node) *RepeatNode {
	return &RepeatNode{decorator: newDecorator(name, "Repeat", child), Condition: cond}
}

func (rn *RepeatNode) Execute(ctx *ExecutionContext) Status {
	if rn.child == nil || rn.Condition == nil {
		return StatusFailure
	}

	if rn.Condition(ctx) {
		rn.last = rn.child.Execute(ctx)
		rn.ran = true
		rn.count++
		ctx.Blackboard.SetInt(blackboard.KeyRepeatCount, rn.count)
		return StatusPending
	}

	result := StatusFailure
	if rn.ran {
		result = rn.last
	}
	rn.count = 0
	rn.ran = false
	ctx.Blackboard.SetInt(blackboard.KeyRepeatCount, 0)
	return result
}

func (rn *RepeatNode) Reset() {
	rn.count = 0
	rn.ran = false
	rn.decorator.Reset()
}

// RepeatCountNode runs its child Times times and reports the last result.
// With SingleTick all runs happen inside one tick; otherwise one run per tick.
// A Pending child does not count as a run and is resumed on the next tick.
type RepeatCountNode struct {
	decorator
	Times      int
	SingleTick bool

	count int64
}

func NewRepeatCountNode(name string, times int, singleTick bool, child Node) *RepeatCountNode {
	return &RepeatCountNode{
		decorator:  newDecorator(name, "RepeatCount", child),
		Times:      times,
		SingleTick: singleTick,
	}
}

func (rn *RepeatCountNode) Execute(ctx *ExecutionContext) Status {
	if rn.child == nil || rn.Times <= 0 {
		return StatusFailure
	}

	for {
		status := rn.child.Execute(ctx)
		if status == StatusPending {
			return StatusPending
		}
		rn.count++
		ctx.Blackboard.SetInt(blackboard.KeyRepeatCount, rn.count)
		if rn.count >= int64(rn.Times) {
			rn.count = 0
			return status
		}
		if !rn.SingleTick {
			return StatusPending
		}
	}
}

func (rn *RepeatCountNode) Reset() {
	rn.count = 0
	rn.decorator.Reset()
}

// RepeatUntilFailNode runs its child once per tick until it fails, then reports Success.
type RepeatUntilFailNode struct {
	decorator
	count int64
}

func NewRepeatUntilFailNode(name string, child Node) *RepeatUntilFailNode {
	return &RepeatUntilFailNode{decorator: newDecorator(name, "RepeatUntilFail", child)}
}

func (rn *RepeatUntilFailNode) Execute(ctx *ExecutionContext) Status {
	if rn.child == nil {
		return StatusFailure
	}

	switch rn.child.Execute(ctx) {
	case StatusFailure:
		rn.count = 0
		return StatusSuccess
	case StatusSuccess:
		rn.count++
		ctx.Blackboard.SetInt(blackboard.KeyRepeatCount, rn.count)
	}
	return StatusPending
}

func (rn *RepeatUntilFailNode) Reset() {
	rn.count = 0
	rn.decorator.Reset()
}

// RepeatTimeNode runs its child every tick until Duration of tick time has
// elapsed, then reports Success.
type RepeatTimeNode struct {
	decorator
	Duration time.Duration

	elapsed time.Duration
}

func NewRepeatTimeNode(name string, d time.Duration, child Node) *RepeatTimeNode {
	return &RepeatTimeNode{decorator: newDecorator(name, "RepeatTime", child), Duration: d}
}

func (rn *RepeatTimeNode) Execute(ctx *ExecutionContext) Status {
	if rn.child == nil {
		return StatusFailure
	}

	status := rn.child.Execute(ctx)
	rn.elapsed += ctx.DeltaTime
	if rn.elapsed < rn.Duration {
		return StatusPending
	}

	rn.elapsed = 0
	if status == StatusPending {
		rn.child.Reset()
	}
	return StatusSuccess
}

func (rn *RepeatTimeNode) Reset() {
	rn.elapsed = 0
	rn.decorator.Reset()
}

// LimitTimeNode bounds how long its child may stay Pending. When the budget is
// used up the child is reset and the node reports Failure; it never turns a
// timeout into Success.
type LimitTimeNode struct {
	decorator
	Budget time.Duration

	elapsed time.Duration
}

func NewLimitTimeNode(name string, budget time.Duration, child Node) *LimitTimeNode {
	return &LimitTimeNode{decorator: newDecorator(name, "LimitTime", child), Budget: budget}
}

func (ln *LimitTimeNode) Execute(ctx *ExecutionContext) Status {
	if ln.child == nil {
		return StatusFailure
	}

	ln.elapsed += ctx.DeltaTime
	if ln.elapsed >= ln.Budget {
		ctx.logger().Debug("time limit reached",
			log.String("node", ln.name),
			log.Duration("budget", ln.Budget),
		)
		ln.elapsed = 0
		ln.child.Reset()
		return StatusFailure
	}

	status := ln.child.Execute(ctx)
	if status != StatusPending {
		ln.elapsed = 0
	}
	return status
}

func (ln *LimitTimeNode) Reset() {
	ln.elapsed = 0
	ln.decorator.Reset()
}
