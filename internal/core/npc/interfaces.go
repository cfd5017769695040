package npc

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/observability/log"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
)

// Status represents the execution status of a behaviour tree node
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	case StatusPending:
		return "Pending"
	default:
		return "Invalid"
	}
}

// ExecutionContext carries everything a node may read or write during one tick.
// Blackboard must be set; the remaining collaborators are optional and nodes
// that need a missing one report Failure.
type ExecutionContext struct {
	Context    context.Context
	Blackboard *blackboard.Blackboard
	Agent      Agent
	World      World
	Grid       pathfinding.Source
	Visibility Visibility
	DeltaTime  time.Duration
	Logger     log.Log
}

func (ctx *ExecutionContext) logger() log.Log {
	if ctx.Logger == nil {
		return log.NewNop()
	}
	return ctx.Logger
}

// seconds returns DeltaTime as fractional seconds.
func (ctx *ExecutionContext) seconds() float64 {
	return ctx.DeltaTime.Seconds()
}

func (ctx *ExecutionContext) cellSize() float64 {
	return ctx.Blackboard.Float(blackboard.KeyCellSize, 1)
}

func (ctx *ExecutionContext) visibility() Visibility {
	if ctx.Visibility != nil {
		return ctx.Visibility
	}
	return GridVisibility{Grid: ctx.Grid, CellSize: ctx.cellSize()}
}

// Node represents a single node in the behaviour tree
type Node interface {
	// Execute runs the node logic and returns the status
	Execute(ctx *ExecutionContext) Status

	// GetType returns the type of the node
	GetType() string

	// GetName returns the name/identifier of the node
	GetName() string

	// Reset returns the node and its subtree to the initial state
	Reset()
}

// CompositeNode represents a node that owns an ordered list of children
type CompositeNode interface {
	Node

	// AddChild appends a child node
	AddChild(child Node)

	// GetChildren returns all child nodes
	GetChildren() []Node
}

// DecoratorNode represents a node that modifies the behaviour of a single child
type DecoratorNode interface {
	Node

	// SetChild sets the child node
	SetChild(child Node)

	// GetChild returns the child node
	GetChild() Node
}

// Agent is the entity a tree drives.
type Agent interface {
	ID() world.EntityID
	Position() r2.Vec
	SetPosition(pos r2.Vec)
	Heading() float64
	SetHeading(radians float64)
}

// World is the read side of the entity registry.
type World interface {
	Entity(id world.EntityID) (world.Entity, bool)
	Entities() []world.Entity
	EntitiesByTag(tags ...string) []world.Entity
}

// Visibility answers line-of-sight queries between two world positions.
type Visibility interface {
	CanSee(from, to r2.Vec) bool
}

// Predicate is a named boolean check used by Evaluator, Conditional and Repeat.
type Predicate func(ctx *ExecutionContext) bool

// Function is a named side-effecting callback; true maps to Success.
type Function func(ctx *ExecutionContext) bool

// MessageFunc computes the text emitted by DynamicLog.
type MessageFunc func(ctx *ExecutionContext) string
