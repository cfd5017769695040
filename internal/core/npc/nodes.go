package npc

import (
	"github.com/zeusync/habitat/internal/core/blackboard"
)

// BaseNode provides common functionality for all nodes
type BaseNode struct {
	name     string
	nodeType string
}

// NewBaseNode creates a new base node
func NewBaseNode(name, nodeType string) *BaseNode {
	if name == "" {
		name = nodeType
	}
	return &BaseNode{name: name, nodeType: nodeType}
}

// GetName returns the node name
func (bn *BaseNode) GetName() string {
	return bn.name
}

// GetType returns the node type
func (bn *BaseNode) GetType() string {
	return bn.nodeType
}

// Reset is a no-op for stateless nodes
func (bn *BaseNode) Reset() {}

// composite holds the ordered children shared by every composite node.
type composite struct {
	*BaseNode
	children []Node
}

// AddChild adds a child node
func (c *composite) AddChild(child Node) {
	if child == nil {
		return
	}
	c.children = append(c.children, child)
}

// GetChildren returns all children
func (c *composite) GetChildren() []Node {
	return c.children
}

func (c *composite) resetChildren() {
	for _, child := range c.children {
		child.Reset()
	}
}

// SequenceNode executes children in order and fails on the first failure.
// A Failure or Pending child keeps the resume index so the next tick
// re-enters that same child.
type SequenceNode struct {
	composite
	current int
}

// NewSequenceNode creates a new sequence node
func NewSequenceNode(name string, children ...Node) *SequenceNode {
	sn := &SequenceNode{composite: composite{BaseNode: NewBaseNode(name, "Sequence")}}
	for _, child := range children {
		sn.AddChild(child)
	}
	return sn
}

// Execute runs the sequence logic
func (sn *SequenceNode) Execute(ctx *ExecutionContext) Status {
	if len(sn.children) == 0 {
		return StatusFailure
	}
	if sn.current < 0 || sn.current >= len(sn.children) {
		sn.current = 0
	}

	for sn.current < len(sn.children) {
		ctx.Blackboard.SetInt(blackboard.KeySequenceIndex, int64(sn.current))
		status := sn.children[sn.current].Execute(ctx)

		switch status {
		case StatusFailure, StatusPending:
			return status
		default:
			sn.current++
		}
	}

	// All children succeeded
	sn.current = 0
	return StatusSuccess
}

// Reset resets the sequence node
func (sn *SequenceNode) Reset() {
	sn.current = 0
	sn.resetChildren()
}

// SelectorNode executes children in order until one succeeds.
type SelectorNode struct {
	composite
	current int
}

// NewSelectorNode creates a new selector node
func NewSelectorNode(name string, children ...Node) *SelectorNode {
	sn := &SelectorNode{composite: composite{BaseNode: NewBaseNode(name, "Selector")}}
	for _, child := range children {
		sn.AddChild(child)
	}
	return sn
}

// Execute runs the selector logic
func (sn *SelectorNode) Execute(ctx *ExecutionContext) Status {
	if len(sn.children) == 0 {
		return StatusFailure
	}
	if sn.current < 0 || sn.current >= len(sn.children) {
		sn.current = 0
	}

	for sn.current < len(sn.children) {
		ctx.Blackboard.SetInt(blackboard.KeySelectorIndex, int64(sn.current))
		status := sn.children[sn.current].Execute(ctx)

		switch status {
		case StatusSuccess:
			sn.current = 0
			return StatusSuccess
		case StatusPending:
			return StatusPending
		default:
			sn.current++
		}
	}

	// All children failed
	sn.current = 0
	return StatusFailure
}

// Reset resets the selector node
func (sn *SelectorNode) Reset() {
	sn.current = 0
	sn.resetChildren()
}
