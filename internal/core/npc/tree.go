package npc

import (
	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/observability/metrics"
)

// Tree owns a root node and the blackboard its nodes share.
type Tree struct {
	name  string
	root  Node
	board *blackboard.Blackboard
}

// NewTree creates a tree. A nil board gets a fresh lenient blackboard.
func NewTree(name string, root Node, board *blackboard.Blackboard) *Tree {
	if board == nil {
		board = blackboard.New()
	}
	return &Tree{name: name, root: root, board: board}
}

func (t *Tree) Name() string { return t.name }

func (t *Tree) Root() Node { return t.root }

func (t *Tree) Blackboard() *blackboard.Blackboard { return t.board }

// Tick runs the root once. The tree's blackboard replaces ctx.Blackboard.
func (t *Tree) Tick(ctx *ExecutionContext) Status {
	if t.root == nil {
		return StatusFailure
	}
	ctx.Blackboard = t.board
	status := t.root.Execute(ctx)
	metrics.ObserveTreeResult(t.name, status.String())
	return status
}

// Reset returns every node to its initial state. The blackboard is kept.
func (t *Tree) Reset() {
	if t.root != nil {
		t.root.Reset()
	}
}

// Walk visits the nodes depth first, parents before children.
func Walk(n Node, fn func(depth int, n Node)) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(int, Node)) {
	if n == nil {
		return
	}
	fn(depth, n)
	switch node := n.(type) {
	case CompositeNode:
		for _, child := range node.GetChildren() {
			walk(child, depth+1, fn)
		}
	case *EvaluatorNode:
		walk(node.True, depth+1, fn)
		walk(node.False, depth+1, fn)
	case DecoratorNode:
		walk(node.GetChild(), depth+1, fn)
	}
}
