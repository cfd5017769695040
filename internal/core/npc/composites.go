package npc

import (
	"math/rand"
	"slices"
	"time"

	"github.com/zeusync/habitat/internal/core/blackboard"
)

// randomPass tracks which children are still unvisited in the current pass
// and which child, if any, is waiting to be resumed.
type randomPass struct {
	rand    *rand.Rand
	pool    []int
	pending int
	visited int
}

func newRandomPass(rng *rand.Rand) randomPass {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return randomPass{rand: rng, pending: -1}
}

// next returns the child to run, drawing a fresh unvisited index unless one is pending.
func (p *randomPass) next(n int) int {
	if p.pending >= 0 {
		return p.pending
	}
	if len(p.pool) == 0 {
		p.pool = p.pool[:0]
		for i := 0; i < n; i++ {
			p.pool = append(p.pool, i)
		}
		p.visited = 0
	}
	k := p.rand.Intn(len(p.pool))
	p.pending = p.pool[k]
	p.pool = slices.Delete(p.pool, k, k+1)
	return p.pending
}

// settle marks the pending child as visited.
func (p *randomPass) settle() {
	p.pending = -1
	p.visited++
}

func (p *randomPass) done() bool { return len(p.pool) == 0 }

func (p *randomPass) reset() {
	p.pool = p.pool[:0]
	p.pending = -1
	p.visited = 0
}

// RandomSequenceNode runs every child once per pass in a uniformly random order,
// failing on the first failure.
type RandomSequenceNode struct {
	composite
	pass randomPass
}

// NewRandomSequenceNode creates a random sequence. A nil rng seeds from the clock.
func NewRandomSequenceNode(name string, rng *rand.Rand, children ...Node) *RandomSequenceNode {
	n := &RandomSequenceNode{
		composite: composite{BaseNode: NewBaseNode(name, "RandomSequence")},
		pass:      newRandomPass(rng),
	}
	for _, child := range children {
		n.AddChild(child)
	}
	return n
}

func (n *RandomSequenceNode) Execute(ctx *ExecutionContext) Status {
	if len(n.children) == 0 {
		return StatusFailure
	}

	for {
		idx := n.pass.next(len(n.children))
		ctx.Blackboard.SetInt(blackboard.KeySequenceIndex, int64(n.pass.visited))
		status := n.children[idx].Execute(ctx)

		switch status {
		case StatusPending:
			return StatusPending
		case StatusFailure:
			n.pass.reset()
			return StatusFailure
		}

		n.pass.settle()
		if n.pass.done() {
			n.pass.reset()
			return StatusSuccess
		}
	}
}

func (n *RandomSequenceNode) Reset() {
	n.pass.reset()
	n.resetChildren()
}

// RandomSelectorNode tries children in a uniformly random order until one succeeds.
type RandomSelectorNode struct {
	composite
	pass randomPass
}

// NewRandomSelectorNode creates a random selector. A nil rng seeds from the clock.
func NewRandomSelectorNode(name string, rng *rand.Rand, children ...Node) *RandomSelectorNode {
	n := &RandomSelectorNode{
		composite: composite{BaseNode: NewBaseNode(name, "RandomSelector")},
		pass:      newRandomPass(rng),
	}
	for _, child := range children {
		n.AddChild(child)
	}
	return n
}

func (n *RandomSelectorNode) Execute(ctx *ExecutionContext) Status {
	if len(n.children) == 0 {
		return StatusFailure
	}

	for {
		idx := n.pass.next(len(n.children))
		ctx.Blackboard.SetInt(blackboard.KeySelectorIndex, int64(n.pass.visited))
		status := n.children[idx].Execute(ctx)

		switch status {
		case StatusPending:
			return StatusPending
		case StatusSuccess:
			n.pass.reset()
			return StatusSuccess
		}

		n.pass.settle()
		if n.pass.done() {
			n.pass.reset()
			return StatusFailure
		}
	}
}

func (n *RandomSelectorNode) Reset() {
	n.pass.reset()
	n.resetChildren()
}

// EvaluatorNode checks its predicate once per tick and runs exactly one branch.
type EvaluatorNode struct {
	*BaseNode
	Condition Predicate
	True      Node
	False     Node
}

func NewEvaluatorNode(name string, cond Predicate, onTrue, onFalse Node) *EvaluatorNode {
	return &EvaluatorNode{
		BaseNode:  NewBaseNode(name, "Evaluator"),
		Condition: cond,
		True:      onTrue,
		False:     onFalse,
	}
}

func (en *EvaluatorNode) Execute(ctx *ExecutionContext) Status {
	if en.Condition == nil {
		return StatusFailure
	}
	branch := en.False
	if en.Condition(ctx) {
		branch = en.True
	}
	if branch == nil {
		return StatusFailure
	}
	return branch.Execute(ctx)
}

func (en *EvaluatorNode) Reset() {
	if en.True != nil {
		en.True.Reset()
	}
	if en.False != nil {
		en.False.Reset()
	}
}

// ConditionalNode gates an optional child behind a predicate.
type ConditionalNode struct {
	decorator
	Condition Predicate
}

func NewConditionalNode(name string, cond Predicate, child Node) *ConditionalNode {
	return &ConditionalNode{
		decorator: newDecorator(name, "Conditional", child),
		Condition: cond,
	}
}

func (cn *ConditionalNode) Execute(ctx *ExecutionContext) Status {
	if cn.Condition == nil || !cn.Condition(ctx) {
		return StatusFailure
	}
	if cn.child == nil {
		return StatusSuccess
	}
	return cn.child.Execute(ctx)
}
