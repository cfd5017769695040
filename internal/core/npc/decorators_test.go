package npc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/observability/log"
)

func TestDecoratorsWithoutChildFail(t *testing.T) {
	ctx := newContext(time.Second)
	always := func(*ExecutionContext) bool { return true }
	for _, n := range []Node{
		NewInverseNode("", nil),
		NewSucceederNode("", nil),
		NewLogNode("", "hello", nil),
		NewDynamicLogNode("", func(*ExecutionContext) string { return "hi" }, nil),
		NewRepeatNode("", always, nil),
		NewRepeatCountNode("", 2, true, nil),
		NewRepeatUntilFailNode("", nil),
		NewRepeatTimeNode("", time.Second, nil),
		NewLimitTimeNode("", time.Second, nil),
	} {
		assert.Equal(t, F, n.Execute(ctx), n.GetType())
	}
}

func TestInverse(t *testing.T) {
	ctx := newContext(0)
	inv := NewInverseNode("inv", newScripted(S, F, P))
	assert.Equal(t, []Status{F, S, P}, tickN(ctx, inv, 3))
}

func TestSucceeder(t *testing.T) {
	ctx := newContext(0)
	s := NewSucceederNode("ok", newScripted(F, P, S))
	assert.Equal(t, []Status{S, P, S}, tickN(ctx, s, 3))
}

func TestLogEmitsThroughEngineLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := newContext(0)
	ctx.Logger = log.Wrap(zap.New(core), log.LevelInfo)

	n := NewLogNode("greet", "hello there", newScripted(P))
	assert.Equal(t, P, n.Execute(ctx))

	dyn := NewDynamicLogNode("count", func(c *ExecutionContext) string {
		return "speed is set"
	}, newScripted(S))
	assert.Equal(t, S, dyn.Execute(ctx))

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "hello there", entries[0].Message)
		assert.Equal(t, "greet", entries[0].ContextMap()["node"])
		assert.Equal(t, "speed is set", entries[1].Message)
	}
}

func TestRepeatWhilePredicateHolds(t *testing.T) {
	ctx := newContext(0)
	remaining := 3
	cond := func(*ExecutionContext) bool {
		remaining--
		return remaining >= 0
	}
	child := newScripted(S)
	r := NewRepeatNode("rep", cond, child)

	assert.Equal(t, P, r.Execute(ctx))
	assert.Equal(t, int64(1), ctx.Blackboard.Int(blackboard.KeyRepeatCount, 0))
	assert.Equal(t, []Status{P, P}, tickN(ctx, r, 2))
	assert.Equal(t, int64(3), ctx.Blackboard.Int(blackboard.KeyRepeatCount, 0))

	assert.Equal(t, S, r.Execute(ctx))
	assert.Equal(t, int64(0), ctx.Blackboard.Int(blackboard.KeyRepeatCount, -1))
	assert.Equal(t, 3, child.calls)
}

func TestRepeatNeverRan(t *testing.T) {
	ctx := newContext(0)
	child := newScripted(S)
	r := NewRepeatNode("rep", func(*ExecutionContext) bool { return false }, child)

	assert.Equal(t, F, r.Execute(ctx))
	assert.Zero(t, child.calls)
}

func TestRepeatCount(t *testing.T) {
	ctx := newContext(0)

	single := newScripted(S, S, F)
	assert.Equal(t, F, NewRepeatCountNode("n", 3, true, single).Execute(ctx))
	assert.Equal(t, 3, single.calls)
	assert.Equal(t, int64(3), ctx.Blackboard.Int(blackboard.KeyRepeatCount, 0))

	spread := newScripted(S)
	n := NewRepeatCountNode("n", 3, false, spread)
	assert.Equal(t, []Status{P, P, S}, tickN(ctx, n, 3))
	// The counter restarts for the next round.
	assert.Equal(t, P, n.Execute(ctx))

	pending := newScripted(P, S)
	assert.Equal(t, []Status{P, S}, tickN(ctx, NewRepeatCountNode("n", 1, true, pending), 2))

	assert.Equal(t, F, NewRepeatCountNode("n", 0, true, newScripted(S)).Execute(ctx))
}

func TestRepeatUntilFail(t *testing.T) {
	ctx := newContext(0)
	child := newScripted(S, P, S, F)
	r := NewRepeatUntilFailNode("until", child)

	assert.Equal(t, []Status{P, P, P, S}, tickN(ctx, r, 4))
	assert.Equal(t, int64(2), ctx.Blackboard.Int(blackboard.KeyRepeatCount, 0))
}

func TestRepeatTime(t *testing.T) {
	ctx := newContext(300 * time.Millisecond)
	child := newScripted(S)
	r := NewRepeatTimeNode("for", time.Second, child)

	assert.Equal(t, []Status{P, P, P, S}, tickN(ctx, r, 4))
	assert.Equal(t, 4, child.calls)
	assert.Equal(t, P, r.Execute(ctx))
}

func TestLimitTimeAbortsPendingChild(t *testing.T) {
	ctx := newContext(300 * time.Millisecond)
	child := newScripted(P)
	lt := NewLimitTimeNode("limit", time.Second, child)

	// 0.3s, 0.6s, 0.9s, then 1.2s exceeds the budget.
	assert.Equal(t, []Status{P, P, P, F}, tickN(ctx, lt, 4))
	assert.Equal(t, 3, child.calls)
	assert.Equal(t, 1, child.resets)

	for _, st := range tickN(ctx, lt, 20) {
		assert.NotEqual(t, S, st)
	}
}

func TestLimitTimeRestartsAfterCompletion(t *testing.T) {
	ctx := newContext(400 * time.Millisecond)
	child := newScripted(P, S, P, S, P, S)
	lt := NewLimitTimeNode("limit", time.Second, child)

	// Each run finishes inside the budget because the timer restarts on completion.
	assert.Equal(t, []Status{P, S, P, S, P, S}, tickN(ctx, lt, 6))
	assert.Zero(t, child.resets)
}
