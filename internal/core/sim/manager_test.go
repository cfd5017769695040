package sim

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimalAge(t *testing.T) {
	a := &Animal{vitals: Vitals{Health: MaxHealth}}
	cfg := VitalsConfig{HungerPerSecond: 0.125, ThirstPerSecond: 0.25, HealthDecayPerSecond: 10}

	v := a.Age(cfg, 4)
	assert.Equal(t, Vitals{Health: 60, Hunger: 0.5, Thirst: 1}, v)
	assert.True(t, a.Alive())

	// Both needs saturated drain health twice as fast.
	v = a.Age(cfg, 4)
	assert.Equal(t, Vitals{Health: 0, Hunger: 1, Thirst: 1}, v)
	assert.False(t, a.Alive())
}

func TestAnimalKill(t *testing.T) {
	a := &Animal{vitals: Vitals{Health: 42}}
	assert.InDelta(t, 42, a.Kill(), 1e-9)
	assert.Zero(t, a.Kill())
	assert.False(t, a.Alive())
}

func TestManagerLookups(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	m := s.Manager()

	first := spawnAt(t, s, rabbit, 1, 1)
	second := spawnAt(t, s, fox, 2, 1)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []*Animal{first, second}, m.Animals())

	got, err := m.Get(second.UUID())
	require.NoError(t, err)
	assert.Same(t, second, got)

	byEntity, ok := m.ByEntity(first.ID())
	require.True(t, ok)
	assert.Same(t, first, byEntity)

	assert.Error(t, m.Add(first), "duplicate id")

	_, err = m.Get(uuid.New())
	assert.ErrorIs(t, err, ErrAgentNotFound)

	removed, err := m.Remove(first.UUID())
	require.NoError(t, err)
	assert.Same(t, first, removed)
	_, exists := s.World().Entity(first.ID())
	assert.False(t, exists)
	_, ok = m.ByEntity(first.ID())
	assert.False(t, ok)

	_, err = m.Remove(first.UUID())
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestManagerUpdateRemovesTheDead(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	m := NewManager(s.World(), s.Grid(), VitalsConfig{
		HungerPerSecond:      1,
		ThirstPerSecond:      1,
		HealthDecayPerSecond: 100,
	}, 0, nil)

	starving := spawnAt(t, s, rabbit, 1, 1)
	require.NoError(t, m.Add(starving))

	dead, err := m.Update(context.Background(), time.Second)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, starving.UUID().String(), dead[0].ID)
	assert.Equal(t, "rabbit", dead[0].Species)
	assert.Zero(t, dead[0].Health)
	assert.Equal(t, starving.ID(), dead[0].Entity)
	assert.Zero(t, m.Len())

	dead, err = m.Update(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestManagerUpdateHonoursCancellation(t *testing.T) {
	s := newTestSim(t, nil, openField...)
	spawnAt(t, s, rabbit, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Manager().Update(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
