package sim

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/habitat/internal/core/npc"
	"github.com/zeusync/habitat/internal/core/observability/log"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
	"github.com/zeusync/habitat/pkg/concurrent"
)

var ErrAgentNotFound = errors.New("sim: agent not found")

// Manager owns the living animals and ticks them, several at a time.
type Manager struct {
	mu       sync.RWMutex
	animals  map[uuid.UUID]*Animal
	byEntity map[world.EntityID]*Animal

	world   *world.Registry
	grid    pathfinding.Source
	vitals  VitalsConfig
	workers int
	logger  log.Log
}

// NewManager creates a manager. workers bounds concurrent ticks; zero means one goroutine per animal.
func NewManager(reg *world.Registry, grid pathfinding.Source, vitals VitalsConfig, workers int, logger log.Log) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		animals:  make(map[uuid.UUID]*Animal),
		byEntity: make(map[world.EntityID]*Animal),
		world:    reg,
		grid:     grid,
		vitals:   vitals,
		workers:  workers,
		logger:   logger.Named("manager"),
	}
}

func (m *Manager) Add(a *Animal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.animals[a.id]; exists {
		return fmt.Errorf("sim: agent %s already exists", a.id)
	}
	m.animals[a.id] = a
	m.byEntity[a.entity] = a
	return nil
}

// Remove forgets the animal, deletes its entity and cancels any search its tree has in flight.
func (m *Manager) Remove(id uuid.UUID) (*Animal, error) {
	m.mu.Lock()
	a, exists := m.animals[id]
	if exists {
		delete(m.animals, id)
		delete(m.byEntity, a.entity)
	}
	m.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	m.world.Remove(a.entity)
	if a.tree != nil {
		a.tree.Reset()
	}
	return a, nil
}

func (m *Manager) Get(id uuid.UUID) (*Animal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, exists := m.animals[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a, nil
}

// ByEntity resolves a registry entity to its animal.
func (m *Manager) ByEntity(id world.EntityID) (*Animal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, exists := m.byEntity[id]
	return a, exists
}

// Animals returns the living animals ordered by entity id.
func (m *Manager) Animals() []*Animal {
	m.mu.RLock()
	animals := make([]*Animal, 0, len(m.animals))
	for _, a := range m.animals {
		animals = append(animals, a)
	}
	m.mu.RUnlock()

	slices.SortFunc(animals, func(a, b *Animal) int { return cmp.Compare(a.entity, b.entity) })
	return animals
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.animals)
}

// Update ages and ticks every animal once, then removes the ones that died
// during the tick, including prey killed by another animal. The final states
// of the removed animals are returned.
func (m *Manager) Update(ctx context.Context, dt time.Duration) ([]AnimalState, error) {
	animals := m.Animals()

	err := concurrent.Each(ctx, animals, m.workers, func(ctx context.Context, a *Animal) error {
		m.tick(ctx, a, dt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sim: update agents: %w", err)
	}

	var dead []AnimalState
	for _, a := range animals {
		if a.Alive() {
			continue
		}
		st := a.State()
		if _, err := m.Remove(a.id); err != nil {
			m.logger.Warn("remove dead agent", log.String("agent", a.id.String()), log.Error(err))
			continue
		}
		dead = append(dead, st)
	}
	return dead, nil
}

func (m *Manager) tick(ctx context.Context, a *Animal, dt time.Duration) {
	if v := a.Age(m.vitals, dt.Seconds()); v.Health <= 0 {
		return
	}
	if a.tree == nil {
		return
	}
	a.tree.Tick(&npc.ExecutionContext{
		Context:   ctx,
		Agent:     a,
		World:     m.world,
		Grid:      m.grid,
		DeltaTime: dt,
		Logger:    m.logger,
	})
}
