package sim

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/npc"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
)

// Entity tags.
const (
	TagAnimal          = "Animal"
	TagPassiveCreature = "PassiveCreature"
	TagPredator        = "Predator"
	TagWaterSource     = "WaterSource"
	TagHerbivoreFood   = "HerbivoreFood"
	TagCarnivoreFood   = "CarnivoreFood"
)

const MaxHealth = 100.0

// Vitals is a copy of an animal's needs. Hunger and thirst run from 0 to 1.
type Vitals struct {
	Health float64 `json:"health"`
	Hunger float64 `json:"hunger"`
	Thirst float64 `json:"thirst"`
}

// Animal is an agent backed by a registry entity. Its tree runs on one
// goroutine at a time, but vitals may be changed by other animals (a predator
// eating it), so they sit behind a mutex.
type Animal struct {
	id      uuid.UUID
	entity  world.EntityID
	species SpeciesConfig
	world   *world.Registry
	grid    *pathfinding.Grid
	cell    float64
	rng     *rand.Rand
	tree    *npc.Tree

	mu     sync.Mutex
	vitals Vitals
}

var _ npc.Agent = (*Animal)(nil)

func (a *Animal) UUID() uuid.UUID { return a.id }

func (a *Animal) ID() world.EntityID { return a.entity }

func (a *Animal) Species() SpeciesConfig { return a.species }

func (a *Animal) Tree() *npc.Tree { return a.tree }

func (a *Animal) Position() r2.Vec {
	e, _ := a.world.Entity(a.entity)
	return e.Position
}

// SetPosition moves the entity unless the destination is off the map. Free
// movement also stops at rock; an animal walking a planned path is not
// checked, since the path only visits open cells and hex steps cut corners.
func (a *Animal) SetPosition(pos r2.Vec) {
	if a.grid != nil {
		p := pathfinding.WorldToCell(pos, a.cell)
		if !a.grid.InBounds(p.X, p.Y) {
			return
		}
		if !a.followingPath() && !a.grid.Traversable(p.X, p.Y) {
			return
		}
	}
	a.world.SetPosition(a.entity, pos)
}

func (a *Animal) followingPath() bool {
	return a.tree != nil && a.tree.Blackboard().Exists(blackboard.KeyPath)
}

func (a *Animal) Heading() float64 {
	e, _ := a.world.Entity(a.entity)
	return e.Heading
}

func (a *Animal) SetHeading(radians float64) {
	a.world.SetHeading(a.entity, radians)
}

func (a *Animal) Vitals() Vitals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.vitals
}

func (a *Animal) Alive() bool {
	return a.Vitals().Health > 0
}

// Age advances needs by dt seconds. Health drains while either need is saturated.
func (a *Animal) Age(cfg VitalsConfig, dt float64) Vitals {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := &a.vitals
	v.Thirst += cfg.ThirstPerSecond * dt
	v.Hunger += cfg.HungerPerSecond * dt
	if v.Thirst >= 1 {
		v.Health -= cfg.HealthDecayPerSecond * dt
	}
	if v.Hunger >= 1 {
		v.Health -= cfg.HealthDecayPerSecond * dt
	}
	v.Health = clamp(v.Health, 0, MaxHealth)
	v.Thirst = clamp(v.Thirst, 0, 1)
	v.Hunger = clamp(v.Hunger, 0, 1)
	return *v
}

func (a *Animal) SetThirst(v float64) {
	a.mu.Lock()
	a.vitals.Thirst = clamp(v, 0, 1)
	a.mu.Unlock()
}

func (a *Animal) SetHunger(v float64) {
	a.mu.Lock()
	a.vitals.Hunger = clamp(v, 0, 1)
	a.mu.Unlock()
}

func (a *Animal) AddHunger(v float64) {
	a.mu.Lock()
	a.vitals.Hunger = clamp(a.vitals.Hunger+v, 0, 1)
	a.mu.Unlock()
}

// Kill drops health to zero and returns what it was.
func (a *Animal) Kill() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	health := a.vitals.Health
	a.vitals.Health = 0
	return health
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

// AnimalState is the observer view of one animal.
type AnimalState struct {
	ID       string         `json:"id"`
	Entity   world.EntityID `json:"entity"`
	Species  string         `json:"species"`
	Diet     string         `json:"diet"`
	Position r2.Vec         `json:"position"`
	Heading  float64        `json:"heading"`
	Vitals
}

func (a *Animal) State() AnimalState {
	e, _ := a.world.Entity(a.entity)
	return AnimalState{
		ID:       a.id.String(),
		Entity:   a.entity,
		Species:  a.species.Name,
		Diet:     a.species.Diet,
		Position: e.Position,
		Heading:  e.Heading,
		Vitals:   a.Vitals(),
	}
}
