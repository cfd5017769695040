// Package world holds the entity registry that behaviour trees query for
// targets: positions, headings and tags stored as ark ECS components.
package world

import (
	"cmp"
	"slices"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// EntityID is the stable identifier handed out by a Registry. Ids are never reused.
type EntityID uint32

// NoEntity is the zero id; no spawned entity carries it.
const NoEntity EntityID = 0

// Position is the world-space location component.
type Position struct {
	Vec r2.Vec
}

// Heading is the facing angle in radians, counter-clockwise from +X.
type Heading struct {
	Radians float64
}

// Identity ties an ECS entity to its registry id and tags.
type Identity struct {
	ID   EntityID
	Tags []string
}

// Entity is a point-in-time copy of one registered entity.
type Entity struct {
	ID       EntityID `json:"id"`
	Position r2.Vec   `json:"position"`
	Heading  float64  `json:"heading"`
	Tags     []string `json:"tags"`
}

// HasTag reports whether the entity carries tag.
func (e Entity) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// HasAnyTag reports whether the entity carries one of tags. An empty set matches everything.
func (e Entity) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}

// Registry is safe for concurrent use. Every access goes through one mutex
// because ark queries mutate world lock state even when only reading.
type Registry struct {
	mu sync.Mutex

	world   *ecs.World
	mapper  *ecs.Map3[Position, Heading, Identity]
	filter  *ecs.Filter3[Position, Heading, Identity]
	posMap  *ecs.Map1[Position]
	headMap *ecs.Map1[Heading]
	idMap   *ecs.Map1[Identity]

	byID   map[EntityID]ecs.Entity
	nextID EntityID
}

func NewRegistry() *Registry {
	w := ecs.NewWorld()
	return &Registry{
		world:   w,
		mapper:  ecs.NewMap3[Position, Heading, Identity](w),
		filter:  ecs.NewFilter3[Position, Heading, Identity](w),
		posMap:  ecs.NewMap1[Position](w),
		headMap: ecs.NewMap1[Heading](w),
		idMap:   ecs.NewMap1[Identity](w),
		byID:    make(map[EntityID]ecs.Entity),
		nextID:  1,
	}
}

// Spawn registers a new entity at pos and returns its id.
func (r *Registry) Spawn(pos r2.Vec, tags ...string) EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	p := Position{Vec: pos}
	h := Heading{}
	ident := Identity{ID: id, Tags: slices.Clone(tags)}
	r.byID[id] = r.mapper.NewEntity(&p, &h, &ident)
	return id
}

// Remove deletes the entity. It reports false for unknown ids.
func (r *Registry) Remove(id EntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return false
	}
	r.mapper.Remove(e)
	delete(r.byID, id)
	return true
}

func (r *Registry) SetPosition(id EntityID, pos r2.Vec) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return false
	}
	r.posMap.Get(e).Vec = pos
	return true
}

func (r *Registry) SetHeading(id EntityID, radians float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return false
	}
	r.headMap.Get(e).Radians = radians
	return true
}

// Entity returns a snapshot of one entity.
func (r *Registry) Entity(id EntityID) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || !r.world.Alive(e) {
		return Entity{}, false
	}
	return snapshot(r.posMap.Get(e), r.headMap.Get(e), r.idMap.Get(e)), true
}

// Entities returns every entity ordered by id.
func (r *Registry) Entities() []Entity {
	return r.EntitiesByTag()
}

// EntitiesByTag returns the entities carrying any of tags, ordered by id.
// With no tags every entity is returned.
func (r *Registry) EntitiesByTag(tags ...string) []Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entity, 0, len(r.byID))
	query := r.filter.Query()
	for query.Next() {
		pos, head, ident := query.Get()
		e := snapshot(pos, head, ident)
		if e.HasAnyTag(tags) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entity) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func snapshot(pos *Position, head *Heading, ident *Identity) Entity {
	return Entity{
		ID:       ident.ID,
		Position: pos.Vec,
		Heading:  head.Radians,
		Tags:     slices.Clone(ident.Tags),
	}
}
