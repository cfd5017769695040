package sim

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/npc"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
)

//go:embed animal.yaml
var animalTreeYAML []byte

// wanderTries is how many random headings wanderDirection samples before giving up.
const wanderTries = 4

var wanderHeadings = [4]r2.Vec{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

// LoadTree reads a behaviour tree file, or the built-in animal tree when path is empty.
func LoadTree(path string) (*npc.Config, error) {
	data := animalTreeYAML
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("sim: reading tree file: %w", err)
		}
	}
	cfg, err := npc.LoadYAML(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AnimalLookup resolves a registry entity to the animal behind it.
type AnimalLookup func(id world.EntityID) (*Animal, bool)

// NewBehaviourRegistry registers the predicates and functions the animal tree names.
func NewBehaviourRegistry(vitals VitalsConfig, lookup AnimalLookup) *npc.Registry {
	reg := npc.NewRegistry()

	reg.RegisterPredicate("prey", func(ctx *npc.ExecutionContext) bool {
		a, ok := animalOf(ctx)
		return ok && a.species.Diet == Herbivore
	})
	reg.RegisterPredicate("thirsty", func(ctx *npc.ExecutionContext) bool {
		a, ok := animalOf(ctx)
		if !ok {
			return false
		}
		v := a.Vitals()
		return v.Thirst > v.Hunger && v.Thirst >= vitals.ThirstThreshold
	})
	reg.RegisterPredicate("hungry", func(ctx *npc.ExecutionContext) bool {
		a, ok := animalOf(ctx)
		if !ok {
			return false
		}
		v := a.Vitals()
		return v.Hunger > v.Thirst && v.Hunger >= vitals.HungerThreshold
	})
	// Keep foraging on the first pass and for as long as a path is being walked.
	reg.RegisterPredicate("searching", func(ctx *npc.ExecutionContext) bool {
		bb := ctx.Blackboard
		return bb.Int(blackboard.KeyRepeatCount, 0) == 0 || bb.Exists(blackboard.KeyPath)
	})

	reg.RegisterFunction("trimPath", trimPath)
	reg.RegisterFunction("drink", func(ctx *npc.ExecutionContext) bool {
		a, ok := animalOf(ctx)
		if !ok {
			return false
		}
		a.SetThirst(0)
		ctx.Blackboard.ClearKey(blackboard.KeyPath)
		return true
	})
	reg.RegisterFunction("eat", func(ctx *npc.ExecutionContext) bool {
		return eat(ctx, lookup)
	})
	reg.RegisterFunction("wanderDirection", wanderDirection)
	reg.RegisterFunction("fleeDirection", fleeDirection)
	reg.RegisterFunction("resetSpeed", func(ctx *npc.ExecutionContext) bool {
		a, ok := animalOf(ctx)
		if !ok {
			return false
		}
		ctx.Blackboard.SetFloat(blackboard.KeySpeed, a.species.Speed)
		return true
	})

	reg.RegisterMessage("vitals", func(ctx *npc.ExecutionContext) string {
		a, ok := animalOf(ctx)
		if !ok {
			return "no animal"
		}
		v := a.Vitals()
		return fmt.Sprintf("%s health=%.1f hunger=%.2f thirst=%.2f", a.species.Name, v.Health, v.Hunger, v.Thirst)
	})
	return reg
}

func animalOf(ctx *npc.ExecutionContext) (*Animal, bool) {
	a, ok := ctx.Agent.(*Animal)
	return a, ok && a != nil
}

// trimPath drops the goal cell so the walk stops next to the target.
func trimPath(ctx *npc.ExecutionContext) bool {
	bb := ctx.Blackboard
	if !bb.Exists(blackboard.KeyPath) {
		return false
	}
	path := bb.Path(blackboard.KeyPath, nil)
	if len(path) > 0 {
		path = path[:len(path)-1]
	}
	bb.SetPath(blackboard.KeyPath, path)
	return true
}

// eat consumes the current Target. Prey is killed and restores hunger in
// proportion to its remaining health; anything else empties hunger. A target
// that vanished on the way is a wasted trip, not a failure, so the hunt
// starts over with a fresh search.
func eat(ctx *npc.ExecutionContext, lookup AnimalLookup) bool {
	a, ok := animalOf(ctx)
	if !ok {
		return false
	}
	bb := ctx.Blackboard
	bb.ClearKey(blackboard.KeyPath)

	target := world.EntityID(bb.Int(blackboard.KeyTarget, int64(world.NoEntity)))
	if target == world.NoEntity || ctx.World == nil {
		return true
	}
	if _, exists := ctx.World.Entity(target); !exists {
		return true
	}

	if lookup != nil {
		if prey, isAnimal := lookup(target); isAnimal {
			if prey != a {
				a.AddHunger(-prey.Kill() / 200)
			}
			return true
		}
	}
	a.SetHunger(0)
	return true
}

// wanderDirection picks a random axis heading whose next cell is open and
// halves the walking speed.
func wanderDirection(ctx *npc.ExecutionContext) bool {
	a, ok := animalOf(ctx)
	if !ok {
		return false
	}
	from := pathfinding.WorldToCell(a.Position(), a.cell)
	for range wanderTries {
		dir := wanderHeadings[a.rng.Intn(len(wanderHeadings))]
		x, y := from.X+int(dir.X), from.Y+int(dir.Y)
		if a.grid != nil && (!a.grid.InBounds(x, y) || !a.grid.Traversable(x, y)) {
			continue
		}
		npc.SetDirection(ctx.Blackboard, dir)
		ctx.Blackboard.SetFloat(blackboard.KeySpeed, a.species.Speed/2)
		return true
	}
	return false
}

// fleeDirection points the animal straight away from the predator found by
// the preceding search. If the predator is already gone it bolts in a random
// direction.
func fleeDirection(ctx *npc.ExecutionContext) bool {
	a, ok := animalOf(ctx)
	if !ok {
		return false
	}
	bb := ctx.Blackboard
	// The path to the predator is not walked.
	bb.ClearKey(blackboard.KeyPath)

	var away r2.Vec
	if ctx.World != nil {
		if predator, exists := ctx.World.Entity(world.EntityID(bb.Int(blackboard.KeyTarget, int64(world.NoEntity)))); exists {
			away = r2.Sub(a.Position(), predator.Position)
		}
	}
	if r2.Norm(away) == 0 {
		away = wanderHeadings[a.rng.Intn(len(wanderHeadings))]
	}
	npc.SetDirection(bb, r2.Unit(away))
	bb.SetFloat(blackboard.KeySpeed, a.species.Speed)
	return true
}
