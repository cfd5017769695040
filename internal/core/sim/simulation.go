package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/events/bus"
	"github.com/zeusync/habitat/internal/core/npc"
	"github.com/zeusync/habitat/internal/core/observability/log"
	"github.com/zeusync/habitat/internal/core/observability/metrics"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
	"github.com/zeusync/habitat/pkg/concurrent"
)

// Event types published on the bus.
const (
	EventTick         = "sim.tick"
	EventAgentSpawned = "agent.spawned"
	EventAgentDied    = "agent.died"
	EventExtinct      = "sim.extinct"
)

const (
	eventSource         = "sim"
	maxSpawnAttempts    = 1000
	defaultTickInterval = 50 * time.Millisecond
)

// Snapshot is the observer view of one tick.
type Snapshot struct {
	Tick    uint64        `json:"tick"`
	Time    float64       `json:"time"`
	Deaths  uint64        `json:"deaths"`
	Animals []AnimalState `json:"animals"`
}

// Simulation wires the world, the navigation grid and the animal population
// together and advances them tick by tick.
type Simulation struct {
	cfg      *Config
	logger   log.Log
	events   bus.EventBus
	world    *world.Registry
	grid     *pathfinding.Grid
	manager  *Manager
	registry *npc.Registry
	tree     *npc.Config
	stats    *StatsWriter

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.RWMutex
	tick    uint64
	elapsed time.Duration
	deaths  uint64
}

// Option customises New.
type Option func(*Simulation)

// WithStats exports a stats row every cfg.Sim.StatsEvery ticks.
func WithStats(w *StatsWriter) Option {
	return func(s *Simulation) { s.stats = w }
}

// WithTree replaces the behaviour tree loaded from the config.
func WithTree(tree *npc.Config) Option {
	return func(s *Simulation) { s.tree = tree }
}

// New builds the world described by cfg and spawns the initial population.
func New(cfg *Config, logger log.Log, events bus.EventBus, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sim: nil config")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if events == nil {
		events = bus.New()
	}

	grid, err := cfg.World.BuildGrid()
	if err != nil {
		return nil, fmt.Errorf("sim: build grid: %w", err)
	}

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Simulation{
		cfg:    cfg,
		logger: logger.Named("sim"),
		events: events,
		world:  world.NewRegistry(),
		grid:   grid,
		rng:    rand.New(rand.NewSource(seed)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.tree == nil {
		if s.tree, err = LoadTree(cfg.Tree); err != nil {
			return nil, err
		}
	}

	s.manager = NewManager(s.world, grid, cfg.Vitals, cfg.Sim.Workers, logger)
	s.registry = NewBehaviourRegistry(cfg.Vitals, s.manager.ByEntity)

	s.spawnLandmarks()
	for _, species := range cfg.Species {
		for range species.Count {
			if _, err := s.Spawn(species); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("simulation ready",
		log.Int("width", grid.Width()),
		log.Int("height", grid.Height()),
		log.String("topology", grid.Topology().Name()),
		log.Int("animals", s.manager.Len()),
		log.Int64("seed", seed),
	)
	return s, nil
}

func (s *Simulation) Config() *Config { return s.cfg }

func (s *Simulation) World() *world.Registry { return s.world }

func (s *Simulation) Grid() *pathfinding.Grid { return s.grid }

func (s *Simulation) Manager() *Manager { return s.manager }

func (s *Simulation) Events() bus.EventBus { return s.events }

var landmarks = []struct {
	symbol rune
	tag    string
}{
	{TileWater, TagWaterSource},
	{TileGrass, TagHerbivoreFood},
	{TileCarrion, TagCarnivoreFood},
}

func (s *Simulation) spawnLandmarks() {
	cs := s.cfg.World.CellSize
	for _, lm := range landmarks {
		s.cfg.World.Tiles(lm.symbol, func(p pathfinding.Point) {
			s.world.Spawn(pathfinding.CellCenter(p, cs), lm.tag)
		})
	}
}

// Spawn places a new animal of the given species on a random open cell.
func (s *Simulation) Spawn(species SpeciesConfig) (*Animal, error) {
	s.rngMu.Lock()
	cell, ok := s.randomOpenCell()
	seed := s.rng.Int63()
	s.rngMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("sim: no open cell for %s", species.Name)
	}
	return s.SpawnAt(species, cell, seed)
}

// SpawnAt places a new animal at the centre of cell. seed drives its random choices.
func (s *Simulation) SpawnAt(species SpeciesConfig, cell pathfinding.Point, seed int64) (*Animal, error) {
	if !s.grid.InBounds(cell.X, cell.Y) || !s.grid.Traversable(cell.X, cell.Y) {
		return nil, fmt.Errorf("sim: cell %s is not open", cell)
	}

	cs := s.cfg.World.CellSize
	tags := []string{TagAnimal, species.Name}
	switch species.Diet {
	case Herbivore:
		tags = append(tags, TagPassiveCreature)
	default:
		tags = append(tags, TagPredator)
	}

	a := &Animal{
		id:      uuid.New(),
		species: species,
		world:   s.world,
		grid:    s.grid,
		cell:    cs,
		rng:     rand.New(rand.NewSource(seed)),
		vitals:  Vitals{Health: MaxHealth},
	}

	root, err := s.tree.Build(s.registry, npc.WithRand(a.rng))
	if err != nil {
		return nil, fmt.Errorf("sim: build tree for %s: %w", species.Name, err)
	}
	logger := s.logger.With(log.String("agent", a.id.String()), log.String("species", species.Name))
	bb := blackboard.New(blackboard.WithMismatchHandler(func(err *blackboard.TypeMismatchError) {
		logger.Warn("blackboard type mismatch", log.Error(err))
	}))
	bb.SetFloat(blackboard.KeyCellSize, cs)
	bb.SetFloat(blackboard.KeySpeed, species.Speed)
	bb.SetFloat(blackboard.KeySight, s.cfg.Sim.FoodSight)
	bb.SetStrings(blackboard.KeyTargetTags, FoodTags(species.Diet))
	a.tree = npc.NewTree(species.Name, root, bb)

	a.entity = s.world.Spawn(pathfinding.CellCenter(cell, cs), tags...)
	if err := s.manager.Add(a); err != nil {
		s.world.Remove(a.entity)
		return nil, err
	}

	s.publish(EventAgentSpawned, a.State())
	return a, nil
}

func (s *Simulation) randomOpenCell() (pathfinding.Point, bool) {
	w, h := s.grid.Width(), s.grid.Height()
	for range maxSpawnAttempts {
		x, y := s.rng.Intn(w), s.rng.Intn(h)
		if s.grid.Traversable(x, y) {
			return pathfinding.Point{X: x, Y: y}, true
		}
	}
	return pathfinding.Point{}, false
}

// Step advances the simulation by dt and publishes the resulting snapshot.
func (s *Simulation) Step(ctx context.Context, dt time.Duration) (Snapshot, error) {
	start := time.Now()

	dead, err := s.manager.Update(ctx, dt)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.tick++
	s.elapsed += dt
	s.deaths += uint64(len(dead))
	s.mu.Unlock()

	for _, st := range dead {
		s.logger.Info("agent died",
			log.String("agent", st.ID),
			log.String("species", st.Species),
			log.Float64("hunger", st.Hunger),
			log.Float64("thirst", st.Thirst),
		)
		s.publish(EventAgentDied, st)
	}

	snap := s.Snapshot()
	metrics.ObserveTick(time.Since(start))
	metrics.SetAgentsAlive(len(snap.Animals))
	s.publish(EventTick, snap)

	if every := s.cfg.Sim.StatsEvery; every > 0 && snap.Tick%every == 0 {
		if err := s.stats.Write(Summarize(snap)); err != nil {
			s.logger.Warn("stats export failed", log.Error(err))
		}
	}

	s.logger.Debug("tick",
		log.Uint64("tick", snap.Tick),
		log.Int("alive", len(snap.Animals)),
		log.Duration("took", time.Since(start)),
	)
	return snap, nil
}

// Snapshot reports the current state without advancing it.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{Tick: s.tick, Time: s.elapsed.Seconds(), Deaths: s.deaths}
	s.mu.RUnlock()

	snap.Animals = concurrent.ParallelMap(s.manager.Animals(), s.cfg.Sim.Workers, (*Animal).State)
	return snap
}

// Run ticks at cfg.Sim.TickInterval until ctx is cancelled, MaxTicks is
// reached or every animal is dead. Each tick advances simulated time by the
// interval, regardless of wall-clock jitter.
func (s *Simulation) Run(ctx context.Context) error {
	interval := s.cfg.Sim.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("simulation started", log.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation stopped", log.Uint64("tick", s.Snapshot().Tick))
			return nil
		case <-ticker.C:
			snap, err := s.Step(ctx, interval)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if limit := s.cfg.Sim.MaxTicks; limit > 0 && snap.Tick >= limit {
				s.logger.Info("tick limit reached", log.Uint64("tick", snap.Tick))
				return nil
			}
			if len(snap.Animals) == 0 {
				s.logger.Info("population extinct", log.Uint64("tick", snap.Tick))
				s.publish(EventExtinct, snap)
				return nil
			}
		}
	}
}

func (s *Simulation) publish(eventType string, data any) {
	if err := s.events.Publish(bus.NewEvent(eventType, eventSource, data)); err != nil {
		s.logger.Warn("event handler failed", log.String("type", eventType), log.Error(err))
	}
}
