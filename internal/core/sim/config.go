// Package sim runs a population of animals whose decisions come from
// behaviour trees: drink when thirsty, hunt or graze when hungry, flee
// predators and wander otherwise.
package sim

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/habitat/internal/core/pathfinding"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Diets.
const (
	Herbivore = "herbivore"
	Carnivore = "carnivore"
	Omnivore  = "omnivore"
)

// Layout symbols.
const (
	TileRock    = '#'
	TileWater   = '~'
	TileGrass   = '*'
	TileCarrion = '%'
	TileOpen    = '.'
	TileComment = '!'
)

var configValidate = validator.New()

// Config holds a complete scenario.
type Config struct {
	World   WorldConfig     `yaml:"world"`
	Vitals  VitalsConfig    `yaml:"vitals"`
	Species []SpeciesConfig `yaml:"species" validate:"min=1,dive"`
	Sim     RunConfig       `yaml:"sim"`
	// Tree is an optional path to a behaviour tree file replacing the built-in one.
	Tree string `yaml:"tree,omitempty"`
}

// WorldConfig describes the map. Rows shorter than the widest one are padded with open ground.
type WorldConfig struct {
	CellSize float64  `yaml:"cell_size" validate:"gt=0"`
	Topology string   `yaml:"topology" validate:"oneof=square square8 hex triangle"`
	Layout   []string `yaml:"layout" validate:"min=1"`
}

// VitalsConfig holds the per-second drift of every animal's needs.
type VitalsConfig struct {
	HungerPerSecond      float64 `yaml:"hunger_per_second" validate:"gte=0"`
	ThirstPerSecond      float64 `yaml:"thirst_per_second" validate:"gte=0"`
	HealthDecayPerSecond float64 `yaml:"health_decay_per_second" validate:"gte=0"`
	HungerThreshold      float64 `yaml:"hunger_threshold" validate:"gte=0,lte=1"`
	ThirstThreshold      float64 `yaml:"thirst_threshold" validate:"gte=0,lte=1"`
}

type SpeciesConfig struct {
	Name  string  `yaml:"name" validate:"required"`
	Diet  string  `yaml:"diet" validate:"oneof=herbivore carnivore omnivore"`
	Speed float64 `yaml:"speed" validate:"gt=0"`
	Count int     `yaml:"count" validate:"gte=0"`
}

// RunConfig controls the tick loop.
type RunConfig struct {
	TickInterval time.Duration `yaml:"tick_interval" validate:"gt=0"`
	Workers      int           `yaml:"workers" validate:"gte=0"`
	Seed         int64         `yaml:"seed"`
	MaxTicks     uint64        `yaml:"max_ticks"`
	StatsEvery   uint64        `yaml:"stats_every"`
	FoodSight    float64       `yaml:"food_sight" validate:"gt=0"`
}

// Load loads a scenario from a YAML file, merging it over the embedded defaults.
// If path is empty, only the defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("sim: parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("sim: reading config file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("sim: parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded scenario.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks field constraints and the layout.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("sim: invalid config: %w", err)
	}

	rows := c.World.Rows()
	if len(rows) == 0 {
		return fmt.Errorf("sim: layout has no rows")
	}
	for y, row := range rows {
		for x, r := range row {
			switch r {
			case TileRock, TileWater, TileGrass, TileCarrion, TileOpen, ' ':
			default:
				return fmt.Errorf("sim: layout row %d col %d: unknown tile %q", y, x, r)
			}
		}
	}

	seen := make(map[string]bool, len(c.Species))
	for _, s := range c.Species {
		if seen[s.Name] {
			return fmt.Errorf("sim: duplicate species %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Rows returns the layout with comments and blank lines removed.
func (w WorldConfig) Rows() []string {
	rows := make([]string, 0, len(w.Layout))
	for _, line := range w.Layout {
		if i := strings.IndexRune(line, TileComment); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}

// Size is the grid size implied by the layout.
func (w WorldConfig) Size() (width, height int) {
	rows := w.Rows()
	for _, row := range rows {
		width = max(width, len(row))
	}
	return width, len(rows)
}

// BuildGrid creates the navigation grid. Rock is impassable; everything else is open.
func (w WorldConfig) BuildGrid() (*pathfinding.Grid, error) {
	topology, err := pathfinding.ParseTopology(w.Topology)
	if err != nil {
		return nil, err
	}
	width, height := w.Size()
	grid, err := pathfinding.NewGrid(width, height, topology)
	if err != nil {
		return nil, err
	}
	for y, row := range w.Rows() {
		for x, r := range row {
			if r == TileRock {
				grid.SetTraversable(x, y, false)
			}
		}
	}
	grid.RefreshNodes()
	return grid, nil
}

// Tiles calls fn for every cell of the layout holding symbol.
func (w WorldConfig) Tiles(symbol rune, fn func(p pathfinding.Point)) {
	for y, row := range w.Rows() {
		for x, r := range row {
			if r == symbol {
				fn(pathfinding.Point{X: x, Y: y})
			}
		}
	}
}

// FoodTags lists the tags an animal with this diet eats.
func FoodTags(diet string) []string {
	var tags []string
	if diet == Herbivore || diet == Omnivore {
		tags = append(tags, TagHerbivoreFood)
	}
	if diet == Carnivore || diet == Omnivore {
		tags = append(tags, TagCarnivoreFood, TagPassiveCreature)
	}
	return tags
}
