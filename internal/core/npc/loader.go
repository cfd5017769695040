package npc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/habitat/internal/core/blackboard"
	"github.com/zeusync/habitat/internal/core/pathfinding"
	"github.com/zeusync/habitat/internal/core/world"
)

// NodeTypes lists every node type a Config may name.
var NodeTypes = []string{
	"Sequence", "Selector", "RandomSequence", "RandomSelector",
	"Evaluator", "Conditional",
	"Inverse", "Succeeder", "Log", "DynamicLog",
	"Repeat", "RepeatCount", "RepeatUntilFail", "RepeatTime", "LimitTime",
	"CallFunction", "Wait", "SetValue", "ValueExists",
	"Move", "MoveTowards", "NavigatePath", "FindPath",
	"FindClosest", "FindFirst", "WithinDistance", "CanSee", "CanSeeTarget",
	"FindClosestNavigatable",
}

// configValidate checks Config structs. Initialized in init() with the
// nodetype rule.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("nodetype", func(fl validator.FieldLevel) bool {
		return slices.Contains(NodeTypes, fl.Field().String())
	})
}

// Config describes a behaviour tree in JSON or YAML. Nodes are declared flat
// and reference each other by key; every node except Root must have exactly
// one parent.
type Config struct {
	Root  string                `json:"root" yaml:"root" validate:"required"`
	Nodes map[string]ConfigNode `json:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
}

// ConfigNode declares one node. Which fields apply depends on Type:
// composites use Children, decorators use Child, Evaluator uses Then/Else,
// and Condition, Function and Message name Registry entries. For Log,
// Message is the literal text.
type ConfigNode struct {
	Type      string         `json:"type" yaml:"type" validate:"required,nodetype"`
	Children  []string       `json:"children,omitempty" yaml:"children,omitempty"`
	Child     string         `json:"child,omitempty" yaml:"child,omitempty"`
	Then      string         `json:"then,omitempty" yaml:"then,omitempty"`
	Else      string         `json:"else,omitempty" yaml:"else,omitempty"`
	Condition string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	Function  string         `json:"function,omitempty" yaml:"function,omitempty"`
	Message   string         `json:"message,omitempty" yaml:"message,omitempty"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

func (n ConfigNode) refs() []string {
	refs := slices.Clone(n.Children)
	for _, r := range []string{n.Child, n.Then, n.Else} {
		if r != "" {
			refs = append(refs, r)
		}
	}
	return refs
}

// LoadJSON loads config from JSON reader.
func LoadJSON(r io.Reader) (*Config, error) {
	var c Config
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("npc: decode json: %w", err)
	}
	return &c, nil
}

// LoadYAML loads config from YAML reader.
func LoadYAML(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("npc: decode yaml: %w", err)
	}
	return &c, nil
}

// Validate checks field tags, references and tree shape.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("npc: invalid config: %w", err)
	}
	if _, ok := c.Nodes[c.Root]; !ok {
		return fmt.Errorf("%w: root %q", ErrUnknownNode, c.Root)
	}

	parents := make(map[string]string, len(c.Nodes))
	for _, name := range sortedKeys(c.Nodes) {
		for _, ref := range c.Nodes[name].refs() {
			if _, ok := c.Nodes[ref]; !ok {
				return fmt.Errorf("%w: %q referenced by %q", ErrUnknownNode, ref, name)
			}
			if ref == c.Root {
				return fmt.Errorf("npc: node %q references the root", name)
			}
			if prev, taken := parents[ref]; taken {
				return fmt.Errorf("npc: node %q has two parents (%q, %q)", ref, prev, name)
			}
			parents[ref] = name
		}
	}

	// With one parent per node, anything unreachable from the root sits on a cycle
	// or is an orphan; both are rejected.
	seen := map[string]bool{c.Root: true}
	queue := []string{c.Root}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, ref := range c.Nodes[name].refs() {
			if !seen[ref] {
				seen[ref] = true
				queue = append(queue, ref)
			}
		}
	}
	for _, name := range sortedKeys(c.Nodes) {
		if !seen[name] {
			return fmt.Errorf("npc: node %q is not reachable from root", name)
		}
	}
	return nil
}

// BuildOption customises Build.
type BuildOption func(*builder)

// WithRand sets the source used by random composites.
func WithRand(rng *rand.Rand) BuildOption {
	return func(b *builder) { b.rng = rng }
}

type builder struct {
	cfg *Config
	reg *Registry
	rng *rand.Rand
}

// Build validates the config and constructs a fresh node tree. Each call
// returns independent nodes, so one config can drive many agents.
func (c *Config) Build(reg *Registry, opts ...BuildOption) (Node, error) {
	if reg == nil {
		return nil, errors.New("npc: nil registry")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	b := &builder{cfg: c, reg: reg}
	for _, opt := range opts {
		opt(b)
	}
	return b.build(c.Root)
}

func (b *builder) build(name string) (Node, error) {
	nc := b.cfg.Nodes[name]
	n, err := b.create(name, nc)
	if err != nil {
		return nil, fmt.Errorf("npc: node %q (%s): %w", name, nc.Type, err)
	}
	return n, nil
}

func (b *builder) optional(name string) (Node, error) {
	if name == "" {
		return nil, nil
	}
	return b.build(name)
}

func (b *builder) children(names []string) ([]Node, error) {
	out := make([]Node, 0, len(names))
	for _, name := range names {
		n, err := b.build(name)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (b *builder) create(name string, nc ConfigNode) (Node, error) {
	p := nc.Params

	switch nc.Type {
	case "Sequence", "Selector", "RandomSequence", "RandomSelector":
		children, err := b.children(nc.Children)
		if err != nil {
			return nil, err
		}
		switch nc.Type {
		case "Sequence":
			return NewSequenceNode(name, children...), nil
		case "Selector":
			return NewSelectorNode(name, children...), nil
		case "RandomSequence":
			return NewRandomSequenceNode(name, b.rng, children...), nil
		default:
			return NewRandomSelectorNode(name, b.rng, children...), nil
		}

	case "Evaluator":
		cond, err := b.reg.Predicate(nc.Condition)
		if err != nil {
			return nil, err
		}
		onTrue, err := b.optional(nc.Then)
		if err != nil {
			return nil, err
		}
		onFalse, err := b.optional(nc.Else)
		if err != nil {
			return nil, err
		}
		return NewEvaluatorNode(name, cond, onTrue, onFalse), nil

	case "CallFunction":
		fn, err := b.reg.Function(nc.Function)
		if err != nil {
			return nil, err
		}
		return NewCallFunctionNode(name, fn), nil

	case "Wait":
		return NewWaitNode(name, getDurationParameter(p, "duration", time.Second)), nil

	case "SetValue":
		key, _ := getStringParameter(p, "key", "")
		value, ok := valueParameter(p, "value")
		if key == "" || !ok {
			return nil, errors.New("SetValue needs params key and value")
		}
		return NewSetValueNode(name, key, value), nil

	case "ValueExists":
		key, _ := getStringParameter(p, "key", "")
		return NewValueExistsNode(name, key), nil

	case "Move":
		speed, _ := getFloatParameter(p, "speed", DefaultSpeed)
		dir, _ := getVecParameter(p, "direction", r2.Vec{})
		return NewMoveNode(name, speed, dir, getBoolParameter(p, "from_blackboard", false)), nil

	case "MoveTowards":
		target, _ := getFloatParameter(p, "target", 0)
		speed, _ := getFloatParameter(p, "speed", DefaultSpeed)
		return NewMoveTowardsNode(name, world.EntityID(target), speed, getBoolParameter(p, "from_blackboard", true)), nil

	case "NavigatePath":
		speed, _ := getFloatParameter(p, "speed", DefaultSpeed)
		return NewNavigatePathNode(name, speed), nil

	case "FindPath":
		steps, _ := getFloatParameter(p, "steps_per_update", DefaultStepsPerUpdate)
		var opts []pathfinding.Option
		if h, ok := getStringParameter(p, "heuristic", ""); ok {
			heuristic, err := pathfinding.ParseHeuristic(h)
			if err != nil {
				return nil, err
			}
			opts = append(opts, pathfinding.WithHeuristic(heuristic))
		}
		return NewFindPathNode(name, int(steps), opts...), nil

	case "FindClosest":
		tag, _ := getStringParameter(p, "tag", "")
		return NewFindClosestNode(name, tag, getBoolParameter(p, "from_blackboard", false)), nil

	case "FindFirst":
		tag, _ := getStringParameter(p, "tag", "")
		return NewFindFirstNode(name, tag, getBoolParameter(p, "from_blackboard", false)), nil

	case "WithinDistance":
		target, _ := getFloatParameter(p, "target", 0)
		maxDist, _ := getFloatParameter(p, "max_distance", 1)
		return NewWithinDistanceNode(name, world.EntityID(target), maxDist, getBoolParameter(p, "from_blackboard", true)), nil

	case "CanSee":
		tag, _ := getStringParameter(p, "tag", "")
		sight, _ := getFloatParameter(p, "sight", DefaultSightRange)
		fov, _ := getFloatParameter(p, "fov", DefaultFieldOfView)
		return NewCanSeeNode(name, tag, sight, fov, getBoolParameter(p, "from_blackboard", false)), nil

	case "CanSeeTarget":
		target, _ := getFloatParameter(p, "target", 0)
		sight, _ := getFloatParameter(p, "sight", DefaultSightRange)
		fov, _ := getFloatParameter(p, "fov", DefaultFieldOfView)
		return NewCanSeeTargetNode(name, world.EntityID(target), sight, fov, getBoolParameter(p, "from_blackboard", true)), nil

	case "FindClosestNavigatable":
		sight, _ := getFloatParameter(p, "sight", DefaultNavigatableSight)
		tags, _ := getStringSliceParameter(p, "tags", nil)
		fn := NewFindClosestNavigatableNode(name, sight, tags...)
		fn.FromBlackboard = getBoolParameter(p, "from_blackboard", false)
		fn.Background = getBoolParameter(p, "background", false)
		if steps, ok := getFloatParameter(p, "max_steps", DefaultSearchSteps); ok {
			fn.MaxSteps = int(steps)
		}
		return fn, nil
	}

	return b.decorator(name, nc)
}

// decorator builds the single-child node types.
func (b *builder) decorator(name string, nc ConfigNode) (Node, error) {
	p := nc.Params
	child, err := b.optional(nc.Child)
	if err != nil {
		return nil, err
	}

	switch nc.Type {
	case "Conditional":
		cond, err := b.reg.Predicate(nc.Condition)
		if err != nil {
			return nil, err
		}
		return NewConditionalNode(name, cond, child), nil
	case "Inverse":
		return NewInverseNode(name, child), nil
	case "Succeeder":
		return NewSucceederNode(name, child), nil
	case "Log":
		return NewLogNode(name, nc.Message, child), nil
	case "DynamicLog":
		msg, err := b.reg.Message(nc.Message)
		if err != nil {
			return nil, err
		}
		return NewDynamicLogNode(name, msg, child), nil
	case "Repeat":
		cond, err := b.reg.Predicate(nc.Condition)
		if err != nil {
			return nil, err
		}
		return NewRepeatNode(name, cond, child), nil
	case "RepeatCount":
		times, _ := getFloatParameter(p, "times", 1)
		return NewRepeatCountNode(name, int(times), getBoolParameter(p, "single_tick", false), child), nil
	case "RepeatUntilFail":
		return NewRepeatUntilFailNode(name, child), nil
	case "RepeatTime":
		return NewRepeatTimeNode(name, getDurationParameter(p, "duration", time.Second), child), nil
	case "LimitTime":
		return NewLimitTimeNode(name, getDurationParameter(p, "duration", 10*time.Second), child), nil
	default:
		return nil, fmt.Errorf("unsupported node type %q", nc.Type)
	}
}

func sortedKeys(m map[string]ConfigNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Helper functions for parameter extraction

func getStringParameter(params map[string]any, key, defaultValue string) (string, bool) {
	if params == nil {
		return defaultValue, false
	}

	if value, exists := params[key]; exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}

	return defaultValue, false
}

func getFloatParameter(params map[string]any, key string, defaultValue float64) (float64, bool) {
	if params == nil {
		return defaultValue, false
	}

	if value, exists := params[key]; exists {
		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		}
	}

	return defaultValue, false
}

func getBoolParameter(params map[string]any, key string, defaultValue bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}

func getStringSliceParameter(params map[string]any, key string, defaultValue []string) ([]string, bool) {
	if params == nil {
		return defaultValue, false
	}

	if value, exists := params[key]; exists {
		if slice, ok := value.([]any); ok {
			result := make([]string, 0, len(slice))
			for _, item := range slice {
				if str, ok := item.(string); ok {
					result = append(result, str)
				}
			}
			return result, true
		}
	}

	return defaultValue, false
}

// getDurationParameter accepts seconds as a number or a time.ParseDuration string.
func getDurationParameter(params map[string]any, key string, defaultValue time.Duration) time.Duration {
	if s, ok := getStringParameter(params, key, ""); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		return defaultValue
	}
	if secs, ok := getFloatParameter(params, key, 0); ok {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func getVecParameter(params map[string]any, key string, defaultValue r2.Vec) (r2.Vec, bool) {
	slice, ok := params[key].([]any)
	if !ok || len(slice) != 2 {
		return defaultValue, false
	}
	xy := make([]float64, 2)
	for i, item := range slice {
		v, ok := getFloatParameter(map[string]any{"v": item}, "v", 0)
		if !ok {
			return defaultValue, false
		}
		xy[i] = v
	}
	return r2.Vec{X: xy[0], Y: xy[1]}, true
}

// valueParameter converts a decoded scalar or string list into a blackboard value.
func valueParameter(params map[string]any, key string) (blackboard.Value, bool) {
	switch v := params[key].(type) {
	case int:
		return blackboard.Int(int64(v)), true
	case float64:
		return blackboard.Float(v), true
	case bool:
		return blackboard.Bool(v), true
	case string:
		return blackboard.String(v), true
	case []any:
		list, _ := getStringSliceParameter(params, key, nil)
		return blackboard.Strings(list), true
	default:
		return blackboard.Value{}, false
	}
}
