package npc

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	ErrUnknownNode      = errors.New("npc: unknown node")
	ErrUnknownFunc      = errors.New("npc: unknown function")
	ErrUnknownPredicate = errors.New("npc: unknown predicate")
	ErrUnknownMessage   = errors.New("npc: unknown message")
)

// Registry maps the names used in tree configs to Go callbacks.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
	functions  map[string]Function
	messages   map[string]MessageFunc
}

func NewRegistry() *Registry {
	return &Registry{
		predicates: make(map[string]Predicate),
		functions:  make(map[string]Function),
		messages:   make(map[string]MessageFunc),
	}
}

// RegisterPredicate adds or replaces a named predicate.
func (r *Registry) RegisterPredicate(name string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = p
}

// RegisterFunction adds or replaces a named function.
func (r *Registry) RegisterFunction(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = fn
}

// RegisterMessage adds or replaces a named DynamicLog message.
func (r *Registry) RegisterMessage(name string, fn MessageFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[name] = fn
}

func (r *Registry) Predicate(name string) (Predicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predicates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPredicate, name)
	}
	return p, nil
}

func (r *Registry) Function(name string) (Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunc, name)
	}
	return fn, nil
}

func (r *Registry) Message(name string) (MessageFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.messages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, name)
	}
	return fn, nil
}

// Names lists every registered name, sorted, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Collect(maps.Keys(r.predicates))
	names = slices.AppendSeq(names, maps.Keys(r.functions))
	names = slices.AppendSeq(names, maps.Keys(r.messages))
	slices.Sort(names)
	return slices.Compact(names)
}
