// Package blackboard implements the typed key/value store shared by the nodes
// of one behaviour tree.
//
// A Blackboard is owned by a single tree and is not safe for concurrent use.
package blackboard

import (
	"fmt"
	"maps"
	"slices"

	"github.com/zeusync/habitat/internal/core/pathfinding"
)

// TypeMismatchError describes a read with the wrong kind.
type TypeMismatchError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("blackboard: key %q holds %s, read as %s", e.Key, e.Got, e.Want)
}

type Blackboard struct {
	entries    map[string]Value
	strict     bool
	onMismatch func(*TypeMismatchError)
}

type Option func(*Blackboard)

// WithStrict makes wrong-kind reads panic with a *TypeMismatchError instead of
// returning the caller's default.
func WithStrict(strict bool) Option {
	return func(b *Blackboard) { b.strict = strict }
}

// WithMismatchHandler is called for every wrong-kind read in non-strict mode.
func WithMismatchHandler(fn func(*TypeMismatchError)) Option {
	return func(b *Blackboard) { b.onMismatch = fn }
}

func New(opts ...Option) *Blackboard {
	b := &Blackboard{entries: make(map[string]Value)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Set upserts an entry. Invalid values are ignored.
func (b *Blackboard) Set(name string, v Value) {
	if !v.IsValid() {
		return
	}
	b.entries[name] = v
}

func (b *Blackboard) SetInt(name string, v int64)                { b.Set(name, Int(v)) }
func (b *Blackboard) SetFloat(name string, v float64)            { b.Set(name, Float(v)) }
func (b *Blackboard) SetBool(name string, v bool)                { b.Set(name, Bool(v)) }
func (b *Blackboard) SetString(name string, v string)            { b.Set(name, String(v)) }
func (b *Blackboard) SetStrings(name string, v []string)         { b.Set(name, Strings(v)) }
func (b *Blackboard) SetPath(name string, v []pathfinding.Point) { b.Set(name, Path(v)) }
func (b *Blackboard) SetOpaque(name string, v any)               { b.Set(name, Opaque(v)) }

// Lookup returns the raw entry.
func (b *Blackboard) Lookup(name string) (Value, bool) {
	v, ok := b.entries[name]
	return v, ok
}

func (b *Blackboard) Exists(name string) bool {
	_, ok := b.entries[name]
	return ok
}

// Kind returns the kind stored under name, KindInvalid when absent.
func (b *Blackboard) Kind(name string) Kind {
	return b.entries[name].kind
}

func (b *Blackboard) Int(name string, def int64) int64 {
	v, ok := b.read(name, KindInt)
	if !ok {
		return def
	}
	return v.num
}

func (b *Blackboard) Float(name string, def float64) float64 {
	v, ok := b.read(name, KindFloat)
	if !ok {
		return def
	}
	return v.real
}

func (b *Blackboard) Bool(name string, def bool) bool {
	v, ok := b.read(name, KindBool)
	if !ok {
		return def
	}
	return v.flag
}

func (b *Blackboard) String(name string, def string) string {
	v, ok := b.read(name, KindString)
	if !ok {
		return def
	}
	return v.text
}

func (b *Blackboard) Strings(name string, def []string) []string {
	v, ok := b.read(name, KindStrings)
	if !ok {
		return def
	}
	return slices.Clone(v.list)
}

// Path returns a copy of the stored path. A stored empty path comes back as an
// empty non-nil slice so callers can tell it apart from an absent key.
func (b *Blackboard) Path(name string, def []pathfinding.Point) []pathfinding.Point {
	v, ok := b.read(name, KindPath)
	if !ok {
		return def
	}
	return clonePath(v.path)
}

func (b *Blackboard) Opaque(name string, def any) any {
	v, ok := b.read(name, KindOpaque)
	if !ok {
		return def
	}
	return v.opaque
}

// Clear removes every entry.
func (b *Blackboard) Clear() {
	clear(b.entries)
}

// ClearKey removes one entry.
func (b *Blackboard) ClearKey(name string) {
	delete(b.entries, name)
}

// Keys returns the entry names in sorted order.
func (b *Blackboard) Keys() []string {
	return slices.Sorted(maps.Keys(b.entries))
}

func (b *Blackboard) Len() int { return len(b.entries) }

// Snapshot copies the entries into plain Go values, for inspection and export.
func (b *Blackboard) Snapshot() map[string]any {
	out := make(map[string]any, len(b.entries))
	for k, v := range b.entries {
		out[k] = v.Any()
	}
	return out
}

func (b *Blackboard) read(name string, want Kind) (Value, bool) {
	v, ok := b.entries[name]
	if !ok {
		return Value{}, false
	}
	if v.kind != want {
		b.mismatch(&TypeMismatchError{Key: name, Want: want, Got: v.kind})
		return Value{}, false
	}
	return v, true
}

func (b *Blackboard) mismatch(err *TypeMismatchError) {
	if b.strict {
		panic(err)
	}
	if b.onMismatch != nil {
		b.onMismatch(err)
	}
}
