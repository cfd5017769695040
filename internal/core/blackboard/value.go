package blackboard

import (
	"fmt"
	"slices"

	"github.com/zeusync/habitat/internal/core/pathfinding"
)

// Kind identifies which member of Value is populated.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindStrings
	KindPath
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	case KindPath:
		return "path"
	case KindOpaque:
		return "opaque"
	default:
		return "invalid"
	}
}

// Value is a closed sum over the kinds a Blackboard can hold. The zero Value is invalid.
type Value struct {
	kind   Kind
	num    int64
	real   float64
	flag   bool
	text   string
	list   []string
	path   []pathfinding.Point
	opaque any
}

func Int(v int64) Value                { return Value{kind: KindInt, num: v} }
func Float(v float64) Value            { return Value{kind: KindFloat, real: v} }
func Bool(v bool) Value                { return Value{kind: KindBool, flag: v} }
func String(v string) Value            { return Value{kind: KindString, text: v} }
func Strings(v []string) Value         { return Value{kind: KindStrings, list: slices.Clone(v)} }
func Path(v []pathfinding.Point) Value { return Value{kind: KindPath, path: clonePath(v)} }
func Opaque(v any) Value               { return Value{kind: KindOpaque, opaque: v} }

func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value carries a kind.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsInt returns the integer payload and whether v is an integer.
func (v Value) AsInt() (int64, bool) { return v.num, v.kind == KindInt }

func (v Value) AsFloat() (float64, bool) { return v.real, v.kind == KindFloat }

func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == KindBool }

func (v Value) AsString() (string, bool) { return v.text, v.kind == KindString }

// AsStrings returns a copy of the list payload.
func (v Value) AsStrings() ([]string, bool) {
	if v.kind != KindStrings {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// AsPath returns a copy of the path payload. An empty path is non-nil.
func (v Value) AsPath() ([]pathfinding.Point, bool) {
	if v.kind != KindPath {
		return nil, false
	}
	return clonePath(v.path), true
}

func (v Value) AsOpaque() (any, bool) { return v.opaque, v.kind == KindOpaque }

// Any returns the payload boxed in an interface.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.num
	case KindFloat:
		return v.real
	case KindBool:
		return v.flag
	case KindString:
		return v.text
	case KindStrings:
		return slices.Clone(v.list)
	case KindPath:
		return clonePath(v.path)
	case KindOpaque:
		return v.opaque
	default:
		return nil
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.kind, v.Any())
}

func clonePath(p []pathfinding.Point) []pathfinding.Point {
	out := make([]pathfinding.Point, len(p))
	copy(out, p)
	return out
}
