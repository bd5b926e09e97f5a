// Package value defines the runtime data model shared by the compiler
// and the virtual machine: a tagged union of the primitive and
// reference values a ferro program can produce.
package value

import "fmt"

// Kind tags the variant a Value holds. A Value never changes Kind
// after construction.
type Kind uint8

const (
	KindInt Kind = iota
	KindBool
	KindStr
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "i32"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Value is a tagged union: Int(i32) | Bool(bool) | Str(string) | Ref(slot).
//
// Ref carries an index into the VM's memory slice rather than a heap
// pointer (spec's design note (b)): the slot it names may be
// overwritten with a value of the same Kind, but the Ref value itself
// is immutable once created.
type Value struct {
	kind Kind
	i    int32
	b    bool
	s    string
	ref  int
}

// Int constructs an Int value.
func Int(i int32) Value { return Value{kind: KindInt, i: i} }

// Bool constructs a Bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Str constructs a Str value.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// Ref constructs a Ref value pointing at the given memory slot index.
func Ref(slot int) Value { return Value{kind: KindRef, ref: slot} }

// Kind returns the value's variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsInt reports whether v holds an Int.
func (v Value) IsInt() bool { return v.kind == KindInt }

// IsBool reports whether v holds a Bool.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsStr reports whether v holds a Str.
func (v Value) IsStr() bool { return v.kind == KindStr }

// IsRef reports whether v holds a Ref.
func (v Value) IsRef() bool { return v.kind == KindRef }

// AsInt returns the Int payload. Callers must check IsInt first;
// pkg/vm does so in its popInt helper, which raises a fault otherwise.
func (v Value) AsInt() int32 { return v.i }

// AsBool returns the Bool payload.
func (v Value) AsBool() bool { return v.b }

// AsStr returns the Str payload.
func (v Value) AsStr() string { return v.s }

// AsRef returns the memory slot index the Ref payload designates.
func (v Value) AsRef() int { return v.ref }

// String renders v for diagnostics and disassembly.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindStr:
		return fmt.Sprintf("%q", v.s)
	case KindRef:
		return fmt.Sprintf("ref(%d)", v.ref)
	default:
		return "<invalid>"
	}
}

// Equal reports whether two values are structurally equal: same Kind
// and same payload. Refs compare by slot index, not by pointee value.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInt:
		return a.i == b.i
	case KindBool:
		return a.b == b.b
	case KindStr:
		return a.s == b.s
	case KindRef:
		return a.ref == b.ref
	default:
		return false
	}
}
