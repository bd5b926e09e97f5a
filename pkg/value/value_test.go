package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConstructorsAndAccessors(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"int", Int(42), KindInt},
		{"bool", Bool(true), KindBool},
		{"str", Str("hi"), KindStr},
		{"ref", Ref(3), KindRef},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.v.Kind(), tt.kind)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Int(1), Int(1)) {
		t.Error("Int(1) should equal Int(1)")
	}
	if Equal(Int(1), Int(2)) {
		t.Error("Int(1) should not equal Int(2)")
	}
	if Equal(Int(1), Bool(true)) {
		t.Error("values of different kinds should never be equal")
	}
	if !Equal(Ref(5), Ref(5)) {
		t.Error("Ref(5) should equal Ref(5)")
	}
	if Equal(Ref(5), Ref(6)) {
		t.Error("Ref(5) should not equal Ref(6)")
	}
}

func TestStringRendering(t *testing.T) {
	cases := map[Value]string{
		Int(-7):      "-7",
		Bool(false):  "false",
		Str("a\"b"):  `"a\"b"`,
		Ref(2):       "ref(2)",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestValueIsComparableForGoCmp(t *testing.T) {
	a := []Value{Int(1), Str("x"), Ref(0)}
	b := []Value{Int(1), Str("x"), Ref(0)}
	if diff := cmp.Diff(a, b, cmp.Comparer(Equal)); diff != "" {
		t.Errorf("unexpected diff (-a +b):\n%s", diff)
	}
}
