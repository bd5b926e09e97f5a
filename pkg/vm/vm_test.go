package vm

import (
	"testing"

	"github.com/ferrolang/ferro/pkg/bytecode"
	"github.com/ferrolang/ferro/pkg/checker"
	"github.com/ferrolang/ferro/pkg/compiler"
	"github.com/ferrolang/ferro/pkg/parser"
	"github.com/ferrolang/ferro/pkg/value"
)

func compileSource(t *testing.T, src string) *VM {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	result, err := checker.New().Check(prog)
	if err != nil {
		t.Fatalf("Check(%q): %v", src, err)
	}
	compiled, err := compiler.New().Compile(prog, result)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	m := New()
	if err := m.Load(compiled); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func mustRun(t *testing.T, src string) value.Value {
	t.Helper()
	out, err := compileSource(t, src).Run()
	if err != nil {
		t.Fatalf("Run(%q): %v", src, err)
	}
	return out
}

func mustFailRun(t *testing.T, src string) error {
	t.Helper()
	_, err := compileSource(t, src).Run()
	if err == nil {
		t.Fatalf("Run(%q): expected an error, got none", src)
	}
	return err
}

// Scenario 1: arithmetic let-binding.
func TestScenarioArithmeticLetBinding(t *testing.T) {
	out := mustRun(t, `fn main() -> i32 { let x: i32 = 42; let y: i32 = 2; return x + y; }`)
	if !out.IsInt() || out.AsInt() != 44 {
		t.Errorf("result = %v, want Int(44)", out)
	}
}

// Scenario 2: if/else.
func TestScenarioIfElse(t *testing.T) {
	out := mustRun(t, `fn main() -> i32 { let x: i32 = 42; if (x > 0) { return x + 1; } else { return x - 1; } }`)
	if !out.IsInt() || out.AsInt() != 43 {
		t.Errorf("result = %v, want Int(43)", out)
	}
}

// Scenario 3: function call.
func TestScenarioFunctionCall(t *testing.T) {
	out := mustRun(t, `
		fn add(x: i32, y: i32) -> i32 { return x + y; }
		fn main() -> i32 { let r: i32 = add(40, 2); return r; }
	`)
	if !out.IsInt() || out.AsInt() != 42 {
		t.Errorf("result = %v, want Int(42)", out)
	}
}

// Scenario 4: while loop.
func TestScenarioWhileLoop(t *testing.T) {
	out := mustRun(t, `
		fn main() -> i32 {
			let mut x: i32 = 0;
			while (x < 10) { x = x + 1; }
			return x;
		}
	`)
	if !out.IsInt() || out.AsInt() != 10 {
		t.Errorf("result = %v, want Int(10)", out)
	}
}

// Scenario 5: runtime fault, division by zero.
func TestScenarioDivisionByZeroFaults(t *testing.T) {
	err := mustFailRun(t, `fn main() -> i32 { return 1 / 0; }`)
	fault, ok := err.(*RuntimeFault)
	if !ok {
		t.Fatalf("err = %T, want *RuntimeFault", err)
	}
	if fault.Kind != FaultDivisionByZero {
		t.Errorf("Kind = %v, want FaultDivisionByZero", fault.Kind)
	}
}

// Scenario 6: reference round-trip.
func TestScenarioReferenceRoundTrip(t *testing.T) {
	out := mustRun(t, `
		fn main() -> i32 {
			let x: i32 = 42;
			let r: &i32 = &x;
			return *r;
		}
	`)
	if !out.IsInt() || out.AsInt() != 42 {
		t.Errorf("result = %v, want Int(42)", out)
	}
}

func TestMutationThroughMutableReferenceIsVisible(t *testing.T) {
	out := mustRun(t, `
		fn main() -> i32 {
			let mut x: i32 = 1;
			let r: &mut i32 = &mut x;
			*r = 99;
			return x;
		}
	`)
	if !out.IsInt() || out.AsInt() != 99 {
		t.Errorf("result = %v, want Int(99) (mutation through reference should alias x)", out)
	}
}

func TestRecursiveCallsWork(t *testing.T) {
	out := mustRun(t, `
		fn fact(n: i32) -> i32 {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		}
		fn main() -> i32 { return fact(5); }
	`)
	if !out.IsInt() || out.AsInt() != 120 {
		t.Errorf("result = %v, want Int(120)", out)
	}
}

func TestShortCircuitAndSkipsSideEffect(t *testing.T) {
	out := mustRun(t, `
		fn boom() -> bool { return 1 / 0 == 0; }
		fn main() -> bool { return false && boom(); }
	`)
	if !out.IsBool() || out.AsBool() {
		t.Errorf("result = %v, want Bool(false) without evaluating boom()", out)
	}
}

func TestShortCircuitOrSkipsSideEffect(t *testing.T) {
	out := mustRun(t, `
		fn boom() -> bool { return 1 / 0 == 0; }
		fn main() -> bool { return true || boom(); }
	`)
	if !out.IsBool() || !out.AsBool() {
		t.Errorf("result = %v, want Bool(true) without evaluating boom()", out)
	}
}

func TestVoidFunctionCallStatement(t *testing.T) {
	out := mustRun(t, `
		fn noop() { let x: i32 = 1; return; }
		fn main() -> i32 { noop(); return 7; }
	`)
	if !out.IsInt() || out.AsInt() != 7 {
		t.Errorf("result = %v, want Int(7)", out)
	}
}

func TestStringLiteralRoundTrip(t *testing.T) {
	out := mustRun(t, `fn main() -> str { return "hello"; }`)
	if !out.IsStr() || out.AsStr() != "hello" {
		t.Errorf("result = %v, want Str(hello)", out)
	}
}

func TestInstructionBudgetExceededOnInfiniteLoop(t *testing.T) {
	m := compileSource(t, `fn main() -> i32 { while (true) { } return 0; }`)
	m.SetMaxSteps(1000)
	_, err := m.Run()
	if err != ErrInstructionBudgetExceeded {
		t.Errorf("err = %v, want ErrInstructionBudgetExceeded", err)
	}
}

func TestLoadRejectsMissingMain(t *testing.T) {
	// The checker already rejects a missing main, but Load performs
	// its own defense-in-depth check against a malformed program
	// that reached the VM some other way (e.g. hand-assembled or
	// decoded from a stale container).
	prog := &bytecode.Program{Functions: bytecode.NewFunctionTable()}
	if _, err := prog.Functions.Add(bytecode.FunctionEntry{Name: "notmain"}); err != nil {
		t.Fatal(err)
	}
	m := New()
	err := m.Load(prog)
	if err == nil {
		t.Fatal("expected Load to reject a program with no main")
	}
	if _, ok := err.(*LoadError); !ok {
		t.Errorf("err = %T, want *LoadError", err)
	}
}

func TestLoadRejectsMainWithParams(t *testing.T) {
	prog := &bytecode.Program{Functions: bytecode.NewFunctionTable()}
	if _, err := prog.Functions.Add(bytecode.FunctionEntry{Name: "main", NumParams: 1}); err != nil {
		t.Fatal(err)
	}
	m := New()
	err := m.Load(prog)
	if err == nil {
		t.Fatal("expected Load to reject a main taking parameters")
	}
}
