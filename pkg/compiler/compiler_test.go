package compiler

import (
	"testing"

	"github.com/ferrolang/ferro/pkg/bytecode"
	"github.com/ferrolang/ferro/pkg/checker"
	"github.com/ferrolang/ferro/pkg/parser"
)

func mustCompile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	result, err := checker.New().Check(prog)
	if err != nil {
		t.Fatalf("Check(%q): %v", src, err)
	}
	out, err := New().Compile(prog, result)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return out
}

func opcodes(prog *bytecode.Program) []bytecode.Opcode {
	ops := make([]bytecode.Opcode, len(prog.Instructions))
	for i, instr := range prog.Instructions {
		ops[i] = instr.Op
	}
	return ops
}

func containsOpcode(ops []bytecode.Opcode, want bytecode.Opcode) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}

func TestCompileSimpleReturn(t *testing.T) {
	prog := mustCompile(t, `fn main() -> i32 { return 42; }`)
	ops := opcodes(prog)
	if ops[0] != bytecode.OpPushI32 {
		t.Fatalf("first op = %v, want PUSH_I32", ops[0])
	}
	if prog.Instructions[0].Int32Operand() != 42 {
		t.Errorf("operand = %d, want 42", prog.Instructions[0].Int32Operand())
	}
	if !containsOpcode(ops, bytecode.OpRetVal) {
		t.Error("expected a RET_VAL in the output")
	}
}

func TestCompileArithmeticEmitsI32Opcodes(t *testing.T) {
	prog := mustCompile(t, `fn main() -> i32 { return 1 + 2 * 3; }`)
	ops := opcodes(prog)
	if !containsOpcode(ops, bytecode.OpAddI32) || !containsOpcode(ops, bytecode.OpMulI32) {
		t.Errorf("expected ADD_I32 and MUL_I32, got %v", ops)
	}
}

func TestCompileFunctionTableDeclarationOrder(t *testing.T) {
	prog := mustCompile(t, `
		fn first() -> i32 { return 1; }
		fn second() -> i32 { return 2; }
		fn main() -> i32 { return first() + second(); }
	`)
	if prog.Functions.Size() != 3 {
		t.Fatalf("expected 3 functions, got %d", prog.Functions.Size())
	}
	idx, ok := prog.Functions.IndexOf("first")
	if !ok || idx != 0 {
		t.Errorf("first's CALL index = %d, want 0", idx)
	}
	idx, ok = prog.Functions.IndexOf("second")
	if !ok || idx != 1 {
		t.Errorf("second's CALL index = %d, want 1", idx)
	}
	idx, ok = prog.Functions.IndexOf("main")
	if !ok || idx != 2 {
		t.Errorf("main's CALL index = %d, want 2", idx)
	}
}

func TestCompileCallEmitsCallWithMatchingIndex(t *testing.T) {
	prog := mustCompile(t, `
		fn add(x: i32, y: i32) -> i32 { return x + y; }
		fn main() -> i32 { return add(1, 2); }
	`)
	addEntry, ok := prog.Functions.Lookup("add")
	if !ok {
		t.Fatal("expected an add entry")
	}
	addIdx, _ := prog.Functions.IndexOf("add")
	var found bool
	for _, instr := range prog.Instructions {
		if instr.Op == bytecode.OpCall && instr.IntOperand() == addIdx {
			found = true
		}
	}
	if !found {
		t.Error("expected a CALL targeting add's function-table index")
	}
	if addEntry.NumParams != 2 {
		t.Errorf("add.NumParams = %d, want 2", addEntry.NumParams)
	}
}

func TestCompileVoidCallStatementEmitsNoTrailingPop(t *testing.T) {
	prog := mustCompile(t, `
		fn log() { return; }
		fn main() -> i32 { log(); return 0; }
	`)
	mainEntry, ok := prog.Functions.Lookup("main")
	if !ok {
		t.Fatal("expected a main entry")
	}
	// The instruction immediately after the CALL to log must not be a
	// POP, since log returns nothing to discard.
	callIdx := -1
	for i := mainEntry.EntryPC; i < len(prog.Instructions); i++ {
		if prog.Instructions[i].Op == bytecode.OpCall {
			callIdx = i
			break
		}
	}
	if callIdx == -1 {
		t.Fatal("expected a CALL instruction in main")
	}
	if prog.Instructions[callIdx+1].Op == bytecode.OpPop {
		t.Error("did not expect a POP after a void call statement")
	}
}

func TestCompileIfElseEmitsBalancedJumps(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> i32 {
			if (true) { return 1; } else { return 2; }
		}
	`)
	ops := opcodes(prog)
	if !containsOpcode(ops, bytecode.OpJmpIfNot) {
		t.Error("expected a JMP_IF_NOT for the if condition")
	}
	if !containsOpcode(ops, bytecode.OpJmp) {
		t.Error("expected a JMP skipping over the else branch")
	}
}

func TestCompileWhileLoopJumpsBackward(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> i32 {
			let mut x: i32 = 0;
			while (x < 3) { x = x + 1; }
			return x;
		}
	`)
	var backwardJump bool
	for i, instr := range prog.Instructions {
		if instr.Op == bytecode.OpJmp && instr.IntOperand() <= i {
			backwardJump = true
		}
	}
	if !backwardJump {
		t.Error("expected the while loop to emit a backward JMP")
	}
}

func TestCompileLogicalAndShortCircuits(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> bool {
			return true && false;
		}
	`)
	ops := opcodes(prog)
	if !containsOpcode(ops, bytecode.OpJmpIfNot) {
		t.Error("expected && to lower to a JMP_IF_NOT, not the eager AND opcode")
	}
	if containsOpcode(ops, bytecode.OpAnd) {
		t.Error("&& must not use the eager AND opcode (no short-circuit)")
	}
}

func TestCompileLogicalOrShortCircuits(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> bool {
			return true || false;
		}
	`)
	ops := opcodes(prog)
	if !containsOpcode(ops, bytecode.OpJmpIf) {
		t.Error("expected || to lower to a JMP_IF, not the eager OR opcode")
	}
	if containsOpcode(ops, bytecode.OpOr) {
		t.Error("|| must not use the eager OR opcode (no short-circuit)")
	}
}

func TestCompileBorrowOfIdentUsesLoadRef(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> i32 {
			let mut x: i32 = 1;
			let r: &mut i32 = &mut x;
			return *r;
		}
	`)
	ops := opcodes(prog)
	if !containsOpcode(ops, bytecode.OpLoadRef) {
		t.Error("expected &mut of a plain identifier to emit LOAD_REF")
	}
	if containsOpcode(ops, bytecode.OpBorrowMut) {
		t.Error("did not expect BORROW_MUT for an identifier borrow")
	}
	if !containsOpcode(ops, bytecode.OpDeref) {
		t.Error("expected a DEREF for *r")
	}
}

func TestCompileAssignThroughDerefUsesStoreRef(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> i32 {
			let mut x: i32 = 1;
			let r: &mut i32 = &mut x;
			*r = 5;
			return x;
		}
	`)
	if !containsOpcode(opcodes(prog), bytecode.OpStoreRef) {
		t.Error("expected *r = 5 to emit STORE_REF")
	}
}

func TestCompileStringConstantsAreDeduplicated(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> str {
			let a: str = "hi";
			let b: str = "hi";
			return a;
		}
	`)
	if len(prog.Constants) != 1 {
		t.Errorf("expected 1 deduplicated string constant, got %d: %v", len(prog.Constants), prog.Constants)
	}
}

func TestCompileLocalSlotsAreLexicallyFlattened(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> i32 {
			let a: i32 = 1;
			if (true) {
				let b: i32 = 2;
				return b;
			}
			let c: i32 = 3;
			return a + c;
		}
	`)
	mainEntry, ok := prog.Functions.Lookup("main")
	if !ok {
		t.Fatal("expected a main entry")
	}
	// a, b, and c each get their own slot even though b is scoped
	// inside the if-block: 3 distinct STORE targets.
	if mainEntry.NumLocals != 3 {
		t.Errorf("NumLocals = %d, want 3", mainEntry.NumLocals)
	}
}

func TestCompileRoundTripsThroughEncodeDecode(t *testing.T) {
	prog := mustCompile(t, `fn main() -> i32 { return 1 + 2; }`)
	data, err := prog.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := bytecode.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Instructions) != len(prog.Instructions) {
		t.Errorf("decoded instruction count = %d, want %d", len(decoded.Instructions), len(prog.Instructions))
	}
}
