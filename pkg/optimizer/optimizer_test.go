package optimizer

import (
	"testing"

	"github.com/ferrolang/ferro/pkg/bytecode"
	"github.com/ferrolang/ferro/pkg/checker"
	"github.com/ferrolang/ferro/pkg/compiler"
	"github.com/ferrolang/ferro/pkg/parser"
	"github.com/ferrolang/ferro/pkg/vm"
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
	out, err := compiler.New().Compile(prog, result)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return out
}

func countOp(prog *bytecode.Program, op bytecode.Opcode) int {
	n := 0
	for _, instr := range prog.Instructions {
		if instr.Op == op {
			n++
		}
	}
	return n
}

func TestConstantFoldingAddition(t *testing.T) {
	prog := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.New(bytecode.OpPushI32, uint64(uint32(5))),
			bytecode.New(bytecode.OpPushI32, uint64(uint32(10))),
			bytecode.New(bytecode.OpAddI32, 0),
			bytecode.New(bytecode.OpRetVal, 0),
		},
		Functions: mainOnly(0, 4, 0),
	}

	result := New(WithConstantFolding()).Optimize(prog)

	if len(result.Instructions) != 2 {
		t.Fatalf("expected 2 instructions after folding, got %d: %v", len(result.Instructions), result.Instructions)
	}
	if result.Instructions[0].Op != bytecode.OpPushI32 || result.Instructions[0].Int32Operand() != 15 {
		t.Errorf("first instruction = %v, want PUSH_I32 15", result.Instructions[0])
	}
	if result.Instructions[1].Op != bytecode.OpRetVal {
		t.Errorf("second instruction = %v, want RET_VAL", result.Instructions[1])
	}
}

func TestConstantFoldingSkipsDivisionByFoldedZero(t *testing.T) {
	prog := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.New(bytecode.OpPushI32, uint64(uint32(5))),
			bytecode.New(bytecode.OpPushI32, uint64(uint32(0))),
			bytecode.New(bytecode.OpDivI32, 0),
			bytecode.New(bytecode.OpRetVal, 0),
		},
		Functions: mainOnly(0, 4, 0),
	}

	result := New(WithConstantFolding()).Optimize(prog)

	if len(result.Instructions) != 4 {
		t.Fatalf("expected division by a folded zero to be left alone, got %v", result.Instructions)
	}
	if countOp(result, bytecode.OpDivI32) != 1 {
		t.Error("expected the DIV_I32 to survive so the VM can fault on it")
	}
}

func TestConstantFoldingDoesNotFoldAcrossAJumpTarget(t *testing.T) {
	// JMP 2; PUSH_I32 1; PUSH_I32 2; ADD_I32; RET_VAL
	// The JMP lands on index 2, the middle of what would otherwise be
	// a foldable "push, push, add" run starting at index 1.
	prog := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.New(bytecode.OpJmp, 2),
			bytecode.New(bytecode.OpPushI32, uint64(uint32(1))),
			bytecode.New(bytecode.OpPushI32, uint64(uint32(2))),
			bytecode.New(bytecode.OpAddI32, 0),
			bytecode.New(bytecode.OpRetVal, 0),
		},
		Functions: mainOnly(0, 5, 0),
	}

	result := New(WithConstantFolding()).Optimize(prog)

	if len(result.Instructions) != 5 {
		t.Fatalf("folding must not touch a run a jump lands inside of, got %v", result.Instructions)
	}
}

func TestConstantFoldingLogicalAndUnary(t *testing.T) {
	prog := mustCompile(t, `fn main() -> bool { return !(true && false); }`)
	result := New(WithConstantFolding()).Optimize(prog)
	if countOp(result, bytecode.OpAnd) != 0 || countOp(result, bytecode.OpNot) != 0 {
		t.Errorf("expected fully-constant logical expression to fold away, got %v", result.Instructions)
	}
}

func TestDeadCodeEliminationDropsTrailingJumpAfterReturn(t *testing.T) {
	prog := mustCompile(t, `
		fn main() -> i32 {
			if (true) { return 1; } else { return 2; }
		}
	`)
	before := countOp(prog, bytecode.OpJmp)

	result := New(WithDeadCodeElimination()).Optimize(prog)

	after := countOp(result, bytecode.OpJmp)
	if after >= before {
		t.Errorf("expected dead code elimination to remove the unreachable post-return JMP, before=%d after=%d", before, after)
	}
}

func TestOptimizePreservesRunResult(t *testing.T) {
	prog := mustCompile(t, `
		fn add(x: i32, y: i32) -> i32 { return x + y; }
		fn main() -> i32 {
			let a: i32 = 2 + 3;
			if (a > 4) { return add(a, 10); }
			return 0;
		}
	`)
	result := New(WithAllOptimizations()).Optimize(prog)

	if _, ok := result.Functions.Lookup("main"); !ok {
		t.Fatal("expected main to survive optimization")
	}
	if _, ok := result.Functions.Lookup("add"); !ok {
		t.Fatal("expected add to survive optimization")
	}

	machine := vm.New()
	if err := machine.Load(result); err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := machine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.IsInt() || out.AsInt() != 15 {
		t.Errorf("optimized program returned %v, want 15", out)
	}
}

// mainOnly builds a single-function table for tests that hand-assemble
// an instruction stream rather than going through the compiler.
func mainOnly(entryPC, numLocals, numParams int) *bytecode.FunctionTable {
	ft := bytecode.NewFunctionTable()
	ft.Add(bytecode.FunctionEntry{Name: "main", EntryPC: entryPC, NumParams: numParams, NumLocals: numLocals})
	return ft
}
