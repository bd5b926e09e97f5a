package optimizer

import "github.com/ferrolang/ferro/pkg/bytecode"

// WithConstantFolding enables constant folding.
func WithConstantFolding() Option {
	return func(o *Optimizer) {
		o.enableConstantFolding = true
	}
}

// constantFolding evaluates arithmetic, comparison, and logical
// operators over immediate operands at compile time, so
//
//	PUSH_I32 2
//	PUSH_I32 3
//	ADD_I32
//
// becomes
//
//	PUSH_I32 5
//
// Division by a folded zero is left alone: deciding whether that is a
// compile-time error is outside this pass's job, so it stays a
// DIV_I32 and lets the VM raise it as a runtime fault.
func (o *Optimizer) constantFolding(program *bytecode.Program) *bytecode.Program {
	targets := jumpTargets(program)
	var edits []edit

	instrs := program.Instructions
	for i := 0; i < len(instrs); i++ {
		if folded, ok := foldBinary(instrs, i, targets); ok {
			edits = append(edits, edit{start: i, length: 3, replacement: []bytecode.Instruction{folded}})
			i += 2
			continue
		}
		if folded, ok := foldUnary(instrs, i, targets); ok {
			edits = append(edits, edit{start: i, length: 2, replacement: []bytecode.Instruction{folded}})
			i++
			continue
		}
	}

	if len(edits) == 0 {
		return program
	}
	return applyEdits(program, edits)
}

// foldBinary tries to fold instrs[i:i+3], a "push, push, op" run.
func foldBinary(instrs []bytecode.Instruction, i int, targets map[int]bool) (bytecode.Instruction, bool) {
	if i+2 >= len(instrs) {
		return bytecode.Instruction{}, false
	}
	// A jump landing on the second push or the operator would end up
	// somewhere else entirely once the three collapse into one.
	if targets[i+1] || targets[i+2] {
		return bytecode.Instruction{}, false
	}
	a, b, op := instrs[i], instrs[i+1], instrs[i+2]

	if a.Op == bytecode.OpPushI32 && b.Op == bytecode.OpPushI32 {
		x, y := a.Int32Operand(), b.Int32Operand()
		switch op.Op {
		case bytecode.OpAddI32:
			return pushI32(x + y), true
		case bytecode.OpSubI32:
			return pushI32(x - y), true
		case bytecode.OpMulI32:
			return pushI32(x * y), true
		case bytecode.OpDivI32:
			if y == 0 {
				return bytecode.Instruction{}, false
			}
			return pushI32(x / y), true
		case bytecode.OpEqI32:
			return pushBool(x == y), true
		case bytecode.OpNeI32:
			return pushBool(x != y), true
		case bytecode.OpLtI32:
			return pushBool(x < y), true
		case bytecode.OpGtI32:
			return pushBool(x > y), true
		case bytecode.OpLeI32:
			return pushBool(x <= y), true
		case bytecode.OpGeI32:
			return pushBool(x >= y), true
		}
	}

	if a.Op == bytecode.OpPushBool && b.Op == bytecode.OpPushBool {
		x, y := a.IntOperand() != 0, b.IntOperand() != 0
		switch op.Op {
		case bytecode.OpAnd:
			return pushBool(x && y), true
		case bytecode.OpOr:
			return pushBool(x || y), true
		}
	}

	return bytecode.Instruction{}, false
}

// foldUnary tries to fold instrs[i:i+2], a "push, op" run.
func foldUnary(instrs []bytecode.Instruction, i int, targets map[int]bool) (bytecode.Instruction, bool) {
	if i+1 >= len(instrs) {
		return bytecode.Instruction{}, false
	}
	if targets[i+1] {
		return bytecode.Instruction{}, false
	}
	a, op := instrs[i], instrs[i+1]
	switch {
	case a.Op == bytecode.OpPushI32 && op.Op == bytecode.OpNegI32:
		return pushI32(-a.Int32Operand()), true
	case a.Op == bytecode.OpPushBool && op.Op == bytecode.OpNot:
		return pushBool(a.IntOperand() == 0), true
	default:
		return bytecode.Instruction{}, false
	}
}

func pushI32(v int32) bytecode.Instruction {
	return bytecode.New(bytecode.OpPushI32, uint64(uint32(v)))
}

func pushBool(v bool) bytecode.Instruction {
	if v {
		return bytecode.New(bytecode.OpPushBool, 1)
	}
	return bytecode.New(bytecode.OpPushBool, 0)
}
