package optimizer

import "github.com/ferrolang/ferro/pkg/bytecode"

// WithDeadCodeElimination enables dead code elimination.
func WithDeadCodeElimination() Option {
	return func(o *Optimizer) {
		o.enableDeadCode = true
	}
}

// deadCodeElimination drops instructions that can never execute: the
// run immediately following an unconditional terminator (JMP, RET,
// RET_VAL) up to the next instruction some jump or function entry can
// actually land on. It does not attempt whole-program reachability
// analysis; it only removes the straight-line tail that an if/else
// arm ending in `return` leaves behind (the compiler's own
// end-of-branch JMP becomes unreachable in that case, since the
// return already left the function).
func (o *Optimizer) deadCodeElimination(program *bytecode.Program) *bytecode.Program {
	targets := jumpTargets(program)
	instrs := program.Instructions
	var edits []edit

	i := 0
	for i < len(instrs) {
		if !isTerminator(instrs[i].Op) {
			i++
			continue
		}
		start := i + 1
		end := start
		for end < len(instrs) && !targets[end] {
			end++
		}
		if end > start {
			edits = append(edits, edit{start: start, length: end - start})
		}
		i = end
	}

	if len(edits) == 0 {
		return program
	}
	return applyEdits(program, edits)
}

func isTerminator(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpJmp, bytecode.OpRet, bytecode.OpRetVal:
		return true
	default:
		return false
	}
}
