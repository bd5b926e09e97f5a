package optimizer

import "github.com/ferrolang/ferro/pkg/bytecode"

// edit replaces the run of instructions [start, start+length) with
// replacement, which may be shorter, longer, or empty.
type edit struct {
	start, length int
	replacement   []bytecode.Instruction
}

// applyEdits rewrites a program's instruction stream according to a
// set of non-overlapping edits ordered by start, then fixes up every
// jump target and function entry point that pointed into the
// original stream so it lands on the same logical instruction as
// before (or, for an edit that deleted its target outright, whatever
// instruction now occupies its place).
func applyEdits(prog *bytecode.Program, edits []edit) *bytecode.Program {
	if len(edits) == 0 {
		return prog
	}

	oldToNew := make([]int, len(prog.Instructions)+1)
	newInstrs := make([]bytecode.Instruction, 0, len(prog.Instructions))

	editIdx := 0
	i := 0
	for i < len(prog.Instructions) {
		if editIdx < len(edits) && edits[editIdx].start == i {
			e := edits[editIdx]
			target := len(newInstrs)
			for j := 0; j < e.length; j++ {
				oldToNew[i+j] = target
			}
			newInstrs = append(newInstrs, e.replacement...)
			i += e.length
			editIdx++
			continue
		}
		oldToNew[i] = len(newInstrs)
		newInstrs = append(newInstrs, prog.Instructions[i])
		i++
	}
	oldToNew[len(prog.Instructions)] = len(newInstrs)

	remap := func(target int) int {
		if target < 0 || target >= len(oldToNew) {
			return target
		}
		return oldToNew[target]
	}

	for idx, instr := range newInstrs {
		switch instr.Op {
		case bytecode.OpJmp, bytecode.OpJmpIf, bytecode.OpJmpIfNot:
			newInstrs[idx] = bytecode.New(instr.Op, uint64(remap(instr.IntOperand())))
		}
	}

	newFuncs := bytecode.NewFunctionTable()
	for _, entry := range prog.Functions.Entries() {
		entry.EntryPC = remap(entry.EntryPC)
		if _, err := newFuncs.Add(entry); err != nil {
			// Names were already unique in prog; Add cannot fail here.
			panic(err)
		}
	}

	return &bytecode.Program{
		Instructions: newInstrs,
		Constants:    prog.Constants,
		Functions:    newFuncs,
	}
}

// jumpTargets returns the set of instruction indices some jump or
// function entry point can land on. A rewrite must never swallow one
// of these into the middle of a merged or deleted run, or whatever
// jumps there next would land in the wrong place.
func jumpTargets(prog *bytecode.Program) map[int]bool {
	targets := make(map[int]bool)
	for _, instr := range prog.Instructions {
		switch instr.Op {
		case bytecode.OpJmp, bytecode.OpJmpIf, bytecode.OpJmpIfNot:
			targets[instr.IntOperand()] = true
		}
	}
	for _, entry := range prog.Functions.Entries() {
		targets[entry.EntryPC] = true
	}
	return targets
}
