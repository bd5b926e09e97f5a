package bytecode

import "strconv"

// Instruction is `{opcode, operand:uint}` per the spec's data model.
// Operand is a machine word; its interpretation (an i32 bit pattern, a
// constant-pool index, a local-slot offset, an absolute jump target,
// or a function-table index) is determined entirely by Op.
type Instruction struct {
	Op      Opcode
	Operand uint64
}

// New builds an instruction. Opcodes that ignore their operand (per
// Opcode.usesOperand) simply carry a zero Operand.
func New(op Opcode, operand uint64) Instruction {
	return Instruction{Op: op, Operand: operand}
}

// Int32Operand reinterprets Operand as the i32 bit pattern PUSH_I32
// encodes.
func (i Instruction) Int32Operand() int32 {
	return int32(uint32(i.Operand))
}

// IntOperand reinterprets Operand as a plain non-negative int, used
// for constant-pool indices, local-slot offsets, jump targets, and
// function-table indices.
func (i Instruction) IntOperand() int {
	return int(i.Operand)
}

// String renders an instruction for disassembly.
func (i Instruction) String() string {
	if !i.Op.usesOperand() {
		return i.Op.String()
	}
	return i.Op.String() + " " + strconv.FormatUint(i.Operand, 10)
}
