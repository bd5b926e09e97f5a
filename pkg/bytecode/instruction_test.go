package bytecode

import "testing"

func TestInstructionInt32Operand(t *testing.T) {
	var n int32 = -7
	inst := New(OpPushI32, uint64(uint32(n)))
	if got := inst.Int32Operand(); got != -7 {
		t.Errorf("Int32Operand() = %d, want -7", got)
	}
}

func TestInstructionIntOperand(t *testing.T) {
	inst := New(OpLoad, 42)
	if got := inst.IntOperand(); got != 42 {
		t.Errorf("IntOperand() = %d, want 42", got)
	}
}

func TestInstructionStringWithOperand(t *testing.T) {
	inst := New(OpJmp, 12)
	want := "JMP 12"
	if got := inst.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInstructionStringWithoutOperand(t *testing.T) {
	inst := New(OpAddI32, 0)
	want := "ADD_I32"
	if got := inst.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
