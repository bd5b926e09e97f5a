// Package vm implements the ferro stack virtual machine: the
// fetch-execute loop, the unified operand-stack/frame-memory model,
// call/return discipline, and reference semantics described by spec
// §4.4. It is the one package that actually runs a compiled program;
// every other package only produces or describes data for it.
package vm

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo"

	"github.com/ferrolang/ferro/pkg/bytecode"
	"github.com/ferrolang/ferro/pkg/value"
)

var logger = loggo.GetLogger("ferro.vm")

// ExecutionStats tracks optional, zero-cost-when-disabled execution
// metrics, surfaced by the CLI's --stats flag.
type ExecutionStats struct {
	StepsExecuted int64
	OpCounts      map[string]int
}

// VM executes a compiled bytecode.Program to completion or fault.
// Compile-time data (the program) is held immutably; memory, stack,
// pc, and fp are runtime state owned exclusively by this instance.
type VM struct {
	prog *bytecode.Program

	memory []value.Value
	stack  []value.Value
	pc     int
	fp     int

	result    value.Value
	hasResult bool
	running   bool

	maxSteps  int64
	stepCount int64
	ctx       context.Context

	clk         clock.Clock
	deadline    time.Time
	hasDeadline bool

	statsEnabled bool
	stats        ExecutionStats
}

// New constructs a VM with no program loaded.
func New() *VM {
	return &VM{clk: clock.WallClock}
}

// SetMaxSteps bounds the number of fetch-execute cycles; 0 means
// unlimited. This is the optional instruction budget spec §5 permits
// as a guard against a runaway loop — disabled unless configured, and
// it never changes execution semantics short of converting "runs
// forever" into an ErrInstructionBudgetExceeded error.
func (vm *VM) SetMaxSteps(n int64) { vm.maxSteps = n }

// SetContext attaches a context whose cancellation aborts execution
// between instructions.
func (vm *VM) SetContext(ctx context.Context) { vm.ctx = ctx }

// SetClock overrides the wall clock used for deadline checks, for
// deterministic tests.
func (vm *VM) SetClock(clk clock.Clock) { vm.clk = clk }

// SetDeadline bounds wall-clock execution time; checked only between
// instructions, matching spec §5's "never suspending one."
func (vm *VM) SetDeadline(d time.Duration) {
	vm.deadline = vm.clk.Now().Add(d)
	vm.hasDeadline = true
}

// EnableStats turns on step/opcode counters for this run.
func (vm *VM) EnableStats() {
	vm.statsEnabled = true
	vm.stats = ExecutionStats{OpCounts: make(map[string]int)}
}

// Stats returns the last run's statistics, or nil if EnableStats was
// never called.
func (vm *VM) Stats() *ExecutionStats {
	if !vm.statsEnabled {
		return nil
	}
	return &vm.stats
}

// Load validates and installs a program, per spec §4.4's
// initialization step: main must exist and take no parameters.
func (vm *VM) Load(prog *bytecode.Program) error {
	main, ok := prog.Functions.Lookup("main")
	if !ok {
		return &LoadError{Message: "program has no entry function \"main\""}
	}
	if main.NumParams != 0 {
		return &LoadError{Message: "entry function \"main\" must take no parameters"}
	}

	vm.prog = prog
	vm.memory = make([]value.Value, main.NumLocals)
	vm.stack = nil
	vm.pc = main.EntryPC
	vm.fp = 0
	vm.result = value.Value{}
	vm.hasResult = false
	vm.running = true
	vm.stepCount = 0
	logger.Debugf("Init -> Running (entry_pc=%d, num_locals=%d)", main.EntryPC, main.NumLocals)
	return nil
}

// Run executes the loaded program to completion or fault, per spec
// §4.4's fetch-execute loop: fetch, dispatch, pc++, with jump/call/
// return handlers instead setting pc to target-1 so the
// post-increment lands exactly on target.
func (vm *VM) Run() (value.Value, error) {
	for vm.running && vm.pc < len(vm.prog.Instructions) {
		if vm.ctx != nil {
			select {
			case <-vm.ctx.Done():
				return value.Value{}, vm.ctx.Err()
			default:
			}
		}
		if vm.hasDeadline && vm.clk.Now().After(vm.deadline) {
			return value.Value{}, ErrDeadlineExceeded
		}

		vm.stepCount++
		if vm.maxSteps > 0 && vm.stepCount > vm.maxSteps {
			return value.Value{}, ErrInstructionBudgetExceeded
		}

		instr := vm.prog.Instructions[vm.pc]
		if vm.statsEnabled {
			vm.stats.StepsExecuted++
			vm.stats.OpCounts[instr.Op.String()]++
		}

		if err := vm.step(instr); err != nil {
			logger.Debugf("Running -> Faulted: %v", err)
			return value.Value{}, err
		}
		vm.pc++
	}

	logger.Debugf("Running -> Halted")
	if vm.hasResult {
		return vm.result, nil
	}
	if len(vm.stack) > 0 {
		return vm.stack[len(vm.stack)-1], nil
	}
	return value.Value{}, nil
}

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, newFault(vm.pc, FaultStackUnderflow, "pop from empty operand stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) popInt() (int32, error) {
	v, err := vm.pop()
	if err != nil {
		return 0, err
	}
	if !v.IsInt() {
		return 0, newFault(vm.pc, FaultTypeMismatch, "expected i32, got %s", v.Kind())
	}
	return v.AsInt(), nil
}

func (vm *VM) popBool() (bool, error) {
	v, err := vm.pop()
	if err != nil {
		return false, err
	}
	if !v.IsBool() {
		return false, newFault(vm.pc, FaultTypeMismatch, "expected bool, got %s", v.Kind())
	}
	return v.AsBool(), nil
}

func (vm *VM) popRef() (int, error) {
	v, err := vm.pop()
	if err != nil {
		return 0, err
	}
	if !v.IsRef() {
		return 0, newFault(vm.pc, FaultTypeMismatch, "expected ref, got %s", v.Kind())
	}
	return v.AsRef(), nil
}

func (vm *VM) readMemory(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(vm.memory) {
		return value.Value{}, newFault(vm.pc, FaultOutOfBounds, "memory index %d out of bounds (len %d)", idx, len(vm.memory))
	}
	return vm.memory[idx], nil
}

func (vm *VM) writeMemory(idx int, v value.Value) error {
	if idx < 0 || idx >= len(vm.memory) {
		return newFault(vm.pc, FaultOutOfBounds, "memory index %d out of bounds (len %d)", idx, len(vm.memory))
	}
	vm.memory[idx] = v
	return nil
}

// step dispatches and executes a single instruction.
func (vm *VM) step(instr bytecode.Instruction) error {
	switch instr.Op {
	case bytecode.OpPushI32:
		vm.push(value.Int(instr.Int32Operand()))
	case bytecode.OpPushBool:
		vm.push(value.Bool(instr.Operand != 0))
	case bytecode.OpPushStr:
		idx := instr.IntOperand()
		if idx < 0 || idx >= len(vm.prog.Constants) {
			return newFault(vm.pc, FaultOutOfBounds, "constant index %d out of bounds", idx)
		}
		vm.push(vm.prog.Constants[idx])
	case bytecode.OpPop:
		if _, err := vm.pop(); err != nil {
			return err
		}
	case bytecode.OpDup:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(v)
		vm.push(v)
	case bytecode.OpSwap:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(b)
		vm.push(a)

	case bytecode.OpLoad:
		v, err := vm.readMemory(vm.fp + instr.IntOperand())
		if err != nil {
			return err
		}
		vm.push(v)
	case bytecode.OpStore:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.writeMemory(vm.fp+instr.IntOperand(), v)
	case bytecode.OpLoadRef:
		vm.push(value.Ref(vm.fp + instr.IntOperand()))
	case bytecode.OpStoreRef:
		ref, err := vm.popRef()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.writeMemory(ref, v)

	case bytecode.OpAddI32, bytecode.OpSubI32, bytecode.OpMulI32, bytecode.OpDivI32:
		return vm.stepArith(instr.Op)
	case bytecode.OpNegI32:
		a, err := vm.popInt()
		if err != nil {
			return err
		}
		vm.push(value.Int(-a))

	case bytecode.OpEqI32, bytecode.OpNeI32, bytecode.OpLtI32, bytecode.OpGtI32, bytecode.OpLeI32, bytecode.OpGeI32:
		return vm.stepCompare(instr.Op)

	case bytecode.OpAnd:
		b, err := vm.popBool()
		if err != nil {
			return err
		}
		a, err := vm.popBool()
		if err != nil {
			return err
		}
		vm.push(value.Bool(a && b))
	case bytecode.OpOr:
		b, err := vm.popBool()
		if err != nil {
			return err
		}
		a, err := vm.popBool()
		if err != nil {
			return err
		}
		vm.push(value.Bool(a || b))
	case bytecode.OpNot:
		a, err := vm.popBool()
		if err != nil {
			return err
		}
		vm.push(value.Bool(!a))

	case bytecode.OpJmp:
		vm.pc = instr.IntOperand() - 1
	case bytecode.OpJmpIf:
		cond, err := vm.popBool()
		if err != nil {
			return err
		}
		if cond {
			vm.pc = instr.IntOperand() - 1
		}
	case bytecode.OpJmpIfNot:
		cond, err := vm.popBool()
		if err != nil {
			return err
		}
		if !cond {
			vm.pc = instr.IntOperand() - 1
		}

	case bytecode.OpCall:
		return vm.stepCall(instr.IntOperand())
	case bytecode.OpRet:
		return vm.stepRet()
	case bytecode.OpRetVal:
		return vm.stepRetVal()

	case bytecode.OpBorrow, bytecode.OpBorrowMut:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		slot := len(vm.memory)
		vm.memory = append(vm.memory, v)
		vm.push(value.Ref(slot))
	case bytecode.OpDeref, bytecode.OpDerefMut:
		ref, err := vm.popRef()
		if err != nil {
			return err
		}
		v, err := vm.readMemory(ref)
		if err != nil {
			return err
		}
		vm.push(v)

	default:
		return newFault(vm.pc, FaultUnknownOpcode, "opcode %d", instr.Op)
	}
	return nil
}

// stepArith pops right-hand side first, then left-hand side, per
// spec §4.4's stated operand-stack pop order for arithmetic.
func (vm *VM) stepArith(op bytecode.Opcode) error {
	rhs, err := vm.popInt()
	if err != nil {
		return err
	}
	lhs, err := vm.popInt()
	if err != nil {
		return err
	}
	switch op {
	case bytecode.OpAddI32:
		vm.push(value.Int(lhs + rhs))
	case bytecode.OpSubI32:
		vm.push(value.Int(lhs - rhs))
	case bytecode.OpMulI32:
		vm.push(value.Int(lhs * rhs))
	case bytecode.OpDivI32:
		if rhs == 0 {
			return newFault(vm.pc, FaultDivisionByZero, "division by zero")
		}
		vm.push(value.Int(lhs / rhs))
	}
	return nil
}

func (vm *VM) stepCompare(op bytecode.Opcode) error {
	rhs, err := vm.popInt()
	if err != nil {
		return err
	}
	lhs, err := vm.popInt()
	if err != nil {
		return err
	}
	switch op {
	case bytecode.OpEqI32:
		vm.push(value.Bool(lhs == rhs))
	case bytecode.OpNeI32:
		vm.push(value.Bool(lhs != rhs))
	case bytecode.OpLtI32:
		vm.push(value.Bool(lhs < rhs))
	case bytecode.OpGtI32:
		vm.push(value.Bool(lhs > rhs))
	case bytecode.OpLeI32:
		vm.push(value.Bool(lhs <= rhs))
	case bytecode.OpGeI32:
		vm.push(value.Bool(lhs >= rhs))
	}
	return nil
}

// stepCall implements spec §4.4's Calls procedure: reserve a 2-slot
// prologue (saved return pc, saved caller fp), pop num_params
// arguments off the operand stack and write them into the new
// frame's locals region in source order (first parameter at offset
// 0, regardless of pop order — spec §9's "Argument copy order"
// note), then jump to the callee's entry.
func (vm *VM) stepCall(funcIdx int) error {
	entry, ok := vm.prog.Functions.At(funcIdx)
	if !ok {
		return newFault(vm.pc, FaultBadFunctionIndex, "function index %d out of range", funcIdx)
	}
	if len(vm.stack) < entry.NumParams {
		return newFault(vm.pc, FaultArityMismatch, "call to %q expected %d argument(s) on the stack, found %d", entry.Name, entry.NumParams, len(vm.stack))
	}

	args := make([]value.Value, entry.NumParams)
	for i := entry.NumParams - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	vm.memory = append(vm.memory, value.Int(int32(vm.pc+1)), value.Int(int32(vm.fp)))
	newFp := len(vm.memory)
	vm.memory = append(vm.memory, make([]value.Value, entry.NumLocals)...)
	copy(vm.memory[newFp:newFp+entry.NumParams], args)

	vm.fp = newFp
	vm.pc = entry.EntryPC - 1
	return nil
}

func (vm *VM) stepRet() error {
	if vm.fp == 0 {
		vm.running = false
		return nil
	}
	savedPC, err := vm.readMemory(vm.fp - 2)
	if err != nil {
		return err
	}
	savedFP, err := vm.readMemory(vm.fp - 1)
	if err != nil {
		return err
	}
	vm.memory = vm.memory[:vm.fp-2]
	vm.fp = int(savedFP.AsInt())
	vm.pc = int(savedPC.AsInt()) - 1
	return nil
}

func (vm *VM) stepRetVal() error {
	retVal, err := vm.pop()
	if err != nil {
		return err
	}
	if vm.fp == 0 {
		vm.result = retVal
		vm.hasResult = true
		vm.running = false
		return nil
	}
	savedPC, err := vm.readMemory(vm.fp - 2)
	if err != nil {
		return err
	}
	savedFP, err := vm.readMemory(vm.fp - 1)
	if err != nil {
		return err
	}
	vm.memory = vm.memory[:vm.fp-2]
	vm.fp = int(savedFP.AsInt())
	vm.pc = int(savedPC.AsInt()) - 1
	vm.push(retVal)
	return nil
}
