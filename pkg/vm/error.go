package vm

import (
	"fmt"

	"github.com/juju/errors"
)

// FaultKind classifies a RuntimeFault per spec §7.
type FaultKind int

const (
	FaultStackUnderflow FaultKind = iota
	FaultOutOfBounds
	FaultTypeMismatch
	FaultDivisionByZero
	FaultBadFunctionIndex
	FaultArityMismatch
	FaultUnknownOpcode
)

func (k FaultKind) String() string {
	switch k {
	case FaultStackUnderflow:
		return "stack underflow"
	case FaultOutOfBounds:
		return "memory out-of-bounds"
	case FaultTypeMismatch:
		return "type mismatch"
	case FaultDivisionByZero:
		return "division by zero"
	case FaultBadFunctionIndex:
		return "bad function index"
	case FaultArityMismatch:
		return "arity mismatch"
	case FaultUnknownOpcode:
		return "unknown opcode"
	default:
		return "unknown fault"
	}
}

// RuntimeFault is a VM execution failure. It always carries the
// faulting pc so a caller can correlate it with a disassembly.
type RuntimeFault struct {
	PC      int
	Kind    FaultKind
	Message string
}

func (f *RuntimeFault) Error() string {
	return fmt.Sprintf("runtime fault at pc=%d: %s: %s", f.PC, f.Kind, f.Message)
}

// Unwrap exposes ErrRuntimeFault so callers can test "did execution
// fault at all" with errors.Is without caring about the specific kind.
func (f *RuntimeFault) Unwrap() error { return ErrRuntimeFault }

// ErrRuntimeFault is the sentinel every RuntimeFault wraps.
var ErrRuntimeFault = errors.New("runtime fault")

func newFault(pc int, kind FaultKind, format string, args ...interface{}) error {
	return &RuntimeFault{PC: pc, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrInstructionBudgetExceeded and ErrDeadlineExceeded report the
// two optional resource-limit guards from spec §5. Neither is a
// RuntimeFault: they are not part of the language's fault model, only
// an operator-configured circuit breaker against a runaway program.
var (
	ErrInstructionBudgetExceeded = errors.New("instruction budget exceeded")
	ErrDeadlineExceeded          = errors.New("execution deadline exceeded")
)

// LoadError reports a malformed program rejected before execution
// begins: a missing main function, or a main that takes parameters.
type LoadError struct {
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load error: %s", e.Message)
}
