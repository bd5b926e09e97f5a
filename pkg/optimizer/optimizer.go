// Package optimizer applies optional bytecode-level rewrites to a
// compiled program before it reaches the VM. Every pass here is
// semantics-preserving: turning a pass off never changes what a
// program computes, only how many instructions it takes to compute
// it.
package optimizer

import "github.com/ferrolang/ferro/pkg/bytecode"

// Optimizer runs the enabled passes over a compiled program.
type Optimizer struct {
	enableConstantFolding bool
	enableDeadCode        bool
}

// Option is a functional option for the Optimizer.
type Option func(*Optimizer)

// WithAllOptimizations enables every pass.
func WithAllOptimizations() Option {
	return func(o *Optimizer) {
		o.enableConstantFolding = true
		o.enableDeadCode = true
	}
}

// New creates an Optimizer with the given options.
func New(opts ...Option) *Optimizer {
	opt := &Optimizer{}
	for _, o := range opts {
		o(opt)
	}
	return opt
}

// Optimize applies the enabled passes, in a fixed order: constant
// folding first, then dead-code elimination, each run once.
func (o *Optimizer) Optimize(program *bytecode.Program) *bytecode.Program {
	result := program
	if o.enableConstantFolding {
		result = o.constantFolding(result)
	}
	if o.enableDeadCode {
		result = o.deadCodeElimination(result)
	}
	return result
}
