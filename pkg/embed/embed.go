// Package embed provides the Go embedding API for ferro.
//
// ferro is embeddable in Go applications: pass source text, get a
// value.Value back.
//
// Basic usage:
//
//	result, err := embed.Execute(`
//	    fn main() -> i32 {
//	        let x: i32 = 40;
//	        let y: i32 = 2;
//	        return x + y;
//	    }
//	`)
//
// With resource limits and a deadline:
//
//	result, err := embed.ExecuteWithOptions(code,
//	    embed.WithMaxInstructions(10000),
//	    embed.WithTimeout(5*time.Second),
//	)
package embed

import (
	"context"
	"os"
	"time"

	"github.com/juju/errors"

	"github.com/ferrolang/ferro/pkg/checker"
	"github.com/ferrolang/ferro/pkg/compiler"
	"github.com/ferrolang/ferro/pkg/optimizer"
	"github.com/ferrolang/ferro/pkg/parser"
	"github.com/ferrolang/ferro/pkg/value"
	"github.com/ferrolang/ferro/pkg/vm"
)

// Execute parses, checks, compiles, and runs ferro source, returning
// the value main() returned.
func Execute(source string) (value.Value, error) {
	return ExecuteWithOptions(source)
}

// ExecuteFile reads a .fe file and executes it.
func ExecuteFile(path string, opts ...Option) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, errors.Annotatef(err, "reading %s", path)
	}
	return ExecuteWithOptions(string(data), opts...)
}

// Options configures a single Execute call.
type Options struct {
	// MaxInstructions caps the number of instructions the VM may
	// execute. Zero means unlimited.
	MaxInstructions int64

	// Timeout bounds wall-clock execution time. Zero means no limit.
	Timeout time.Duration

	// Optimize enables the optimizer's passes before the program
	// reaches the VM.
	Optimize bool

	// Context allows external cancellation; if nil,
	// context.Background() is used.
	Context context.Context
}

// Option is a functional option for ExecuteWithOptions.
type Option func(*Options)

// WithMaxInstructions sets an instruction-count budget.
func WithMaxInstructions(n int64) Option {
	return func(o *Options) { o.MaxInstructions = n }
}

// WithTimeout sets a wall-clock execution deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithOptimize enables the optimizer's constant-folding and
// dead-code-elimination passes.
func WithOptimize() Option {
	return func(o *Options) { o.Optimize = true }
}

// WithContext sets the context used for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) { o.Context = ctx }
}

// Result carries a successful execution's return value alongside the
// compiled program's execution statistics, when stats were enabled.
type Result struct {
	Value value.Value
	Stats *vm.ExecutionStats
}

// ExecuteWithOptions runs source through the full pipeline
// (parse -> check -> compile -> optimize -> run) under the given
// options.
func ExecuteWithOptions(source string, opts ...Option) (value.Value, error) {
	res, err := RunWithOptions(source, opts...)
	if err != nil {
		return value.Value{}, err
	}
	return res.Value, nil
}

// RunWithOptions is ExecuteWithOptions's superset: it also returns the
// VM's execution statistics, which are collected on every run.
func RunWithOptions(source string, opts ...Option) (Result, error) {
	options := &Options{Context: context.Background()}
	for _, opt := range opts {
		opt(options)
	}

	prog, err := parser.New(source).Parse()
	if err != nil {
		return Result{}, errors.Trace(err)
	}

	checked, err := checker.New().Check(prog)
	if err != nil {
		return Result{}, errors.Trace(err)
	}

	compiled, err := compiler.New().Compile(prog, checked)
	if err != nil {
		return Result{}, errors.Trace(err)
	}

	if options.Optimize {
		compiled = optimizer.New(optimizer.WithAllOptimizations()).Optimize(compiled)
	}

	machine := vm.New()
	if err := machine.Load(compiled); err != nil {
		return Result{}, errors.Trace(err)
	}
	machine.EnableStats()

	if options.MaxInstructions > 0 {
		machine.SetMaxSteps(options.MaxInstructions)
	}
	if options.Timeout > 0 {
		ctx, cancel := context.WithTimeout(options.Context, options.Timeout)
		defer cancel()
		machine.SetContext(ctx)
	} else {
		machine.SetContext(options.Context)
	}

	out, err := machine.Run()
	if err != nil {
		return Result{}, errors.Trace(err)
	}
	return Result{Value: out, Stats: machine.Stats()}, nil
}
