// Package repl implements ferro's interactive evaluation loop.
//
// The language has no persistent runtime state of its own (spec's
// Non-goals rule out a GC, a heap, and modules), so the REPL fakes
// persistence the way an interpreter for a whole-program language
// has to: it keeps the accumulated `let` statements a session has
// entered as source text, and every new line is evaluated by
// wrapping the whole accumulated body in a fresh synthetic `main`
// and running it from scratch. Slower than incremental evaluation
// would be, but exactly as correct as running the equivalent program
// from a file, which is what this is meant to feel like.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/ferrolang/ferro/pkg/checker"
	"github.com/ferrolang/ferro/pkg/compiler"
	"github.com/ferrolang/ferro/pkg/parser"
	"github.com/ferrolang/ferro/pkg/value"
	"github.com/ferrolang/ferro/pkg/vm"
)

const (
	prompt     = "ferro> "
	promptCont = "   ..> "
)

// candidateReturnTypes is the set of return-type annotations the REPL
// tries, in order, when it needs to guess the type of a bare
// expression it has no declared type for.
var candidateReturnTypes = []string{"i32", "bool", "str"}

// REPL is an interactive read-eval-print session.
type REPL struct {
	lets        []string
	history     []string
	multiline   strings.Builder
	inMultiline bool
}

// New creates an empty REPL session.
func New() *REPL {
	return &REPL{}
}

// Start runs the read-eval-print loop until in is exhausted or a quit
// command is entered.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, pterm.FgLightCyan.Sprint("ferro REPL"))
	fmt.Fprintln(out, "Type 'help' for commands, 'quit' to exit. A line ending in \\ continues on the next line.")
	fmt.Fprintln(out)

	for {
		if r.inMultiline {
			fmt.Fprint(out, promptCont)
		} else {
			fmt.Fprint(out, prompt)
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if r.inMultiline {
			if line == "" {
				input := r.multiline.String()
				r.multiline.Reset()
				r.inMultiline = false
				r.eval(input, out)
			} else {
				r.multiline.WriteString(strings.TrimSuffix(line, "\\"))
				r.multiline.WriteString("\n")
			}
			continue
		}

		if r.handleCommand(line, out) {
			switch strings.TrimSpace(line) {
			case "quit", "exit", "q":
				return
			}
			continue
		}

		if strings.HasSuffix(line, "\\") {
			r.inMultiline = true
			r.multiline.WriteString(strings.TrimSuffix(line, "\\"))
			r.multiline.WriteString("\n")
			continue
		}

		r.eval(line, out)
	}
}

func (r *REPL) handleCommand(line string, out io.Writer) bool {
	switch strings.TrimSpace(line) {
	case "":
		return true
	case "quit", "exit", "q":
		fmt.Fprintln(out, pterm.FgLightCyan.Sprint("goodbye"))
		return true
	case "help", "h", "?":
		r.printHelp(out)
		return true
	case "vars":
		r.printLets(out)
		return true
	case "clear":
		r.lets = nil
		fmt.Fprintln(out, "session cleared")
		return true
	case "history":
		for i, cmd := range r.history {
			fmt.Fprintf(out, "%3d: %s\n", i+1, cmd)
		}
		return true
	default:
		return false
	}
}

func (r *REPL) printHelp(out io.Writer) {
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  let x: i32 = 1;   declare a binding that persists for the rest of the session")
	fmt.Fprintln(out, "  1 + 2             evaluate an expression against the current session")
	fmt.Fprintln(out, "  vars              show the session's accumulated let statements")
	fmt.Fprintln(out, "  clear             forget all bindings and start over")
	fmt.Fprintln(out, "  history           show past input")
	fmt.Fprintln(out, "  quit              exit")
}

func (r *REPL) printLets(out io.Writer) {
	if len(r.lets) == 0 {
		fmt.Fprintln(out, "(no bindings yet)")
		return
	}
	for _, l := range r.lets {
		fmt.Fprintln(out, l)
	}
}

func (r *REPL) eval(input string, out io.Writer) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}
	r.history = append(r.history, input)

	if strings.HasPrefix(input, "let ") {
		r.evalLet(input, out)
		return
	}
	r.evalExpr(input, out)
}

// evalLet appends a new let statement to the session, but only after
// confirming the accumulated session still type-checks with it added.
func (r *REPL) evalLet(stmt string, out io.Writer) {
	stmt = ensureSemicolon(stmt)
	candidate := append(append([]string(nil), r.lets...), stmt)
	if _, err := run(body(candidate, "return 0;")); err != nil {
		fmt.Fprintf(out, "%s\n", pterm.FgRed.Sprintf("error: %v", err))
		return
	}
	r.lets = candidate
}

// evalExpr evaluates a standalone expression against the session's
// accumulated bindings. It tries each candidate return type in turn
// since a bare expression carries no declared type; the first one
// that type-checks, compiles and runs without error wins.
func (r *REPL) evalExpr(expr string, out io.Writer) {
	expr = strings.TrimSuffix(strings.TrimSpace(expr), ";")

	var firstErr error
	for _, t := range candidateReturnTypes {
		v, err := run(bodyWithReturnType(r.lets, expr, t))
		if err == nil {
			fmt.Fprintf(out, "=> %s\n", v.String())
			return
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	fmt.Fprintf(out, "%s\n", pterm.FgRed.Sprintf("error: %v", firstErr))
}

func ensureSemicolon(s string) string {
	if strings.HasSuffix(strings.TrimSpace(s), ";") {
		return s
	}
	return s + ";"
}

// body joins accumulated let statements and a trailing statement into
// a synthetic main function.
func body(lets []string, trailing string) string {
	var b strings.Builder
	b.WriteString("fn main() -> i32 {\n")
	for _, l := range lets {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString(trailing)
	b.WriteString("\n}\n")
	return b.String()
}

func bodyWithReturnType(lets []string, expr, returnType string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fn main() -> %s {\n", returnType)
	for _, l := range lets {
		b.WriteString(l)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "return %s;\n}\n", expr)
	return b.String()
}

// run parses, checks, compiles, and executes source, per the spec's
// own pipeline order.
func run(source string) (value.Value, error) {
	prog, err := parser.New(source).Parse()
	if err != nil {
		return value.Value{}, err
	}
	result, err := checker.New().Check(prog)
	if err != nil {
		return value.Value{}, err
	}
	compiled, err := compiler.New().Compile(prog, result)
	if err != nil {
		return value.Value{}, err
	}
	machine := vm.New()
	if err := machine.Load(compiled); err != nil {
		return value.Value{}, err
	}
	return machine.Run()
}
