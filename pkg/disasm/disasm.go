// Package disasm renders a compiled bytecode.Program back into
// human-readable forms: an instruction listing, a function table, an
// opcode-frequency histogram, and machine-readable JSON/YAML dumps.
// Nothing here feeds back into compilation; it exists purely to let a
// person or another tool inspect what the compiler produced.
package disasm

import (
	"fmt"
	"io"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/guptarohit/asciigraph"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"

	"github.com/ferrolang/ferro/pkg/bytecode"
)

// Listing renders the instruction stream as a table: pc, mnemonic,
// operand (blank for opcodes that carry none), and the name of the
// function that owns that pc.
func Listing(w io.Writer, prog *bytecode.Program) {
	owner := ownerByPC(prog)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"PC", "OP", "OPERAND", "FUNCTION"})
	table.SetAutoFormatHeaders(false)
	for pc, instr := range prog.Instructions {
		operand := ""
		if bytecode.UsesOperand(instr.Op) {
			operand = fmt.Sprintf("%d", instr.Operand)
		}
		table.Append([]string{fmt.Sprintf("%d", pc), instr.Op.String(), operand, owner[pc]})
	}
	table.Render()
}

// ownerByPC maps each instruction index to the name of the function
// whose body contains it, for the listing's FUNCTION column.
func ownerByPC(prog *bytecode.Program) map[int]string {
	entries := append([]bytecode.FunctionEntry(nil), prog.Functions.Entries()...)
	slices.SortFunc(entries, func(a, b bytecode.FunctionEntry) bool {
		return a.EntryPC < b.EntryPC
	})

	owner := make(map[int]string, len(prog.Instructions))
	for i, e := range entries {
		end := len(prog.Instructions)
		if i+1 < len(entries) {
			end = entries[i+1].EntryPC
		}
		for pc := e.EntryPC; pc < end; pc++ {
			owner[pc] = e.Name
		}
	}
	return owner
}

// FunctionTable renders the program's function table as a table,
// sorted alphabetically by name for readability (independent of the
// CALL-index declaration order the compiler assigned).
func FunctionTable(w io.Writer, prog *bytecode.Program) {
	entries := append([]bytecode.FunctionEntry(nil), prog.Functions.Entries()...)
	slices.SortFunc(entries, func(a, b bytecode.FunctionEntry) bool {
		return a.Name < b.Name
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "CALL INDEX", "ENTRY PC", "PARAMS", "LOCALS"})
	for _, e := range entries {
		idx, _ := prog.Functions.IndexOf(e.Name)
		table.Append([]string{
			e.Name,
			fmt.Sprintf("%d", idx),
			fmt.Sprintf("%d", e.EntryPC),
			fmt.Sprintf("%d", e.NumParams),
			fmt.Sprintf("%d", e.NumLocals),
		})
	}
	table.Render()
}

// Histogram plots opcode-frequency as an ASCII bar chart: how many
// times each distinct opcode appears in the compiled instruction
// stream. Used by the CLI's --stats output.
func Histogram(w io.Writer, prog *bytecode.Program) {
	counts := make(map[string]int)
	for _, instr := range prog.Instructions {
		counts[instr.Op.String()]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([]float64, len(names))
	for i, name := range names {
		data[i] = float64(counts[name])
	}
	if len(data) == 0 {
		return
	}

	fmt.Fprintln(w, strings.Join(names, "  "))
	fmt.Fprintln(w, asciigraph.Plot(data, asciigraph.Height(10)))
}

// HistogramFromCounts plots an opcode-frequency bar chart from an
// already-tallied count map, the shape vm.ExecutionStats.OpCounts
// produces. Used by the CLI's --stats output, which has runtime
// execution counts rather than a static instruction stream.
func HistogramFromCounts(w io.Writer, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([]float64, len(names))
	for i, name := range names {
		data[i] = float64(counts[name])
	}
	if len(data) == 0 {
		return
	}

	fmt.Fprintln(w, strings.Join(names, "  "))
	fmt.Fprintln(w, asciigraph.Plot(data, asciigraph.Height(10)))
}

// dump is the machine-readable projection of a Program used by
// DumpJSON/DumpYAML. bytecode.Instruction/Opcode carry no struct tags
// of their own (they are the VM's wire format, not a display format),
// so this is a small hand-built DTO rather than serializing the
// program types directly.
type dump struct {
	Fingerprint  string            `json:"fingerprint" yaml:"fingerprint"`
	Functions    []functionDump    `json:"functions" yaml:"functions"`
	Constants    []string          `json:"constants" yaml:"constants"`
	Instructions []instructionDump `json:"instructions" yaml:"instructions"`
}

type functionDump struct {
	Name      string `json:"name" yaml:"name"`
	CallIndex int    `json:"call_index" yaml:"call_index"`
	EntryPC   int    `json:"entry_pc" yaml:"entry_pc"`
	NumParams int    `json:"num_params" yaml:"num_params"`
	NumLocals int    `json:"num_locals" yaml:"num_locals"`
}

type instructionDump struct {
	PC      int    `json:"pc" yaml:"pc"`
	Op      string `json:"op" yaml:"op"`
	Operand string `json:"operand,omitempty" yaml:"operand,omitempty"`
}

func toDump(prog *bytecode.Program) (dump, error) {
	fp, err := prog.Fingerprint()
	if err != nil {
		return dump{}, errors.Trace(err)
	}

	d := dump{Fingerprint: fp}
	for _, e := range prog.Functions.Entries() {
		idx, _ := prog.Functions.IndexOf(e.Name)
		d.Functions = append(d.Functions, functionDump{
			Name: e.Name, CallIndex: idx, EntryPC: e.EntryPC,
			NumParams: e.NumParams, NumLocals: e.NumLocals,
		})
	}
	for _, c := range prog.Constants {
		d.Constants = append(d.Constants, c.String())
	}
	for pc, instr := range prog.Instructions {
		id := instructionDump{PC: pc, Op: instr.Op.String()}
		if bytecode.UsesOperand(instr.Op) {
			id.Operand = fmt.Sprintf("%d", instr.Operand)
		}
		d.Instructions = append(d.Instructions, id)
	}
	return d, nil
}

// DumpJSON renders the program as JSON.
func DumpJSON(prog *bytecode.Program) ([]byte, error) {
	d, err := toDump(prog)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.Annotate(err, "marshaling program to JSON")
	}
	return out, nil
}

// DumpYAML renders the program as YAML.
func DumpYAML(prog *bytecode.Program) ([]byte, error) {
	d, err := toDump(prog)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, errors.Annotate(err, "marshaling program to YAML")
	}
	return out, nil
}
