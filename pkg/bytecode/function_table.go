package bytecode

import "github.com/juju/errors"

// FunctionEntry is one function's compiled metadata.
type FunctionEntry struct {
	Name      string
	EntryPC   int
	NumParams int
	NumLocals int // total local slots: parameters + lexically flattened lets
}

// FunctionTable maps function names to their compiled metadata, and
// also supports lookup by the index CALL operands use. Entries are
// ordered by declaration; the order is also the CALL index space.
type FunctionTable struct {
	entries []FunctionEntry
	byName  map[string]int
}

// NewFunctionTable builds an empty table.
func NewFunctionTable() *FunctionTable {
	return &FunctionTable{byName: make(map[string]int)}
}

// ErrDuplicateFunction is returned by Add when a name is already present.
var ErrDuplicateFunction = errors.New("duplicate function name")

// Add appends a new entry and returns its CALL index. Keys must be
// unique within a program.
func (ft *FunctionTable) Add(entry FunctionEntry) (int, error) {
	if _, exists := ft.byName[entry.Name]; exists {
		return 0, errors.Annotatef(ErrDuplicateFunction, "%q", entry.Name)
	}
	idx := len(ft.entries)
	ft.entries = append(ft.entries, entry)
	ft.byName[entry.Name] = idx
	return idx, nil
}

// Size returns the number of functions in the table.
func (ft *FunctionTable) Size() int { return len(ft.entries) }

// Lookup finds an entry by name.
func (ft *FunctionTable) Lookup(name string) (FunctionEntry, bool) {
	idx, ok := ft.byName[name]
	if !ok {
		return FunctionEntry{}, false
	}
	return ft.entries[idx], true
}

// IndexOf returns the CALL index for a function name.
func (ft *FunctionTable) IndexOf(name string) (int, bool) {
	idx, ok := ft.byName[name]
	return idx, ok
}

// At returns the entry for a CALL index.
func (ft *FunctionTable) At(index int) (FunctionEntry, bool) {
	if index < 0 || index >= len(ft.entries) {
		return FunctionEntry{}, false
	}
	return ft.entries[index], true
}

// Entries returns the entries in declaration order. The returned
// slice must not be mutated by the caller.
func (ft *FunctionTable) Entries() []FunctionEntry {
	return ft.entries
}
