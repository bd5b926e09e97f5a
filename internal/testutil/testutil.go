// Package testutil provides fixtures shared by ferro's package tests:
// temp-file helpers for .fe source, and hand-assembled bytecode.Program
// values for exercising the VM and optimizer independently of the
// compiler that would normally produce them.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ferrolang/ferro/pkg/bytecode"
)

// TempSource writes a .fe source fixture to a temp file and returns its
// path. The file is cleaned up automatically when the test finishes.
func TempSource(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.fe")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp source: %v", err)
	}
	return path
}

// TempFile creates a temporary file with the given content and
// extension, for fixtures that aren't .fe source (e.g. ferro.toml).
func TempFile(t *testing.T, content, ext string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test"+ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// ReturnInt32 builds a minimal single-function program equivalent to
// `fn main() -> i32 { return <v>; }`, for tests that need a program
// without going through the parser/checker/compiler pipeline.
func ReturnInt32(v int32) *bytecode.Program {
	functions := bytecode.NewFunctionTable()
	if _, err := functions.Add(bytecode.FunctionEntry{Name: "main", EntryPC: 0, NumParams: 0, NumLocals: 0}); err != nil {
		panic(err)
	}
	return &bytecode.Program{
		Functions: functions,
		Instructions: []bytecode.Instruction{
			bytecode.New(bytecode.OpPushI32, uint64(uint32(v))),
			bytecode.New(bytecode.OpRetVal, 0),
		},
	}
}

// AddI32Program builds a two-function program equivalent to:
//
//	fn add(x: i32, y: i32) -> i32 { return x + y; }
//	fn main() -> i32 { return add(a, b); }
//
// A fixture for tests that need a real call target and function table
// without going through the compiler.
func AddI32Program(a, b int32) *bytecode.Program {
	functions := bytecode.NewFunctionTable()
	addIdx, err := functions.Add(bytecode.FunctionEntry{Name: "add", EntryPC: 0, NumParams: 2, NumLocals: 2})
	if err != nil {
		panic(err)
	}
	if _, err := functions.Add(bytecode.FunctionEntry{Name: "main", EntryPC: 4, NumParams: 0, NumLocals: 0}); err != nil {
		panic(err)
	}

	return &bytecode.Program{
		Functions: functions,
		Instructions: []bytecode.Instruction{
			// add: pc 0-3
			bytecode.New(bytecode.OpLoad, 0),
			bytecode.New(bytecode.OpLoad, 1),
			bytecode.New(bytecode.OpAddI32, 0),
			bytecode.New(bytecode.OpRetVal, 0),
			// main: pc 4-7
			bytecode.New(bytecode.OpPushI32, uint64(uint32(a))),
			bytecode.New(bytecode.OpPushI32, uint64(uint32(b))),
			bytecode.New(bytecode.OpCall, uint64(addIdx)),
			bytecode.New(bytecode.OpRetVal, 0),
		},
	}
}

// AssertInt32Equal checks if two int32 values are equal.
func AssertInt32Equal(t *testing.T, expected, actual int32) {
	t.Helper()
	if expected != actual {
		t.Errorf("expected %d, got %d", expected, actual)
	}
}
