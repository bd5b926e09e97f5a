package disasm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ferrolang/ferro/pkg/bytecode"
	"github.com/ferrolang/ferro/pkg/checker"
	"github.com/ferrolang/ferro/pkg/compiler"
	"github.com/ferrolang/ferro/pkg/parser"
)

func mustCompile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	result, err := checker.New().Check(prog)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	out, err := compiler.New().Compile(prog, result)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return out
}

func TestListingIncludesOpcodesAndFunctionOwnership(t *testing.T) {
	prog := mustCompile(t, `
		fn add(x: i32, y: i32) -> i32 { return x + y; }
		fn main() -> i32 { return add(1, 2); }
	`)
	var buf bytes.Buffer
	Listing(&buf, prog)
	out := buf.String()
	if !strings.Contains(out, "ADD_I32") {
		t.Error("expected the listing to mention ADD_I32")
	}
	if !strings.Contains(out, "add") || !strings.Contains(out, "main") {
		t.Error("expected the listing's FUNCTION column to name both functions")
	}
}

func TestFunctionTableSortedByName(t *testing.T) {
	prog := mustCompile(t, `
		fn zebra() -> i32 { return 1; }
		fn apple() -> i32 { return 2; }
		fn main() -> i32 { return zebra() + apple(); }
	`)
	var buf bytes.Buffer
	FunctionTable(&buf, prog)
	out := buf.String()
	appleIdx := strings.Index(out, "apple")
	zebraIdx := strings.Index(out, "zebra")
	if appleIdx == -1 || zebraIdx == -1 || appleIdx > zebraIdx {
		t.Errorf("expected apple to sort before zebra in the table, got:\n%s", out)
	}
}

func TestDumpJSONRoundTripsFingerprint(t *testing.T) {
	prog := mustCompile(t, `fn main() -> i32 { return 42; }`)
	data, err := DumpJSON(prog)
	if err != nil {
		t.Fatalf("DumpJSON: %v", err)
	}
	fp, err := prog.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), fp) {
		t.Error("expected the JSON dump to include the program's fingerprint")
	}
}

func TestDumpYAMLIncludesFunctionNames(t *testing.T) {
	prog := mustCompile(t, `fn main() -> i32 { return 1; }`)
	data, err := DumpYAML(prog)
	if err != nil {
		t.Fatalf("DumpYAML: %v", err)
	}
	if !strings.Contains(string(data), "main") {
		t.Error("expected the YAML dump to mention main")
	}
}

func TestHistogramPrintsForNonEmptyProgram(t *testing.T) {
	prog := mustCompile(t, `fn main() -> i32 { return 0; }`)
	var buf bytes.Buffer
	Histogram(&buf, prog)
	if buf.Len() == 0 {
		t.Error("expected the histogram to print something for a non-empty instruction stream")
	}
}
