// Command ferro is the CLI entry point for the ferro language
// toolchain.
//
// Usage:
//
//	ferro run program.fe                 # parse, check, compile, execute
//	ferro run program.fe --stats         # also print execution statistics
//	ferro run program.fe --max-steps N   # abort after N VM instructions
//	ferro disasm program.fe              # print the compiled instruction listing
//	ferro disasm program.fe --format json
//	ferro repl                           # interactive session
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ComedicChimera/olive"
	"github.com/juju/errors"

	"github.com/ferrolang/ferro/pkg/bytecode"
	"github.com/ferrolang/ferro/pkg/checker"
	"github.com/ferrolang/ferro/pkg/compiler"
	"github.com/ferrolang/ferro/pkg/config"
	"github.com/ferrolang/ferro/pkg/diagnostics"
	"github.com/ferrolang/ferro/pkg/disasm"
	"github.com/ferrolang/ferro/pkg/optimizer"
	"github.com/ferrolang/ferro/pkg/parser"
	"github.com/ferrolang/ferro/pkg/repl"
	"github.com/ferrolang/ferro/pkg/vm"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := run(os.Args); err != nil {
		os.Exit(1)
	}
}

// knownSubcommands are the names olive dispatches on. A bare `ferro
// program.fe` (no subcommand) is the base CLI contract: it's treated
// as shorthand for `ferro run program.fe`.
var knownSubcommands = map[string]bool{"run": true, "disasm": true, "repl": true, "version": true}

func run(args []string) error {
	if len(args) >= 2 && !knownSubcommands[args[1]] && !strings.HasPrefix(args[1], "-") {
		args = append([]string{args[0], "run"}, args[1:]...)
	}

	cli := olive.NewCLI("ferro", "ferro is the toolchain for the ferro language", true)

	runCmd := cli.AddSubcommand("run", "compile and execute a source file", true)
	runCmd.AddPrimaryArg("source", "path to a .fe source file", true)
	runCmd.AddFlag("stats", "s", "print execution statistics after running")
	runCmd.AddFlag("optimize", "O", "run the optimizer before executing")
	runCmd.AddStringArg("max-steps", "m", "abort after this many VM instructions", false)

	disasmCmd := cli.AddSubcommand("disasm", "print a compiled program's instruction listing", true)
	disasmCmd.AddPrimaryArg("source", "path to a .fe source file", true)
	formatArg := disasmCmd.AddSelectorArg("format", "f", "output format", false, []string{"table", "json", "yaml"})
	formatArg.SetDefaultValue("table")

	cli.AddSubcommand("repl", "start an interactive session", false)
	cli.AddSubcommand("version", "print the ferro version", false)

	result, err := olive.ParseArgs(cli, args)
	if err != nil {
		diagnostics.New(diagnostics.LevelWarning).ReportError("Argument Error", err)
		return err
	}

	subcmd, subResult, _ := result.Subcommand()
	switch subcmd {
	case "run":
		return runCommand(subResult)
	case "disasm":
		return disasmCommand(subResult)
	case "repl":
		repl.New().Start(os.Stdin, os.Stdout)
		return nil
	case "version":
		fmt.Printf("ferro version %s (%s)\n", version, commit)
		return nil
	default:
		err := fmt.Errorf("unknown command %q", subcmd)
		diagnostics.New(diagnostics.LevelWarning).ReportError("Argument Error", err)
		return err
	}
}

func runCommand(result *olive.ArgParseResult) error {
	// ferro.toml hasn't been read yet, so this starts at the ambient
	// default level and is re-leveled once cfg is available below.
	log := diagnostics.New(diagnostics.LevelWarning)

	path, _ := result.PrimaryArg()
	source, err := os.ReadFile(path)
	if err != nil {
		log.ReportError("File Error", err)
		return err
	}

	cfg, err := config.Load("ferro.toml")
	if err != nil {
		log.ReportError("Config Error", err)
		return err
	}
	log = diagnostics.New(diagnostics.ParseLevel(cfg.Diagnostics.LogLevel))

	compiled, err := compileSource(string(source), cfg, log)
	if err != nil {
		log.ReportError("Ferro Error", err)
		return err
	}

	machine := vm.New()
	if err := machine.Load(compiled); err != nil {
		log.ReportError("Load Error", err)
		return err
	}
	machine.EnableStats()

	if maxSteps, ok := result.Arguments["max-steps"]; ok {
		n, err := strconv.ParseInt(maxSteps.(string), 10, 64)
		if err != nil {
			err = errors.Annotate(err, "invalid --max-steps value")
			log.ReportError("Argument Error", err)
			return err
		}
		machine.SetMaxSteps(n)
	} else if cfg.VM.MaxInstructions > 0 {
		machine.SetMaxSteps(int64(cfg.VM.MaxInstructions))
	}

	out, err := machine.Run()
	if err != nil {
		log.ReportError("Runtime Fault", err)
		return err
	}

	fmt.Println(out.String())

	if _, wantStats := result.Arguments["stats"]; wantStats {
		printStats(machine.Stats())
	}
	return nil
}

func disasmCommand(result *olive.ArgParseResult) error {
	log := diagnostics.New(diagnostics.LevelWarning)

	path, _ := result.PrimaryArg()
	source, err := os.ReadFile(path)
	if err != nil {
		log.ReportError("File Error", err)
		return err
	}

	cfg, err := config.Load("ferro.toml")
	if err != nil {
		log.ReportError("Config Error", err)
		return err
	}
	log = diagnostics.New(diagnostics.ParseLevel(cfg.Diagnostics.LogLevel))

	compiled, err := compileSource(string(source), cfg, log)
	if err != nil {
		log.ReportError("Ferro Error", err)
		return err
	}

	format := "table"
	if f, ok := result.Arguments["format"]; ok {
		format = f.(string)
	}

	switch format {
	case "json":
		data, err := disasm.DumpJSON(compiled)
		if err != nil {
			log.ReportError("Disasm Error", err)
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := disasm.DumpYAML(compiled)
		if err != nil {
			log.ReportError("Disasm Error", err)
			return err
		}
		fmt.Println(string(data))
	default:
		disasm.FunctionTable(os.Stdout, compiled)
		disasm.Listing(os.Stdout, compiled)
	}
	return nil
}

func compileSource(source string, cfg *config.Config, log *diagnostics.Logger) (*bytecode.Program, error) {
	diagnostics.Phase("start", "parse")
	prog, err := parser.New(source).Parse()
	if err != nil {
		return nil, errors.Annotate(err, "parse error")
	}

	diagnostics.Phase("parse", "check")
	checked, err := checker.New().Check(prog)
	if err != nil {
		return nil, errors.Annotate(err, "type error")
	}

	diagnostics.Phase("check", "compile")
	compiled, err := compiler.New().Compile(prog, checked)
	if err != nil {
		return nil, err
	}

	if cfg.Optimizer.ConstantFolding || cfg.Optimizer.DeadCode {
		diagnostics.Phase("compile", "optimize")
		var opts []optimizer.Option
		if cfg.Optimizer.ConstantFolding {
			opts = append(opts, optimizer.WithConstantFolding())
		}
		if cfg.Optimizer.DeadCode {
			opts = append(opts, optimizer.WithDeadCodeElimination())
		}
		compiled = optimizer.New(opts...).Optimize(compiled)
	}

	log.Verbose("Pipeline", "compiled successfully")
	return compiled, nil
}

func printStats(stats *vm.ExecutionStats) {
	if stats == nil {
		return
	}
	fmt.Printf("steps executed: %d\n", stats.StepsExecuted)
	disasm.HistogramFromCounts(os.Stdout, stats.OpCounts)
}
