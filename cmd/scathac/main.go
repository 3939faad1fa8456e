// Command scathac is the compiler driver: it parses one or more IR
// text files, runs the optimization pipeline, lowers through MIR to
// assembly, links, and writes a `.scbin` binary (plus an optional
// `.scdsym` debug sidecar). Building an actual Scatha-source front end
// (lexer/parser/sema/irgen) is not built here; this driver's "source"
// is the IR text format internal/ir/cfg.Print/Parse define, the
// documented interface an external irgen would target.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scathac/internal/bytecode/format"
	"scathac/internal/debuginfo"
	"scathac/internal/driver"
	"scathac/internal/driver/buildid"
	"scathac/internal/ir/cfg"
	"scathac/internal/isel"
	"scathac/internal/mir"
	"scathac/internal/mirpasses"
	"scathac/internal/passes"
	"scathac/internal/pipeline"

	"scathac/internal/assembly"
)

// defaultPipeline is the -o/--optimize pipeline: scalar promotion
// first so later passes see register-resident values, then the
// algebraic/CFG simplifications, then the two module-scope passes
// (inlining before dead-function elimination, since inlining is what
// makes a callee provably dead).
const defaultPipeline = "memtoreg,sroa,instcombine,propconst,simplifycfg,gvn,tailrecur,looprotate,dce,inline(instcombine,dce),deadfuncelim"

type options struct {
	optimize     bool
	debug        bool
	time         bool
	binaryOnly   bool
	outDir       string
	passesScript string
	printIR      bool
	printMIR     bool
	printASM     bool
	cpuProfile   string
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("scathac: ")

	var opts options
	cmd := &cobra.Command{
		Use:   "scathac <input>...",
		Short: "compile Scatha IR text into a bytecode binary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, &opts)
		},
		SilenceUsage: true,
	}
	flags := cmd.Flags()
	flags.BoolVarP(&opts.optimize, "optimize", "o", false, "run the default optimization pipeline")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "emit a .scdsym debug sidecar")
	flags.BoolVarP(&opts.time, "time", "t", false, "print wall-clock compile time to stderr")
	flags.BoolVarP(&opts.binaryOnly, "binary-only", "b", false, "emit a raw .scbin binary")
	flags.StringVar(&opts.outDir, "out-dir", ".", "destination directory")
	flags.StringVar(&opts.passesScript, "passes", "", "override the optimization pipeline script")
	flags.BoolVar(&opts.printIR, "print-ir", false, "print the IR module to stdout after optimization")
	flags.BoolVar(&opts.printMIR, "print-mir", false, "print the MIR module to stdout after MIR passes")
	flags.BoolVar(&opts.printASM, "print-asm", false, "print a structural summary of the assembled blocks")
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "", "write a CPU profile to the given file")

	if err := cmd.Execute(); err != nil {
		driver.Fatalf("%v", err)
	}
	driver.Exit()
}

func run(inputs []string, opts *options) error {
	stopProfile, err := driver.StartCPUProfile(opts.cpuProfile)
	if err != nil {
		return err
	}
	driver.AtExit(stopProfile)

	timer := driver.StartTimer("compile")
	defer timer.Stop(opts.time)

	ctx := cfg.NewContext()
	mod := cfg.NewModule(ctx)
	for _, path := range inputs {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("scathac: read %s: %w", path, err)
		}
		unit, err := cfg.Parse(ctx, string(src))
		if err != nil {
			return fmt.Errorf("scathac: parse %s: %w", path, err)
		}
		for _, st := range unit.StructTypes() {
			mod.AddStructType(st)
		}
		for _, g := range unit.Globals() {
			mod.AddGlobal(g)
		}
		for _, fn := range unit.Functions() {
			mod.AddFunction(fn)
		}
	}

	if err := cfg.AssertInvariants(mod); err != nil {
		return fmt.Errorf("scathac: input module fails invariants: %w", err)
	}

	script := opts.passesScript
	if script == "" && opts.optimize {
		script = defaultPipeline
	}
	if script != "" {
		reg := pipeline.NewRegistry()
		passes.RegisterAll(reg)
		pl, err := pipeline.Parse(reg, script)
		if err != nil {
			return fmt.Errorf("scathac: pipeline %q: %w", script, err)
		}
		pl.Run(ctx, mod)
		if err := cfg.AssertInvariants(mod); err != nil {
			return fmt.Errorf("scathac: module fails invariants after optimization: %w", err)
		}
	}

	if opts.printIR {
		fmt.Print(cfg.Print(mod))
	}

	mirMod := isel.Lower(mod)
	mirpasses.Run(mirMod)

	if opts.printMIR {
		for _, fn := range mirMod.Functions() {
			if len(fn.Blocks()) == 0 {
				continue
			}
			fmt.Print(mir.Print(fn))
		}
	}

	stream, err := assembly.Assemble(mirMod)
	if err != nil {
		return fmt.Errorf("scathac: assemble: %w", err)
	}

	linker := &assembly.Linker{}
	linked, err := linker.Link(stream)
	if err != nil {
		return fmt.Errorf("scathac: link: %w", err)
	}

	if opts.printASM {
		printAssemblySummary(stream)
	}

	start, ok := linked.SymbolTable["main"]
	if !ok {
		return fmt.Errorf("scathac: no entry function %q in linked symbol table", "main")
	}

	prog := &format.Program{
		Header: format.Header{
			Version:     format.CurrentVersion,
			StartOffset: uint64(start),
		},
		Text:    linked.Text,
		Imports: mirMod.Externs(),
	}

	var sidecar *debuginfo.Sidecar
	if opts.debug {
		id, err := buildid.Compute(prog.Data, prog.Text)
		if err != nil {
			return fmt.Errorf("scathac: compute build id: %w", err)
		}
		prog.Header.BuildID = id
		sidecar = debuginfo.FromSymbolTable(linked.SymbolTable, len(prog.Text))
	}

	encoded, err := format.Encode(prog)
	if err != nil {
		return fmt.Errorf("scathac: encode binary: %w", err)
	}

	base := outputBase(inputs[0])
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("scathac: create out-dir %s: %w", opts.outDir, err)
	}
	binPath := filepath.Join(opts.outDir, base+".scbin")
	if err := os.WriteFile(binPath, encoded, 0o644); err != nil {
		return fmt.Errorf("scathac: write %s: %w", binPath, err)
	}

	if opts.debug && !sidecar.Empty() {
		raw, err := debuginfo.Marshal(sidecar)
		if err != nil {
			return fmt.Errorf("scathac: marshal debug sidecar: %w", err)
		}
		symPath := filepath.Join(opts.outDir, base+".scdsym")
		if err := os.WriteFile(symPath, raw, 0o644); err != nil {
			return fmt.Errorf("scathac: write %s: %w", symPath, err)
		}
	}

	_ = opts.binaryOnly // native executable wrapping isn't implemented; .scbin is always the output
	return nil
}

func outputBase(firstInput string) string {
	base := filepath.Base(firstInput)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printAssemblySummary(stream *assembly.AssemblyStream) {
	for _, b := range stream.Blocks() {
		fmt.Printf("%s:", b.Label())
		if b.Public() {
			fmt.Print(" (public)")
		}
		fmt.Println()
		for _, inst := range b.Instructions() {
			fmt.Printf("  %s\n", inst.OpCode())
		}
	}
}
