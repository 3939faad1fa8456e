// Command svm loads a `.scbin` binary and either runs it to
// completion or, with --print, disassembles it. The exit code is the
// loaded program's own register-0 result; negative codes are reserved
// for driver-level failures (file not found, empty binary), matching
// the bytecode file format's documented exit-code contract.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"scathac/internal/bytecode/disasm"
	"scathac/internal/bytecode/format"
	"scathac/internal/driver"
	"scathac/internal/ffi"
	"scathac/internal/vm"
)

type options struct {
	binary       string
	print        bool
	time         bool
	noJumpThread bool
	libDir       string
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:   "svm [args]...",
		Short: "run a compiled Scatha bytecode binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, &opts)
		},
		SilenceUsage: true,
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.binary, "binary", "", "the .scbin binary to load (required)")
	flags.BoolVar(&opts.print, "print", false, "disassemble the binary to stdout and exit")
	flags.BoolVarP(&opts.time, "time", "t", false, "print execution duration to stderr")
	flags.BoolVar(&opts.noJumpThread, "no-jump-thread", false, "call the VM's Run instead of RunThreaded (both use the same switch-dispatch loop)")
	flags.StringVar(&opts.libDir, "lib-dir", "", "additional directory to search for FFI libraries (unused: dynamic loading is out of scope)")
	cmd.MarkFlagRequired("binary")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "svm:", err)
		os.Exit(-1)
	}
	driver.Exit()
}

func run(progArgs []string, opts *options) error {
	raw, err := os.ReadFile(opts.binary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svm: read %s: %v\n", opts.binary, err)
		os.Exit(-1)
	}
	if len(raw) == 0 {
		fmt.Fprintf(os.Stderr, "svm: %s is empty\n", opts.binary)
		os.Exit(-1)
	}

	prog, err := format.Decode(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svm: decode %s: %v\n", opts.binary, err)
		os.Exit(-1)
	}

	if opts.print {
		insts, err := disasm.Decode(prog.Text)
		if err != nil {
			return fmt.Errorf("svm: disassemble %s: %w", opts.binary, err)
		}
		disasm.Fprint(os.Stdout, insts, nil)
		return nil
	}

	table, err := buildFFITable(prog.Imports)
	if err != nil {
		return fmt.Errorf("svm: build ffi table: %w", err)
	}

	machine, err := vm.New(prog, table)
	if err != nil {
		return fmt.Errorf("svm: load %s: %w", opts.binary, err)
	}

	args, err := parseArgs(progArgs)
	if err != nil {
		return err
	}

	timer := driver.StartTimer("run")
	var result uint64
	if opts.noJumpThread {
		result, err = machine.Run(args...)
	} else {
		result, err = machine.RunThreaded(args...)
	}
	timer.Stop(opts.time)
	if err != nil {
		return fmt.Errorf("svm: %w", err)
	}

	driver.SetExitStatus(int(result))
	return nil
}

// parseArgs converts trailing positional arguments to the register
// words the entry function receives; each must parse as an unsigned
// 64-bit integer since the bytecode calling convention has no string
// argument type at the entry boundary (spec's FFI type list covers
// callext marshalling only, not process argv).
func parseArgs(raw []string) ([]uint64, error) {
	args := make([]uint64, 0, len(raw))
	for _, a := range raw {
		v, err := strconv.ParseUint(a, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("svm: argument %q is not a valid integer: %w", a, err)
		}
		args = append(args, v)
	}
	return args, nil
}

// builtins is the host's fixed set of externally callable functions,
// standing in for a real dynamic-library loader, which this toolchain
// doesn't implement. A program's callext import not found here binds to a
// stub that panics on invocation, which internal/vm's panic recovery
// converts into a vmerr.FFIError.
var builtins = map[string]ffi.FuncPtr{
	"print": func(regs []uint64, host ffi.Host, _ any) {
		ptr, length := regs[0], regs[1]
		data, err := host.ReadMemory(ptr, int(length))
		if err != nil {
			panic(fmt.Sprintf("print: %v", err))
		}
		os.Stdout.Write(data)
	},
	"exit": func(regs []uint64, _ ffi.Host, _ any) {
		driver.SetExitStatus(int(regs[0]))
	},
}

func buildFFITable(imports []ffi.Signature) (*ffi.Table, error) {
	if len(imports) == 0 {
		return nil, nil
	}
	fns := make([]ffi.ExternalFunction, len(imports))
	for i, sig := range imports {
		fn, ok := builtins[sig.Name]
		if !ok {
			name := sig.Name
			fn = func(regs []uint64, host ffi.Host, _ any) {
				panic(fmt.Sprintf("svm: unbound external function %q", name))
			}
		}
		fns[i] = ffi.NewExternalFunction(sig.Name, fn)
	}
	loader := ffi.NewStaticLoader(map[string][]ffi.ExternalFunction{"host": fns})
	return ffi.NewTable(loader, []string{"host"})
}
