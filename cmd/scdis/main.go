// Command scdis disassembles a `.scbin` binary to stdout as a
// standalone tool; `svm --print` shares the same decode step
// (internal/bytecode/disasm) rather than reimplementing it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scathac/internal/bytecode/disasm"
	"scathac/internal/bytecode/format"
	"scathac/internal/debuginfo"
)

func main() {
	var debugInfoPath string

	cmd := &cobra.Command{
		Use:   "scdis <binary>",
		Short: "disassemble a compiled Scatha bytecode binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], debugInfoPath)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&debugInfoPath, "debug-info", "", "a .scdsym sidecar whose labels annotate the listing")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scdis:", err)
		os.Exit(1)
	}
}

func run(binPath, debugInfoPath string) error {
	raw, err := os.ReadFile(binPath)
	if err != nil {
		return fmt.Errorf("scdis: read %s: %w", binPath, err)
	}
	prog, err := format.Decode(raw)
	if err != nil {
		return fmt.Errorf("scdis: decode %s: %w", binPath, err)
	}

	var sidecar *debuginfo.Sidecar
	if debugInfoPath != "" {
		symRaw, err := os.ReadFile(debugInfoPath)
		if err != nil {
			return fmt.Errorf("scdis: read %s: %w", debugInfoPath, err)
		}
		sidecar, err = debuginfo.Unmarshal(symRaw)
		if err != nil {
			return fmt.Errorf("scdis: parse %s: %w", debugInfoPath, err)
		}
	}

	fmt.Printf("; version %s, build id %016x\n", prog.Header.Version, prog.Header.BuildID)
	fmt.Printf("; %d bytes data, %d bytes text, start offset %d\n", len(prog.Data), len(prog.Text), prog.Header.StartOffset)
	for _, imp := range prog.Imports {
		fmt.Printf("; extern %s\n", imp.Name)
	}

	insts, err := disasm.Decode(prog.Text)
	if err != nil {
		disasm.Fprint(os.Stdout, insts, sidecar)
		return fmt.Errorf("scdis: %w", err)
	}
	disasm.Fprint(os.Stdout, insts, sidecar)
	return nil
}
