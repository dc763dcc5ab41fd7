package main

import (
	"github.com/db47h/jasm/classfile"
	"github.com/db47h/jasm/disasm"
	"github.com/spf13/cobra"
)

func disCmd() *cobra.Command {
	var (
		outPath         string
		roundtrip       bool
		noShortCodeAttr bool
		useMmap         bool
	)

	cmd := &cobra.Command{
		Use:   "dis <input.class>",
		Short: "Disassemble a binary .class file into textual assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDis(args[0], outPath, disasm.Options{
				Roundtrip:       roundtrip,
				NoShortCodeAttr: noShortCodeAttr,
			}, useMmap)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&outPath, "output", "o", "", "output `file` (default stdout)")
	flags.BoolVarP(&roundtrip, "roundtrip", "r", false, "emit every constant pool reference and definition so reassembly reproduces the original bytes exactly")
	flags.BoolVar(&noShortCodeAttr, "no-short-code-attr", false, "read every Code attribute in the modern (u2/u2/u4) form, regardless of class file version")
	flags.BoolVar(&useMmap, "mmap", false, "memory-map the input file instead of reading it into memory")
	return cmd
}

func runDis(inPath, outPath string, opts disasm.Options, useMmap bool) error {
	var data []byte
	if useMmap {
		mapped, closer, err := classfile.ReadFileMmap(inPath)
		if err != nil {
			return err
		}
		defer closer.Close()
		data = mapped
	} else {
		b, err := classfile.ReadFile(inPath)
		if err != nil {
			return err
		}
		data = b
	}

	text, err := disasm.Disassemble(data, opts)
	if err != nil {
		return err
	}

	out, closeOut, err := outputWriter(outPath)
	if err != nil {
		return err
	}
	defer closeOut()
	_, err = out.WriteString(text)
	return err
}
