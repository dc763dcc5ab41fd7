package main

import (
	"os"

	"github.com/db47h/jasm/asm"
	"github.com/spf13/cobra"
)

func asmCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "asm <input.j>",
		Short: "Assemble a textual class file into binary .class form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsm(args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output `file` (default stdout)")
	return cmd
}

func runAsm(inPath, outPath string) error {
	src, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := asm.Assemble(inPath, src)
	if err != nil {
		return err
	}

	out, closeOut, err := outputWriter(outPath)
	if err != nil {
		return err
	}
	defer closeOut()
	_, err = out.Write(data)
	return err
}
