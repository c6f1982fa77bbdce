package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gentam/spiflash"
)

func writeCmd() *cobra.Command {
	var inPath string
	var eraseFirst bool

	cmd := &cobra.Command{
		Use:   "write <addr>",
		Short: "program bytes from a file starting at addr",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := strconv.ParseUint(args[0], 0, 32)
			if err != nil {
				return fmt.Errorf("parse addr: %w", err)
			}
			if inPath == "" {
				return fmt.Errorf("--in is required")
			}
			data, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read input file: %w", err)
			}

			d, prof, err := openDriver()
			if err != nil {
				return err
			}

			if eraseFirst {
				cmdTbl := prof.CommandTable()
				gran := spiflash.SmallestEraseBlock(&cmdTbl)
				if gran == 0 {
					return fmt.Errorf("--erase: chip supports no block-erase opcode")
				}
				length := roundUp(uint32(len(data)), gran)
				if err := d.Erase(uint32(addr), length); err != nil {
					return fmt.Errorf("erase before write: %w", err)
				}
			}

			if err := d.Write(uint32(addr), data); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "file with the bytes to program (required)")
	cmd.Flags().BoolVar(&eraseFirst, "erase", false, "erase the destination range (rounded up to the smallest supported erase block) before writing")
	return cmd
}

// roundUp rounds n up to the next multiple of gran (gran must be a power of two).
func roundUp(n, gran uint32) uint32 {
	return (n + gran - 1) &^ (gran - 1)
}
