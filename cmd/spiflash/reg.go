package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func regCmd() *cobra.Command {
	var writeEnable bool
	var waitMs uint

	cmd := &cobra.Command{
		Use:   "reg <reg> [value]",
		Short: "read an arbitrary hardware register, or write it when value is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := strconv.ParseUint(args[0], 0, 8)
			if err != nil {
				return fmt.Errorf("parse reg: %w", err)
			}

			d, _, err := openDriver()
			if err != nil {
				return err
			}

			if len(args) == 2 {
				v, err := strconv.ParseUint(args[1], 0, 8)
				if err != nil {
					return fmt.Errorf("parse value: %w", err)
				}
				if err := d.WriteReg(byte(reg), byte(v), writeEnable, uint32(waitMs)); err != nil {
					return fmt.Errorf("write reg: %w", err)
				}
				return nil
			}

			var val byte
			if err := d.ReadReg(byte(reg), &val); err != nil {
				return fmt.Errorf("read reg: %w", err)
			}
			fmt.Printf("reg 0x%02x: 0x%02x\n", reg, val)
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeEnable, "write-enable", true, "issue a write-enable before writing and wait for busy to clear")
	cmd.Flags().UintVar(&waitMs, "wait-ms", 0, "initial wait before polling the status register, when --write-enable is set")
	return cmd
}
