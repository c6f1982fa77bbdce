package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func srCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sr [value]",
		Short: "read the status register, or write it when value is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := openDriver()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				v, err := strconv.ParseUint(args[0], 0, 8)
				if err != nil {
					return fmt.Errorf("parse value: %w", err)
				}
				if err := d.WriteSR(byte(v)); err != nil {
					return fmt.Errorf("write sr: %w", err)
				}
				return nil
			}

			var sr byte
			if err := d.ReadSR(&sr); err != nil {
				return fmt.Errorf("read sr: %w", err)
			}
			fmt.Printf("sr: 0x%02x\n", sr)
			return nil
		},
	}
	return cmd
}
