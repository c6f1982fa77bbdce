package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func eraseCmd() *cobra.Command {
	var addr, length uint32

	cmd := &cobra.Command{
		Use:   "erase --addr ADDR --len N",
		Short: "erase a block-aligned region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := openDriver()
			if err != nil {
				return err
			}
			if err := d.Erase(addr, length); err != nil {
				return fmt.Errorf("erase: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Uint32Var(&addr, "addr", 0, "start address")
	cmd.Flags().Uint32Var(&length, "len", 0, "number of bytes to erase (multiple of the smallest supported erase block)")
	_ = cmd.MarkFlagRequired("len")
	return cmd
}

func chipEraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chip-erase",
		Short: "erase the entire chip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := openDriver()
			if err != nil {
				return err
			}
			if err := d.ChipErase(); err != nil {
				return fmt.Errorf("chip erase: %w", err)
			}
			return nil
		},
	}
}
