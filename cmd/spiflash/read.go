package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func readCmd() *cobra.Command {
	var addr, length uint32
	var fast bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "read --addr ADDR --len N",
		Short: "read bytes starting at addr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := openDriver()
			if err != nil {
				return err
			}

			buf := make([]byte, length)
			if fast {
				err = d.FastRead(addr, buf)
			} else {
				err = d.Read(addr, buf)
			}
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}

			if outPath != "" {
				return os.WriteFile(outPath, buf, 0o644)
			}
			fmt.Println(hex.EncodeToString(buf))
			return nil
		},
	}

	cmd.Flags().Uint32Var(&addr, "addr", 0, "start address")
	cmd.Flags().Uint32Var(&length, "len", 0, "number of bytes to read")
	cmd.Flags().BoolVar(&fast, "fast", false, "use the fast-read command")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write bytes to this file instead of stdout hex")
	_ = cmd.MarkFlagRequired("len")
	return cmd
}
