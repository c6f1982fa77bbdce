package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gentam/spiflash/config"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "read and print the chip's JEDEC and product IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, prof, err := openDriver()
			if err != nil {
				return err
			}

			var jedec, product uint32
			if err := d.ReadJEDECID(&jedec); err != nil {
				return fmt.Errorf("read jedec id: %w", err)
			}
			if err := d.ReadProductID(&product); err != nil {
				return fmt.Errorf("read product id: %w", err)
			}

			fmt.Printf("jedec_id:   %06x\n", jedec)
			fmt.Printf("product_id: %06x\n", product)

			reg := config.NewRegistry([]*config.Profile{prof})
			if known, ok := reg.Lookup(jedec); ok {
				fmt.Printf("chip:       %s\n", known.Name)
			} else if prof.JedecID != "" {
				fmt.Printf("chip:       unknown (profile %s expects jedec_id %s)\n", prof.Name, prof.JedecID)
			} else {
				fmt.Printf("chip:       unknown\n")
			}
			return nil
		},
	}
}
