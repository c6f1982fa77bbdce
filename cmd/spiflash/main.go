// Command spiflash drives a SPI NOR flash chip from the command line,
// against either a periph.io-backed FT2232H USB adapter or a Gobot SPI
// bus, using a YAML chip profile to describe geometry and timings.
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	debug       bool
	transport   string
	profilePath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "spiflash",
		Short: "read, write, and erase SPI NOR flash chips",
		Long:  "spiflash serializes read/write/erase requests into SPI command sequences for a generic SPI NOR flash chip.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			charm := log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.DateTime,
				Prefix:          "spiflash",
			})
			charm.SetColorProfile(termenv.TrueColor)

			if debug {
				charm.SetLevel(log.DebugLevel)
			} else {
				charm.SetLevel(log.InfoLevel)
			}
			slog.SetDefault(slog.New(charm))
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "ftdi", "transport to use: ftdi or gobot")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "path to the chip's YAML profile (default: standard command set and geometry)")
	rootCmd.PersistentFlags().UintVar(&clockHz, "clock-hz", 0, "SPI clock rate for the ftdi transport (default 30MHz)")
	rootCmd.PersistentFlags().StringVar(&busName, "bus", "0", "SPI bus identifier for the gobot transport")

	rootCmd.AddCommand(readCmd())
	rootCmd.AddCommand(writeCmd())
	rootCmd.AddCommand(eraseCmd())
	rootCmd.AddCommand(chipEraseCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(srCmd())
	rootCmd.AddCommand(regCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
