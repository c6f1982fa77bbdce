package main

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/physic"

	gobotspi "gobot.io/x/gobot/v2/drivers/spi"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/gentam/spiflash"
	"github.com/gentam/spiflash/config"
	"github.com/gentam/spiflash/transport/gobothal"
	"github.com/gentam/spiflash/transport/periphhal"
)

var (
	clockHz uint
	busName string
)

// openDriver loads the configured profile and opens the requested
// transport, returning a ready-to-use Driver alongside the profile it was
// built from (subcommands that need to plan erases, like write --erase,
// need the opcode table to find the smallest supported granularity; info
// matches the discovered JEDEC ID against the profile). Without --profile
// the driver falls back to the standard command set and conventional
// geometry.
func openDriver() (*spiflash.Driver, *config.Profile, error) {
	prof := defaultProfile()
	if profilePath != "" {
		p, err := config.LoadFile(profilePath)
		if err != nil {
			return nil, nil, err
		}
		prof = p
	}
	cfg, err := prof.ChipConfig()
	if err != nil {
		return nil, nil, err
	}
	cmdTbl := prof.CommandTable()

	var hal spiflash.HAL
	switch transport {
	case "ftdi":
		clock := physic.Frequency(clockHz) * physic.Hertz
		if clockHz == 0 {
			clock = 30 * physic.MegaHertz
		}
		h, err := periphhal.OpenFT2232H(clock)
		if err != nil {
			return nil, nil, fmt.Errorf("open ftdi transport: %w", err)
		}
		hal = h
	case "gobot":
		adaptor := raspi.NewAdaptor()
		driver := gobotspi.NewDriver(adaptor, busName)
		driver.SetMode(0)
		if err := driver.Start(); err != nil {
			return nil, nil, fmt.Errorf("start gobot spi bus: %w", err)
		}
		hal = gobothal.New(driver)
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (want ftdi or gobot)", transport)
	}

	slog.Debug("opened transport", "transport", transport, "profile", prof.Name)
	return spiflash.New(cfg, &cmdTbl, hal), prof, nil
}

// defaultProfile describes a generic SPI NOR part: the standard command
// set, 256-byte pages, 3-byte big-endian addressing, and datasheet-typical
// nominal timings. Size stays zero since the capacity is unknown without a
// profile; the engine never consults it.
func defaultProfile() *config.Profile {
	p := &config.Profile{
		Name:       "standard",
		PageSize:   256,
		AddrSize:   3,
		AddrEndian: "big",
	}
	p.TimingMs.SRWrite = 15
	p.TimingMs.PageProgram = 3
	p.TimingMs.BlockErase4 = 400
	p.TimingMs.BlockErase32 = 1600
	p.TimingMs.BlockErase64 = 2000
	p.TimingMs.ChipErase = 25000
	return p
}
