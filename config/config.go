// Package config loads SPI NOR flash chip profiles from YAML, replacing
// the hardcoded per-chip parameter tables a driver would otherwise need to
// carry in source.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gentam/spiflash"
)

// Profile is one chip's on-disk description: its JEDEC ID, a human name,
// geometry, and nominal operation timings. Opcodes default to the
// standard SPI-NOR command set (spiflash.StandardCommandTable) and only
// need overriding for a nonstandard part.
type Profile struct {
	Name     string `yaml:"name"`
	JedecID  string `yaml:"jedec_id"` // hex, e.g. "ef4018"
	Size     uint32 `yaml:"size"`
	PageSize uint32 `yaml:"page_size"`

	AddrSize      uint8  `yaml:"addr_size"`
	AddrDummySize uint8  `yaml:"addr_dummy_size"`
	AddrEndian    string `yaml:"addr_endian"` // "big" or "little"

	TimingMs struct {
		SRWrite      uint32 `yaml:"sr_write"`
		PageProgram  uint32 `yaml:"page_program"`
		BlockErase4  uint32 `yaml:"block_erase_4k"`
		BlockErase8  uint32 `yaml:"block_erase_8k"`
		BlockErase16 uint32 `yaml:"block_erase_16k"`
		BlockErase32 uint32 `yaml:"block_erase_32k"`
		BlockErase64 uint32 `yaml:"block_erase_64k"`
		ChipErase    uint32 `yaml:"chip_erase"`
	} `yaml:"timing_ms"`

	Opcodes *OpcodeOverrides `yaml:"opcodes,omitempty"`
}

// OpcodeOverrides replaces individual entries of the standard command
// table. A nil field (or a nil Opcodes block entirely) keeps the standard
// opcode.
type OpcodeOverrides struct {
	WriteDisable *uint8 `yaml:"write_disable,omitempty"`
	WriteEnable  *uint8 `yaml:"write_enable,omitempty"`
	PageProgram  *uint8 `yaml:"page_program,omitempty"`
	ReadData     *uint8 `yaml:"read_data,omitempty"`
	ReadDataFast *uint8 `yaml:"read_data_fast,omitempty"`
	WriteSR      *uint8 `yaml:"write_sr,omitempty"`
	ReadSR       *uint8 `yaml:"read_sr,omitempty"`
	BlockErase4  *uint8 `yaml:"block_erase_4k,omitempty"`
	BlockErase8  *uint8 `yaml:"block_erase_8k,omitempty"`
	BlockErase16 *uint8 `yaml:"block_erase_16k,omitempty"`
	BlockErase32 *uint8 `yaml:"block_erase_32k,omitempty"`
	BlockErase64 *uint8 `yaml:"block_erase_64k,omitempty"`
	ChipErase    *uint8 `yaml:"chip_erase,omitempty"`
	DeviceID     *uint8 `yaml:"device_id,omitempty"`
	JedecID      *uint8 `yaml:"jedec_id,omitempty"`
	SRBusyBit    *uint8 `yaml:"sr_busy_bit,omitempty"`
}

// Load parses a chip profile document from raw YAML bytes.
func Load(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse profile: %w", err)
	}
	if p.AddrSize == 0 {
		p.AddrSize = 3
	}
	if p.AddrEndian == "" {
		p.AddrEndian = "big"
	}
	return &p, nil
}

// LoadFile reads and parses a chip profile from path.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profile %s: %w", path, err)
	}
	return Load(data)
}

// ChipConfig builds a spiflash.ChipConfig from the profile.
func (p *Profile) ChipConfig() (*spiflash.ChipConfig, error) {
	endian := spiflash.BigEndian
	switch p.AddrEndian {
	case "big", "":
		endian = spiflash.BigEndian
	case "little":
		endian = spiflash.LittleEndian
	default:
		return nil, fmt.Errorf("config: unknown addr_endian %q", p.AddrEndian)
	}

	return &spiflash.ChipConfig{
		Size:           p.Size,
		PageSize:       p.PageSize,
		AddrSize:       p.AddrSize,
		AddrDummySize:  p.AddrDummySize,
		AddrEndian:     endian,
		SRWriteMs:      p.TimingMs.SRWrite,
		PageProgramMs:  p.TimingMs.PageProgram,
		BlockErase4Ms:  p.TimingMs.BlockErase4,
		BlockErase8Ms:  p.TimingMs.BlockErase8,
		BlockErase16Ms: p.TimingMs.BlockErase16,
		BlockErase32Ms: p.TimingMs.BlockErase32,
		BlockErase64Ms: p.TimingMs.BlockErase64,
		ChipEraseMs:    p.TimingMs.ChipErase,
	}, nil
}

// CommandTable builds a spiflash.CommandTable from the profile, starting
// from the standard SPI-NOR opcode set and applying any overrides.
func (p *Profile) CommandTable() spiflash.CommandTable {
	cmd := spiflash.StandardCommandTable()
	o := p.Opcodes
	if o == nil {
		return cmd
	}

	apply := func(dst *uint8, src *uint8) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&cmd.WriteDisable, o.WriteDisable)
	apply(&cmd.WriteEnable, o.WriteEnable)
	apply(&cmd.PageProgram, o.PageProgram)
	apply(&cmd.ReadData, o.ReadData)
	apply(&cmd.ReadDataFast, o.ReadDataFast)
	apply(&cmd.WriteSR, o.WriteSR)
	apply(&cmd.ReadSR, o.ReadSR)
	apply(&cmd.BlockErase4, o.BlockErase4)
	apply(&cmd.BlockErase8, o.BlockErase8)
	apply(&cmd.BlockErase16, o.BlockErase16)
	apply(&cmd.BlockErase32, o.BlockErase32)
	apply(&cmd.BlockErase64, o.BlockErase64)
	apply(&cmd.ChipErase, o.ChipErase)
	apply(&cmd.DeviceID, o.DeviceID)
	apply(&cmd.JedecID, o.JedecID)
	apply(&cmd.SRBusyBit, o.SRBusyBit)
	return cmd
}

// Registry looks up profiles by JEDEC ID, for matching a chip discovered
// at runtime via Driver.ReadJEDECID against known datasheets.
type Registry struct {
	byID map[uint32]*Profile
}

// NewRegistry builds a Registry from a set of already-loaded profiles.
// Profiles with an unparseable or missing jedec_id are skipped.
func NewRegistry(profiles []*Profile) *Registry {
	r := &Registry{byID: make(map[uint32]*Profile, len(profiles))}
	for _, p := range profiles {
		id, err := parseJedecID(p.JedecID)
		if err != nil {
			continue
		}
		r.byID[id] = p
	}
	return r
}

// Lookup returns the profile registered for the given JEDEC ID, as
// returned by Driver.ReadJEDECID.
func (r *Registry) Lookup(jedecID uint32) (*Profile, bool) {
	p, ok := r.byID[jedecID]
	return p, ok
}

func parseJedecID(s string) (uint32, error) {
	var id uint32
	if _, err := fmt.Sscanf(s, "%06x", &id); err != nil {
		return 0, fmt.Errorf("config: bad jedec_id %q: %w", s, err)
	}
	return id, nil
}
