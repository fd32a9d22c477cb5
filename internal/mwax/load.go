package mwax

import (
	"fmt"
	"os"
)

// LoadFringes parses the fringes product filename at path and decodes the
// payload into a set.
func LoadFringes(path string) (*FringeSet, error) {
	meta, err := ParseFringeFilename(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	set, err := DecodeFringes(f, meta)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return set, nil
}

// LoadAutos parses the autos product filename at path and decodes the
// payload into a set.
func LoadAutos(path string) (*AutoSet, error) {
	meta, err := ParseAutosFilename(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	set, err := DecodeAutos(f, meta)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return set, nil
}

// LoadPacketStats parses the packet stats product filename at path and
// decodes the payload into a set.
func LoadPacketStats(path string) (*PacketStatsSet, error) {
	meta, err := ParsePacketStatsFilename(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	set, err := DecodePacketStats(f, meta)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return set, nil
}
