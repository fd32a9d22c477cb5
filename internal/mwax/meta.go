// Package mwax models the statistics products written by the MWAX
// correlator tooling: fringe phases, autocorrelation powers and packet loss
// counts. It parses the product filename templates and stream-decodes the
// binary payloads into dense in-memory sets.
package mwax

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Product identifies one of the stats file kinds by its filename template.
type Product string

const (
	ProductFringes     Product = "fringes"
	ProductAutos       Product = "autos"
	ProductPacketStats Product = "packetstats"
)

const (
	// RecordSize is the on-disk size of one fringe or autos record:
	// three little-endian float32 values.
	RecordSize = 12

	// LossEntrySize is the on-disk size of one packet loss counter,
	// a little-endian uint16.
	LossEntrySize = 2

	productExt = ".dat"
)

// FringeFileMeta holds the parameters encoded in a fringes product name,
// e.g. 1319371344_fringes_128chans_128T_ch169.dat.
type FringeFileMeta struct {
	ObsID        string // GPS second observation ID
	FineChans    int    // fine channels per coarse channel
	Tiles        int    // antennas in the array
	ReceiverChan int    // receiver coarse channel number
}

// Baselines returns the number of correlation products for the array,
// counting each tile paired with itself and every other tile once.
func (m FringeFileMeta) Baselines() int {
	return m.Tiles * (m.Tiles + 1) / 2
}

// ExpectedSize returns the payload size in bytes of a complete product file.
func (m FringeFileMeta) ExpectedSize() int64 {
	return int64(m.Baselines()) * int64(m.FineChans) * RecordSize
}

// AutosFileMeta holds the parameters encoded in an autos product name,
// e.g. 1319371344_autos_128chans_128T.dat.
type AutosFileMeta struct {
	ObsID     string
	FineChans int
	Tiles     int
}

// ExpectedSize returns the payload size in bytes of a complete product file.
// Autos files carry one row per antenna rather than per baseline.
func (m AutosFileMeta) ExpectedSize() int64 {
	return int64(m.Tiles) * int64(m.FineChans) * RecordSize
}

// PacketStatsFileMeta holds the parameters encoded in a packet stats product
// name, e.g. packetstats_1419789248_120T_ch91_mwax01.dat.
type PacketStatsFileMeta struct {
	SubobsID   string // GPS second of the 8 second subobservation
	Tiles      int
	CoarseChan int
	Hostname   string // host that captured the subfile
}

// Inputs returns the number of RF inputs, two polarisations per tile.
func (m PacketStatsFileMeta) Inputs() int {
	return 2 * m.Tiles
}

// ExpectedSize returns the payload size in bytes of a complete product file.
func (m PacketStatsFileMeta) ExpectedSize() int64 {
	return int64(m.Inputs()) * LossEntrySize
}

// DetectProduct determines which product template the base name of path
// follows. It does not validate the full template; the Parse functions do.
func DetectProduct(path string) (Product, error) {
	base := filepath.Base(path)
	stem, ok := strings.CutSuffix(base, productExt)
	if !ok {
		return "", fmt.Errorf("%q: expected a %s file", base, productExt)
	}

	parts := strings.Split(stem, "_")
	switch {
	case parts[0] == string(ProductPacketStats):
		return ProductPacketStats, nil
	case len(parts) > 1 && parts[1] == string(ProductFringes):
		return ProductFringes, nil
	case len(parts) > 1 && parts[1] == string(ProductAutos):
		return ProductAutos, nil
	}
	return "", fmt.Errorf("%q does not match any stats product template", base)
}

// ParseFringeFilename extracts the observation parameters from a fringes
// product path. The base name must follow
// <obs_id>_fringes_<n>chans_<n>T_ch<n>.dat exactly.
func ParseFringeFilename(path string) (FringeFileMeta, error) {
	base := filepath.Base(path)

	parts, err := templateParts(base, 5)
	if err != nil {
		return FringeFileMeta{}, fmt.Errorf("fringes filename %q: %w", base, err)
	}

	var m FringeFileMeta
	steps := []struct {
		what string
		fn   func() error
	}{
		{"observation ID", func() (err error) { m.ObsID, err = parseID(parts[0]); return }},
		{"product", func() error { return expectSegment(parts[1], string(ProductFringes)) }},
		{"fine channel count", func() (err error) { m.FineChans, err = parseCount(parts[2], "", "chans"); return }},
		{"tile count", func() (err error) { m.Tiles, err = parseCount(parts[3], "", "T"); return }},
		{"receiver channel", func() (err error) { m.ReceiverChan, err = parseCount(parts[4], "ch", ""); return }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return FringeFileMeta{}, fmt.Errorf("fringes filename %q: %s: %w", base, s.what, err)
		}
	}
	return m, nil
}

// ParseAutosFilename extracts the observation parameters from an autos
// product path. The base name must follow <obs_id>_autos_<n>chans_<n>T.dat
// exactly.
func ParseAutosFilename(path string) (AutosFileMeta, error) {
	base := filepath.Base(path)

	parts, err := templateParts(base, 4)
	if err != nil {
		return AutosFileMeta{}, fmt.Errorf("autos filename %q: %w", base, err)
	}

	var m AutosFileMeta
	steps := []struct {
		what string
		fn   func() error
	}{
		{"observation ID", func() (err error) { m.ObsID, err = parseID(parts[0]); return }},
		{"product", func() error { return expectSegment(parts[1], string(ProductAutos)) }},
		{"fine channel count", func() (err error) { m.FineChans, err = parseCount(parts[2], "", "chans"); return }},
		{"tile count", func() (err error) { m.Tiles, err = parseCount(parts[3], "", "T"); return }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return AutosFileMeta{}, fmt.Errorf("autos filename %q: %s: %w", base, s.what, err)
		}
	}
	return m, nil
}

// ParsePacketStatsFilename extracts the capture parameters from a packet
// stats product path. The base name must follow
// packetstats_<subobs_id>_<n>T_ch<n>_<hostname>.dat exactly.
func ParsePacketStatsFilename(path string) (PacketStatsFileMeta, error) {
	base := filepath.Base(path)

	parts, err := templateParts(base, 5)
	if err != nil {
		return PacketStatsFileMeta{}, fmt.Errorf("packetstats filename %q: %w", base, err)
	}

	var m PacketStatsFileMeta
	steps := []struct {
		what string
		fn   func() error
	}{
		{"product", func() error { return expectSegment(parts[0], string(ProductPacketStats)) }},
		{"subobservation ID", func() (err error) { m.SubobsID, err = parseID(parts[1]); return }},
		{"tile count", func() (err error) { m.Tiles, err = parseCount(parts[2], "", "T"); return }},
		{"coarse channel", func() (err error) { m.CoarseChan, err = parseCount(parts[3], "ch", ""); return }},
		{"hostname", func() (err error) { m.Hostname, err = parseHostname(parts[4]); return }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return PacketStatsFileMeta{}, fmt.Errorf("packetstats filename %q: %s: %w", base, s.what, err)
		}
	}
	return m, nil
}

// templateParts strips the product extension and splits the remaining stem
// into underscore separated segments, which must number exactly want.
func templateParts(base string, want int) ([]string, error) {
	stem, ok := strings.CutSuffix(base, productExt)
	if !ok {
		return nil, fmt.Errorf("expected a %s file", productExt)
	}

	parts := strings.Split(stem, "_")
	if len(parts) != want {
		return nil, fmt.Errorf("expected %d underscore separated segments, got %d", want, len(parts))
	}
	return parts, nil
}

func expectSegment(segment, want string) error {
	if segment != want {
		return fmt.Errorf("segment %q: expected %q", segment, want)
	}
	return nil
}

func parseID(segment string) (string, error) {
	if segment == "" || !isDigits(segment) {
		return "", fmt.Errorf("segment %q: expected a GPS second timestamp", segment)
	}
	return segment, nil
}

// parseCount parses a numeric segment of the form <prefix><n><suffix>.
// Tile and channel counts must be at least one; a plain channel number may
// be zero.
func parseCount(segment, prefix, suffix string) (int, error) {
	digits, ok := strings.CutPrefix(segment, prefix)
	if ok {
		digits, ok = strings.CutSuffix(digits, suffix)
	}
	if !ok || digits == "" || !isDigits(digits) {
		return 0, fmt.Errorf("segment %q: expected %s<n>%s", segment, prefix, suffix)
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("segment %q: %w", segment, err)
	}
	if suffix != "" && n < 1 {
		return 0, fmt.Errorf("segment %q: count must be at least 1", segment)
	}
	return n, nil
}

func parseHostname(segment string) (string, error) {
	if segment == "" {
		return "", fmt.Errorf("hostname segment is empty")
	}
	return segment, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
