package mwax

import (
	"fmt"
	"io"
)

// PowerPair holds the XX and YY autocorrelation powers of one fine channel,
// in dB.
type PowerPair struct {
	XX float64
	YY float64
}

// AutoSet is the decoded contents of an autos product file: a dense antenna
// by fine channel grid of power pairs plus the fine channel frequency table.
type AutoSet struct {
	Meta AutosFileMeta

	// Freqs holds the fine channel centre frequencies in MHz, filled from
	// antenna 0 only.
	Freqs []float64

	powers  []PowerPair // antenna major, Tiles*FineChans entries
	records int
}

// NewAutoSet returns an all zero set sized by meta.
func NewAutoSet(meta AutosFileMeta) *AutoSet {
	return &AutoSet{
		Meta:   meta,
		Freqs:  make([]float64, meta.FineChans),
		powers: make([]PowerPair, meta.Tiles*meta.FineChans),
	}
}

// DecodeAutos streams the payload of an autos product file from r into a
// set sized by meta, with the same framing rules as DecodeFringes.
func DecodeAutos(r io.Reader, meta AutosFileMeta) (*AutoSet, error) {
	set := NewAutoSet(meta)

	n, err := decodeRecords(r, meta.Tiles, meta.FineChans, func(ant, fc int, rec record) {
		set.powers[ant*meta.FineChans+fc] = PowerPair{XX: float64(rec.A), YY: float64(rec.B)}
		if ant == 0 {
			set.Freqs[fc] = float64(rec.FreqMHz)
		}
	})
	if err != nil {
		return nil, err
	}

	set.records = n
	return set, nil
}

// Records returns the number of records decoded from the payload, which is
// Tiles*FineChans for a complete file.
func (s *AutoSet) Records() int {
	return s.records
}

// Antenna returns the per channel power pairs of antenna ant as a view
// into the set.
func (s *AutoSet) Antenna(ant int) ([]PowerPair, error) {
	if ant < 0 || ant >= s.Meta.Tiles {
		return nil, fmt.Errorf("antenna %d out of range [0, %d)", ant, s.Meta.Tiles)
	}

	start := ant * s.Meta.FineChans
	return s.powers[start : start+s.Meta.FineChans], nil
}
