package mwax

import (
	"fmt"
	"io"
)

// PhasePair holds the X and Y polarisation phases of one fine channel,
// in degrees.
type PhasePair struct {
	X float64
	Y float64
}

// FringeSet is the decoded contents of a fringes product file: a dense
// baseline by fine channel grid of phase pairs plus the fine channel
// frequency table. Cells beyond the decoded record count stay zero, so a
// file cut short mid observation still plots.
type FringeSet struct {
	Meta FringeFileMeta

	// Freqs holds the fine channel centre frequencies in MHz. Every
	// baseline carries the same frequency column on disk, so the table is
	// filled from baseline 0 only.
	Freqs []float64

	phases  []PhasePair // baseline major, Baselines*FineChans entries
	records int
}

// NewFringeSet returns an all zero set sized by meta.
func NewFringeSet(meta FringeFileMeta) *FringeSet {
	return &FringeSet{
		Meta:   meta,
		Freqs:  make([]float64, meta.FineChans),
		phases: make([]PhasePair, meta.Baselines()*meta.FineChans),
	}
}

// DecodeFringes streams the payload of a fringes product file from r into a
// set sized by meta. Decoding is strict about framing: a trailing partial
// record or a payload larger than the grid is an error. A payload that stops
// early at a record boundary is not, and leaves the rest of the grid zero.
func DecodeFringes(r io.Reader, meta FringeFileMeta) (*FringeSet, error) {
	set := NewFringeSet(meta)

	n, err := decodeRecords(r, meta.Baselines(), meta.FineChans, func(bl, fc int, rec record) {
		set.phases[bl*meta.FineChans+fc] = PhasePair{X: float64(rec.A), Y: float64(rec.B)}
		if bl == 0 {
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
// Baselines*FineChans for a complete file.
func (s *FringeSet) Records() int {
	return s.records
}

// Baseline returns the per channel phase pairs of baseline bl as a view
// into the set.
func (s *FringeSet) Baseline(bl int) ([]PhasePair, error) {
	if bl < 0 || bl >= s.Meta.Baselines() {
		return nil, fmt.Errorf("baseline %d out of range [0, %d)", bl, s.Meta.Baselines())
	}

	start := bl * s.Meta.FineChans
	return s.phases[start : start+s.Meta.FineChans], nil
}
