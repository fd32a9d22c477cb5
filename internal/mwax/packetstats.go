package mwax

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PacketStatsSet is the decoded contents of a packet stats product file:
// one lost packet counter per RF input.
type PacketStatsSet struct {
	Meta PacketStatsFileMeta
	Lost []uint16 // indexed by RF input, two inputs per tile
}

// DecodePacketStats reads the payload of a packet stats product file from r.
// The payload is a fixed size array of little-endian uint16 counters, so
// unlike the record products a short file is an error here.
func DecodePacketStats(r io.Reader, meta PacketStatsFileMeta) (*PacketStatsSet, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}

	want := int(meta.ExpectedSize())
	if len(buf) != want {
		return nil, fmt.Errorf("payload is %d bytes, expected %d (%d inputs of %d bytes)",
			len(buf), want, meta.Inputs(), LossEntrySize)
	}

	set := &PacketStatsSet{
		Meta: meta,
		Lost: make([]uint16, meta.Inputs()),
	}
	for i := range set.Lost {
		set.Lost[i] = binary.LittleEndian.Uint16(buf[i*LossEntrySize:])
	}
	return set, nil
}

// Rejected returns the inputs with a non zero lost packet count, preserving
// input order.
func (s *PacketStatsSet) Rejected() []int {
	var inputs []int
	for i, lost := range s.Lost {
		if lost > 0 {
			inputs = append(inputs, i)
		}
	}
	return inputs
}
