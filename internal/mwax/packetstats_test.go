package mwax

import (
	"bytes"
	"reflect"
	"testing"
)

func TestDecodePacketStats(t *testing.T) {
	meta := PacketStatsFileMeta{SubobsID: "1419789248", Tiles: 2, CoarseChan: 91, Hostname: "mwax01"}

	// Counters 8 and 2098 encode as [8, 0] and [50, 8] little-endian.
	payload := []byte{8, 0, 50, 8, 0, 0, 1, 0}

	set, err := DecodePacketStats(bytes.NewReader(payload), meta)
	if err != nil {
		t.Fatalf("Failed to decode packet stats: %v", err)
	}

	want := []uint16{8, 2098, 0, 1}
	if !reflect.DeepEqual(set.Lost, want) {
		t.Errorf("Expected counters %v, got %v", want, set.Lost)
	}

	if got := set.Rejected(); !reflect.DeepEqual(got, []int{0, 1, 3}) {
		t.Errorf("Expected rejected inputs [0 1 3], got %v", got)
	}
}

func TestDecodePacketStatsSize(t *testing.T) {
	meta := PacketStatsFileMeta{SubobsID: "1419789248", Tiles: 2}

	tests := []struct {
		name    string
		payload []byte
	}{
		{"short", make([]byte, 6)},
		{"long", make([]byte, 10)},
		{"odd", make([]byte, 7)},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePacketStats(bytes.NewReader(tt.payload), meta); err == nil {
				t.Errorf("Expected a size error for a %d byte payload", len(tt.payload))
			}
		})
	}
}
