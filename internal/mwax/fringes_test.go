package mwax

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

// writeRecords appends 12 byte records to buf, one per (freq, a, b) triple.
func writeRecords(t *testing.T, buf *bytes.Buffer, triples ...[3]float32) {
	t.Helper()
	for _, tr := range triples {
		if err := binary.Write(buf, binary.LittleEndian, tr); err != nil {
			t.Fatalf("Failed to write test record: %v", err)
		}
	}
}

func TestDecodeFringes(t *testing.T) {
	meta := FringeFileMeta{ObsID: "1319371344", FineChans: 3, Tiles: 2, ReceiverChan: 169}
	if meta.Baselines() != 3 {
		t.Fatalf("Expected 3 baselines for 2 tiles, got %d", meta.Baselines())
	}

	var buf bytes.Buffer
	// Baseline 0 carries the canonical frequency column. The later
	// baselines repeat the column on disk; give them different values to
	// prove the decoder ignores them.
	writeRecords(t, &buf,
		[3]float32{138.24, 10, -10},
		[3]float32{138.25, 20, -20},
		[3]float32{138.26, 30, -30},

		[3]float32{999, 40, -40},
		[3]float32{999, 50, -50},
		[3]float32{999, 60, -60},

		[3]float32{999, 70, -70},
		[3]float32{999, 80, -80},
		[3]float32{999, 90, -90},
	)

	set, err := DecodeFringes(&buf, meta)
	if err != nil {
		t.Fatalf("Failed to decode fringes: %v", err)
	}

	if set.Records() != 9 {
		t.Errorf("Expected 9 records decoded, got %d", set.Records())
	}

	wantFreqs := []float64{float64(float32(138.24)), float64(float32(138.25)), float64(float32(138.26))}
	for i, want := range wantFreqs {
		if set.Freqs[i] != want {
			t.Errorf("Expected frequency %v at channel %d, got %v", want, i, set.Freqs[i])
		}
	}

	phases, err := set.Baseline(2)
	if err != nil {
		t.Fatalf("Failed to read baseline 2: %v", err)
	}
	want := []PhasePair{{X: 70, Y: -70}, {X: 80, Y: -80}, {X: 90, Y: -90}}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("Expected phase pair %+v at channel %d, got %+v", want[i], i, phases[i])
		}
	}
}

func TestDecodeFringesEmptyPayload(t *testing.T) {
	meta := FringeFileMeta{ObsID: "1319371344", FineChans: 4, Tiles: 2}

	set, err := DecodeFringes(bytes.NewReader(nil), meta)
	if err != nil {
		t.Fatalf("Expected an empty payload to decode, got: %v", err)
	}

	if set.Records() != 0 {
		t.Errorf("Expected 0 records decoded, got %d", set.Records())
	}
	phases, err := set.Baseline(1)
	if err != nil {
		t.Fatalf("Failed to read baseline 1: %v", err)
	}
	for i, p := range phases {
		if p != (PhasePair{}) {
			t.Errorf("Expected zero phases at channel %d, got %+v", i, p)
		}
	}
}

func TestDecodeFringesRepeatable(t *testing.T) {
	meta := FringeFileMeta{ObsID: "1319371344", FineChans: 2, Tiles: 2}

	var buf bytes.Buffer
	writeRecords(t, &buf,
		[3]float32{138.24, 10, -10},
		[3]float32{138.25, 20, -20},
		[3]float32{999, 30, -30},
		[3]float32{999, 40, -40},
		[3]float32{999, 50, -50},
		[3]float32{999, 60, -60},
	)
	payload := buf.Bytes()

	first, err := DecodeFringes(bytes.NewReader(payload), meta)
	if err != nil {
		t.Fatalf("Failed to decode fringes: %v", err)
	}
	second, err := DecodeFringes(bytes.NewReader(payload), meta)
	if err != nil {
		t.Fatalf("Failed to decode fringes again: %v", err)
	}

	for i := range first.Freqs {
		if first.Freqs[i] != second.Freqs[i] {
			t.Errorf("Expected identical frequency at channel %d, got %v and %v", i, first.Freqs[i], second.Freqs[i])
		}
	}
	for bl := 0; bl < meta.Baselines(); bl++ {
		a, err := first.Baseline(bl)
		if err != nil {
			t.Fatalf("Failed to read baseline %d: %v", bl, err)
		}
		b, err := second.Baseline(bl)
		if err != nil {
			t.Fatalf("Failed to read baseline %d again: %v", bl, err)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("Expected identical pair at baseline %d channel %d, got %+v and %+v", bl, i, a[i], b[i])
			}
		}
	}
}

func TestDecodeFringesShortPayload(t *testing.T) {
	meta := FringeFileMeta{ObsID: "1319371344", FineChans: 2, Tiles: 2}

	var buf bytes.Buffer
	writeRecords(t, &buf,
		[3]float32{138.24, 10, -10},
		[3]float32{138.25, 20, -20},
		[3]float32{999, 30, -30},
	)

	set, err := DecodeFringes(&buf, meta)
	if err != nil {
		t.Fatalf("Failed to decode short payload: %v", err)
	}

	if set.Records() != 3 {
		t.Errorf("Expected 3 records decoded, got %d", set.Records())
	}

	phases, err := set.Baseline(1)
	if err != nil {
		t.Fatalf("Failed to read baseline 1: %v", err)
	}
	if phases[0] != (PhasePair{X: 30, Y: -30}) {
		t.Errorf("Expected decoded pair at channel 0, got %+v", phases[0])
	}
	if phases[1] != (PhasePair{}) {
		t.Errorf("Expected zero pair past the payload, got %+v", phases[1])
	}
}

func TestDecodeFringesPartialRecord(t *testing.T) {
	meta := FringeFileMeta{ObsID: "1319371344", FineChans: 2, Tiles: 2}

	var buf bytes.Buffer
	writeRecords(t, &buf, [3]float32{138.24, 10, -10})
	buf.Write([]byte{0x01, 0x02, 0x03, 0x04, 0x05})

	_, err := DecodeFringes(&buf, meta)
	if err == nil {
		t.Fatal("Expected an error for a trailing partial record")
	}
	if !strings.Contains(err.Error(), "partial record at byte offset 12") {
		t.Errorf("Expected the error to name the offending offset, got: %v", err)
	}
}

func TestDecodeFringesOverrun(t *testing.T) {
	meta := FringeFileMeta{ObsID: "1319371344", FineChans: 1, Tiles: 1}

	var buf bytes.Buffer
	writeRecords(t, &buf,
		[3]float32{138.24, 10, -10},
		[3]float32{138.24, 20, -20},
	)

	_, err := DecodeFringes(&buf, meta)
	if err == nil {
		t.Fatal("Expected an error for a payload larger than the grid")
	}
	if !strings.Contains(err.Error(), "too many records") {
		t.Errorf("Expected a too many records error, got: %v", err)
	}
}

func TestFringeSetBaselineRange(t *testing.T) {
	set := NewFringeSet(FringeFileMeta{FineChans: 2, Tiles: 2})

	for _, bl := range []int{-1, 3, 100} {
		if _, err := set.Baseline(bl); err == nil {
			t.Errorf("Expected an error for baseline %d", bl)
		}
	}
	if _, err := set.Baseline(2); err != nil {
		t.Errorf("Expected baseline 2 to be in range: %v", err)
	}
}
