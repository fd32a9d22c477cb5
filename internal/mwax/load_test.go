package mwax

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFringes(t *testing.T) {
	var buf bytes.Buffer
	writeRecords(t, &buf,
		[3]float32{199.04, -30, 10},
		[3]float32{199.06, 0, 20},
	)
	path := filepath.Join(t.TempDir(), "1367412896_fringes_2chans_1T_ch169.dat")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadFringes(path)
	if err != nil {
		t.Fatalf("LoadFringes() error = %v", err)
	}
	if set.Meta.ObsID != "1367412896" || set.Meta.FineChans != 2 || set.Meta.Tiles != 1 {
		t.Errorf("Meta = %+v", set.Meta)
	}
	if set.Records() != 2 {
		t.Errorf("Records() = %d, want 2", set.Records())
	}
	if set.Freqs[1] != float64(float32(199.06)) {
		t.Errorf("Freqs[1] = %v", set.Freqs[1])
	}
}

func TestLoadFringesRejectsForeignName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1367412896_notes.dat")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFringes(path); err == nil {
		t.Fatal("LoadFringes() accepted a foreign filename")
	}
}

func TestLoadPacketStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packetstats_1358022568_2T_ch137_mwax10.dat")
	if err := os.WriteFile(path, []byte{8, 0, 50, 8, 0, 0, 1, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadPacketStats(path)
	if err != nil {
		t.Fatalf("LoadPacketStats() error = %v", err)
	}
	want := []uint16{8, 2098, 0, 1}
	for i, lost := range set.Lost {
		if lost != want[i] {
			t.Errorf("Lost[%d] = %d, want %d", i, lost, want[i])
		}
	}
}
