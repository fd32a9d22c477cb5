package mwax

import (
	"strings"
	"testing"
)

func TestDetectProduct(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    Product
		wantErr bool
	}{
		{"fringes", "1319371344_fringes_128chans_128T_ch169.dat", ProductFringes, false},
		{"autos", "1319371344_autos_128chans_128T.dat", ProductAutos, false},
		{"packetstats", "packetstats_1419789248_120T_ch91_mwax01.dat", ProductPacketStats, false},
		{"full path", "/data/obs/1319371344_fringes_128chans_128T_ch169.dat", ProductFringes, false},
		{"wrong extension", "1319371344_fringes_128chans_128T_ch169.bin", "", true},
		{"unknown template", "1319371344_gains_128chans_128T.dat", "", true},
		{"no segments", "readme.dat", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectProduct(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected an error for %q, got product %q", tt.path, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to detect product for %q: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Expected product %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseFringeFilename(t *testing.T) {
	tests := []struct {
		name string
		path string
		want FringeFileMeta
	}{
		{
			name: "full array",
			path: "1319371344_fringes_128chans_128T_ch169.dat",
			want: FringeFileMeta{ObsID: "1319371344", FineChans: 128, Tiles: 128, ReceiverChan: 169},
		},
		{
			name: "narrow counts",
			path: "1419789248_fringes_4chans_8T_ch91.dat",
			want: FringeFileMeta{ObsID: "1419789248", FineChans: 4, Tiles: 8, ReceiverChan: 91},
		},
		{
			name: "four digit channel count",
			path: "1319371344_fringes_3072chans_16T_ch7.dat",
			want: FringeFileMeta{ObsID: "1319371344", FineChans: 3072, Tiles: 16, ReceiverChan: 7},
		},
		{
			name: "path is stripped to base name",
			path: "/vulcan/fringes/1319371344_fringes_128chans_128T_ch169.dat",
			want: FringeFileMeta{ObsID: "1319371344", FineChans: 128, Tiles: 128, ReceiverChan: 169},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFringeFilename(tt.path)
			if err != nil {
				t.Fatalf("Failed to parse %q: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseFringeFilenameErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		errPart string
	}{
		{"missing extension", "1319371344_fringes_128chans_128T_ch169", ".dat"},
		{"too few segments", "1319371344_fringes_128chans_128T.dat", "segments"},
		{"too many segments", "1319371344_fringes_128chans_128T_ch169_extra.dat", "segments"},
		{"non numeric obs id", "obsid_fringes_128chans_128T_ch169.dat", "observation ID"},
		{"wrong product", "1319371344_autos_128chans_128T_ch169.dat", "product"},
		{"missing chans suffix", "1319371344_fringes_128_128T_ch169.dat", "fine channel count"},
		{"non numeric chans", "1319371344_fringes_xxchans_128T_ch169.dat", "fine channel count"},
		{"zero chans", "1319371344_fringes_0chans_128T_ch169.dat", "at least 1"},
		{"missing tiles suffix", "1319371344_fringes_128chans_128_ch169.dat", "tile count"},
		{"zero tiles", "1319371344_fringes_128chans_0T_ch169.dat", "at least 1"},
		{"missing channel prefix", "1319371344_fringes_128chans_128T_169.dat", "receiver channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFringeFilename(tt.path)
			if err == nil {
				t.Fatalf("Expected an error for %q", tt.path)
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error to mention %q, got: %v", tt.errPart, err)
			}
		})
	}
}

func TestParseAutosFilename(t *testing.T) {
	got, err := ParseAutosFilename("1319371344_autos_128chans_128T.dat")
	if err != nil {
		t.Fatalf("Failed to parse autos filename: %v", err)
	}

	want := AutosFileMeta{ObsID: "1319371344", FineChans: 128, Tiles: 128}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if _, err = ParseAutosFilename("1319371344_autos_128chans_128T_ch169.dat"); err == nil {
		t.Error("Expected an error for a fringes shaped name")
	}
}

func TestParsePacketStatsFilename(t *testing.T) {
	got, err := ParsePacketStatsFilename("packetstats_1419789248_120T_ch91_mwax01.dat")
	if err != nil {
		t.Fatalf("Failed to parse packetstats filename: %v", err)
	}

	want := PacketStatsFileMeta{SubobsID: "1419789248", Tiles: 120, CoarseChan: 91, Hostname: "mwax01"}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if got.Inputs() != 240 {
		t.Errorf("Expected 240 inputs, got %d", got.Inputs())
	}

	if _, err = ParsePacketStatsFilename("packetstats_1419789248_120T_ch91.dat"); err == nil {
		t.Error("Expected an error when the hostname segment is missing")
	}
}

func TestFringeFileMetaDerived(t *testing.T) {
	tests := []struct {
		tiles         int
		wantBaselines int
	}{
		{1, 1},
		{2, 3},
		{8, 36},
		{128, 8256},
	}

	for _, tt := range tests {
		m := FringeFileMeta{FineChans: 4, Tiles: tt.tiles}
		if got := m.Baselines(); got != tt.wantBaselines {
			t.Errorf("Expected %d baselines for %d tiles, got %d", tt.wantBaselines, tt.tiles, got)
		}
		wantSize := int64(tt.wantBaselines) * 4 * RecordSize
		if got := m.ExpectedSize(); got != wantSize {
			t.Errorf("Expected size %d for %d tiles, got %d", wantSize, tt.tiles, got)
		}
	}
}
