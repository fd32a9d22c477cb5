package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
	"github.com/mwatelescope/mwax-plot/internal/storage"
)

func TestReadOnlyMode(t *testing.T) {
	if readOnlyMode(&Config{ImportFiles: []string{"a.dat"}}) {
		t.Error("readOnlyMode() = true for an import invocation")
	}
	if !readOnlyMode(&Config{List: true}) {
		t.Error("readOnlyMode() = false for -list")
	}
	if !readOnlyMode(&Config{PlotID: 3}) {
		t.Error("readOnlyMode() = false for -plot")
	}
}

func TestOutputName(t *testing.T) {
	config := &Config{Format: FormatPDF, OutputStem: "out/archived"}
	if got := outputName(config, "ignored"); got != "out/archived.pdf" {
		t.Errorf("outputName() = %q", got)
	}
}

func TestImportStem(t *testing.T) {
	imp := &storage.Import{SourceFile: "1367412896_fringes_128chans_8T_ch169.dat"}
	if got := importStem(imp); got != "1367412896_fringes_128chans_8T_ch169" {
		t.Errorf("importStem() = %q", got)
	}
}

func TestArchiveSummary(t *testing.T) {
	imp := &storage.Import{
		SourceFile:  "1367412896_fringes_4chans_2T_ch169.dat",
		RecordCount: 12,
		ImportedAt:  time.Date(2023, 5, 2, 10, 30, 0, 0, time.UTC),
	}
	lines := archiveSummary(imp)
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1", len(lines))
	}
	if lines[0] != "12 records imported from 1367412896_fringes_4chans_2T_ch169.dat on 2023-05-02 10:30:00 UTC" {
		t.Errorf("lines[0] = %q", lines[0])
	}
}

func TestImportFile(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	for _, rec := range [][3]float32{
		{199.04, -30, 10},
		{199.06, 0, 20},
		{199.04, 45, -45},
		{199.06, 90, -90},
		{199.04, 5, -5},
		{199.06, 15, -15},
	} {
		if err := binary.Write(&buf, binary.LittleEndian, rec); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "1367412896_fringes_2chans_2T_ch169.dat")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	store := storage.NewSqliteStore(filepath.Join(dir, "archive.db"))
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	imp, err := importFile(context.Background(), store, path)
	if err != nil {
		t.Fatalf("importFile() error = %v", err)
	}
	if imp.ID == 0 {
		t.Error("importFile() left the import ID unset")
	}
	if imp.Product != mwax.ProductFringes {
		t.Errorf("Product = %s", imp.Product)
	}
	if imp.RecordCount != 6 {
		t.Errorf("RecordCount = %d, want 6", imp.RecordCount)
	}

	stored, err := store.Import(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if stored.SourceFile != "1367412896_fringes_2chans_2T_ch169.dat" {
		t.Errorf("SourceFile = %q", stored.SourceFile)
	}
	if got := stored.SeriesCount(); got != 3 {
		t.Errorf("SeriesCount() = %d, want 3", got)
	}
}
