package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwatelescope/mwax-plot/internal/subfile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// parseCLI runs NewConfigFromCLI against a fresh flag set so that the tests
// can invoke it repeatedly without tripping over duplicate registrations.
func parseCLI(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)

	oldArgs := os.Args
	os.Args = append([]string{"packetstats"}, args...)
	t.Cleanup(func() { os.Args = oldArgs })

	return NewConfigFromCLI()
}

// buildSubfile lays out a synthetic subfile: the PSRDADA header text inside
// a 4096 byte block, then the packet map at HeaderSize+mapStart.
func buildSubfile(t *testing.T, mapStart, ninputs int, packetMap []byte) []byte {
	t.Helper()

	header := fmt.Sprintf("HDR_SIZE 4096\nSUBOBS_ID 1419789248\nNINPUTS %d\nCOARSE_CHANNEL 91\nIDX_PACKET_MAP %d+%d\n",
		ninputs, mapStart, len(packetMap))
	buf := make([]byte, subfile.HeaderSize+mapStart+len(packetMap))
	copy(buf, header)
	copy(buf[subfile.HeaderSize+mapStart:], packetMap)
	return buf
}

func TestNewConfigFromCLI(t *testing.T) {
	config, err := parseCLI(t, "-o", "/data/stats", "-hostname", "mwax01", "a.sub", "b.sub")
	if err != nil {
		t.Fatalf("Failed to build configuration: %v", err)
	}
	if config.OutDir != "/data/stats" || config.Hostname != "mwax01" {
		t.Errorf("Expected the flags to carry through, got %+v", config)
	}
	if len(config.Subfiles) != 2 || config.Subfiles[0] != "a.sub" {
		t.Errorf("Expected two subfile arguments, got %v", config.Subfiles)
	}
}

func TestNewConfigFromCLIErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no subfiles", nil},
		{"empty hostname", []string{"-hostname", "", "a.sub"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseCLI(t, tt.args...); err == nil {
				t.Error("Expected a configuration error")
			}
		})
	}
}

func TestRunOutputDirErrors(t *testing.T) {
	dir := t.TempDir()

	filePath := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	tests := []struct {
		name    string
		outDir  string
		errPart string
	}{
		{"missing directory", filepath.Join(dir, "missing"), "output directory"},
		{"file as directory", filePath, "not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{Subfiles: []string{"a.sub"}, OutDir: tt.outDir, Hostname: "mwax01"}
			err := Run(context.Background(), config, testLogger())
			if err == nil {
				t.Fatal("Expected an output directory error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error to mention %q, got: %v", tt.errPart, err)
			}
		})
	}
}

func TestRunMissingSubfile(t *testing.T) {
	dir := t.TempDir()

	config := &Config{Subfiles: []string{filepath.Join(dir, "gone.sub")}, OutDir: dir, Hostname: "mwax01"}
	if err := Run(context.Background(), config, testLogger()); err == nil {
		t.Error("Expected an error for a missing subfile")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()

	packetMap := []byte{0xFF, 0xFF, 0x00, 0xFE}
	subfilePath := filepath.Join(dir, "1419789248_1419789256_91.sub")
	if err := os.WriteFile(subfilePath, buildSubfile(t, 64, 2, packetMap), 0o644); err != nil {
		t.Fatalf("Failed to write test subfile: %v", err)
	}

	config := &Config{Subfiles: []string{subfilePath}, OutDir: dir, Hostname: "mwax01"}
	if err := Run(context.Background(), config, testLogger()); err != nil {
		t.Fatalf("Failed to process subfile: %v", err)
	}

	payload, err := os.ReadFile(filepath.Join(dir, "packetstats_1419789248_1T_ch91_mwax01.dat"))
	if err != nil {
		t.Fatalf("Failed to read written product: %v", err)
	}
	if want := []byte{0, 0, 9, 0}; string(payload) != string(want) {
		t.Errorf("Expected payload %v, got %v", want, payload)
	}
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := &Config{Subfiles: []string{filepath.Join(dir, "a.sub")}, OutDir: dir, Hostname: "mwax01"}
	if err := Run(ctx, config, testLogger()); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}
