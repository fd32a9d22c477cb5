package app

import (
	"strings"
	"testing"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
)

func TestOutputName(t *testing.T) {
	config := &Config{Format: FormatPNG}
	if got := outputName(config, "1367412896_fringes_128chans_8T_ch169_bl3"); got != "1367412896_fringes_128chans_8T_ch169_bl3.png" {
		t.Errorf("outputName() = %q", got)
	}

	config = &Config{Format: FormatPDF, OutputStem: "out/custom"}
	if got := outputName(config, "ignored"); got != "out/custom.pdf" {
		t.Errorf("outputName() = %q", got)
	}
}

func TestInputStem(t *testing.T) {
	got := inputStem("/tmp/stats/1367412896_fringes_128chans_8T_ch169.dat")
	if got != "1367412896_fringes_128chans_8T_ch169" {
		t.Errorf("inputStem() = %q", got)
	}
}

func TestFringeReportLines(t *testing.T) {
	freqs := []float64{199.04, 199.06, 199.08}
	phases := []mwax.PhasePair{{X: -30, Y: 10}, {X: 0, Y: 10}, {X: 30, Y: 10}}

	lines := reportLines("deg", fringeReports(freqs, phases))
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "X: mean 0.00 deg") {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if !strings.Contains(lines[0], "delay") {
		t.Errorf("lines[0] = %q, want a delay estimate", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Y: mean 10.00 deg") {
		t.Errorf("lines[1] = %q", lines[1])
	}
}

func TestAutoReportLinesHaveNoDelay(t *testing.T) {
	powers := []mwax.PowerPair{{XX: 40, YY: 42}, {XX: 44, YY: 42}}

	lines := reportLines("dB", autoReports(powers))
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	for _, line := range lines {
		if strings.Contains(line, "delay") {
			t.Errorf("line %q carries a delay estimate", line)
		}
	}
}
