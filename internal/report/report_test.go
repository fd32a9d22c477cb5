package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 10, 6))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestBuild(t *testing.T) {
	var buf bytes.Buffer
	err := Build(&buf, Params{
		Title: "Phases X (blue), Y (orange) for baseline 0",
		Meta: [][2]string{
			{"File", "1319371344_fringes_128chans_128T_ch169.dat"},
			{"Observation", "1319371344"},
			{"Grid", "8256 baselines x 128 channels"},
		},
		Figure: testPNG(t),
		Summary: []string{
			"X: mean 1.2 deg, std 12.9 deg",
			"Y: mean -0.4 deg, std 11.1 deg",
		},
	})
	if err != nil {
		t.Fatalf("Failed to build report: %v", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("Expected a PDF document, got first bytes %q", buf.Bytes()[:8])
	}
	if buf.Len() < 1000 {
		t.Errorf("Expected a non trivial document, got %d bytes", buf.Len())
	}
}

func TestBuildWithoutFigure(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(&buf, Params{Title: "Lost packets"}); err != nil {
		t.Fatalf("Failed to build figure-less report: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("Expected a PDF document")
	}
}
