// Package render turns decoded stats products into figures. Plots are built
// with gonum/plot, rasterised to PNG and optionally composed onto a larger
// canvas with a metadata footer strip drawn below the plot area.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Default figure size in typographic points.
const (
	DefaultWidthPt  = 1000
	DefaultHeightPt = 600
)

const (
	footerFontSize    = 12
	footerLineSpacing = 1.4
	footerMarginX     = 16
	footerPadY        = 12
	footerDPI         = 72
)

// Config controls figure rasterisation.
type Config struct {
	WidthPt  float64 // plot width in points, DefaultWidthPt when zero
	HeightPt float64 // plot height in points, DefaultHeightPt when zero
	Footer   bool    // compose the metadata strip under the plot
}

// Renderer rasterises figures using one reusable freetype drawing context.
// It is not safe for concurrent use.
type Renderer struct {
	cfg Config
	ctx *freetype.Context
}

// New creates a Renderer, filling zero Config sizes with the defaults. The
// footer face is the embedded Go Regular font, so rendering never depends
// on host fonts.
func New(cfg Config) (*Renderer, error) {
	if cfg.WidthPt <= 0 {
		cfg.WidthPt = DefaultWidthPt
	}
	if cfg.HeightPt <= 0 {
		cfg.HeightPt = DefaultHeightPt
	}

	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing annotation font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(footerDPI)
	ctx.SetFont(f)
	ctx.SetFontSize(footerFontSize)
	ctx.SetSrc(image.Black)
	ctx.SetHinting(font.HintingFull)

	return &Renderer{cfg: cfg, ctx: ctx}, nil
}

// PNG renders p at the configured size. When the footer is enabled and
// lines are given, they are drawn into a white strip under the plot.
func (r *Renderer) PNG(p *plot.Plot, footer []string) ([]byte, error) {
	wt, err := p.WriterTo(vg.Points(r.cfg.WidthPt), vg.Points(r.cfg.HeightPt), "png")
	if err != nil {
		return nil, fmt.Errorf("rendering figure: %w", err)
	}

	var buf bytes.Buffer
	if _, err = wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding figure: %w", err)
	}

	if !r.cfg.Footer || len(footer) == 0 {
		return buf.Bytes(), nil
	}
	return r.compose(buf.Bytes(), footer)
}

// compose decodes the rendered figure and redraws it on a canvas extended
// by the footer strip.
func (r *Renderer) compose(figPNG []byte, lines []string) ([]byte, error) {
	fig, err := png.Decode(bytes.NewReader(figPNG))
	if err != nil {
		return nil, fmt.Errorf("decoding figure: %w", err)
	}

	lineH := r.ctx.PointToFixed(footerFontSize * footerLineSpacing)
	stripH := footerPadY + len(lines)*int(lineH>>6) + footerPadY/2

	b := fig.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+stripH))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, b.Dx(), b.Dy()), fig, b.Min, draw.Src)

	r.ctx.SetClip(canvas.Bounds())
	r.ctx.SetDst(canvas)

	pt := freetype.Pt(footerMarginX, b.Dy()+footerPadY+int(r.ctx.PointToFixed(footerFontSize)>>6))
	for _, line := range lines {
		if _, err = r.ctx.DrawString(line, pt); err != nil {
			return nil, fmt.Errorf("drawing annotation %q: %w", line, err)
		}
		pt.Y += lineH
	}

	var out bytes.Buffer
	if err = png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("encoding annotated figure: %w", err)
	}
	return out.Bytes(), nil
}
