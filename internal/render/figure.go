package render

import (
	"fmt"
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
)

// Series colours follow the matplotlib default cycle the observatory staff
// are used to reading: C0 blue for X/XX and C1 orange for Y/YY.
var (
	seriesBlue   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	seriesOrange = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
)

const (
	phaseDegMin  = -180
	phaseDegMax  = 180
	phaseDegStep = 30
)

var (
	glyphRadius = vg.Points(1.5)
	lineWidth   = vg.Points(1.5)
)

// FringeFigure builds the phase versus frequency scatter for one baseline.
// freqs and phases must be parallel per channel columns.
func FringeFigure(freqs []float64, phases []mwax.PhasePair, baseline int) (*plot.Plot, error) {
	if len(freqs) != len(phases) {
		return nil, fmt.Errorf("frequency and phase columns differ in length: %d vs %d", len(freqs), len(phases))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Phases X (blue), Y (orange) for baseline %d", baseline)
	p.X.Label.Text = "Frequency (MHz)"
	p.Y.Label.Text = "Phase (deg)"
	p.Y.Min, p.Y.Max = phaseDegMin, phaseDegMax
	p.Y.Tick.Marker = plot.ConstantTicks(phaseTicks())
	p.Add(plotter.NewGrid())

	x, y := mwax.SplitPhases(phases)
	for _, series := range []struct {
		values []float64
		color  color.RGBA
	}{
		{x, seriesBlue},
		{y, seriesOrange},
	} {
		s, err := plotter.NewScatter(makeXYs(freqs, series.values))
		if err != nil {
			return nil, fmt.Errorf("building scatter: %w", err)
		}
		s.GlyphStyle.Color = series.color
		s.GlyphStyle.Radius = glyphRadius
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
	}
	return p, nil
}

// AutosFigure builds the power versus frequency line plot for one antenna.
func AutosFigure(freqs []float64, powers []mwax.PowerPair, antenna int) (*plot.Plot, error) {
	if len(freqs) != len(powers) {
		return nil, fmt.Errorf("frequency and power columns differ in length: %d vs %d", len(freqs), len(powers))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Autos XX (blue), YY (orange) for antenna %d", antenna)
	p.X.Label.Text = "Frequency (MHz)"
	p.Y.Label.Text = "Power (dB)"
	p.Add(plotter.NewGrid())

	xx, yy := mwax.SplitPowers(powers)
	for _, series := range []struct {
		values []float64
		color  color.RGBA
	}{
		{xx, seriesBlue},
		{yy, seriesOrange},
	} {
		l, err := plotter.NewLine(makeXYs(freqs, series.values))
		if err != nil {
			return nil, fmt.Errorf("building line: %w", err)
		}
		l.LineStyle.Color = series.color
		l.LineStyle.Width = lineWidth
		p.Add(l)
	}
	return p, nil
}

// PacketLossFigure builds the lost packet count scatter across all RF
// inputs of one subobservation.
func PacketLossFigure(lost []uint16, meta mwax.PacketStatsFileMeta) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Lost packets per input for subobs %s ch %d", meta.SubobsID, meta.CoarseChan)
	p.X.Label.Text = "RF input"
	p.Y.Label.Text = "Lost packets"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(lost))
	for i, c := range lost {
		pts[i].X = float64(i)
		pts[i].Y = float64(c)
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("building scatter: %w", err)
	}
	s.GlyphStyle.Color = seriesBlue
	s.GlyphStyle.Radius = glyphRadius
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	return p, nil
}

// phaseTicks returns the fixed phase axis ticks, every 30 degrees from -180
// to 180 inclusive.
func phaseTicks() []plot.Tick {
	ticks := make([]plot.Tick, 0, (phaseDegMax-phaseDegMin)/phaseDegStep+1)
	for deg := phaseDegMin; deg <= phaseDegMax; deg += phaseDegStep {
		ticks = append(ticks, plot.Tick{Value: float64(deg), Label: strconv.Itoa(deg)})
	}
	return ticks
}

func makeXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}
