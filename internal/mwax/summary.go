package mwax

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SeriesSummary describes one polarisation series of a decoded product.
type SeriesSummary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// DelayFit is a straight line fit to unwrapped phase versus frequency. The
// slope of a fringe is the residual delay on the baseline, so a good fit
// with a large delay points at an instrumental problem.
type DelayFit struct {
	DelayNS float64 // residual delay in nanoseconds
	R2      float64 // coefficient of determination of the fit
}

// Summarize computes the basic statistics of one series.
func Summarize(values []float64) SeriesSummary {
	if len(values) == 0 {
		return SeriesSummary{}
	}

	mean, std := stat.MeanStdDev(values, nil)
	return SeriesSummary{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// FitDelay regresses unwrapped phase against frequency and converts the
// slope to a delay. A slope of 360 degrees per MHz corresponds to one
// microsecond, hence the conversion factor below.
func FitDelay(freqsMHz, phasesDeg []float64) DelayFit {
	if len(freqsMHz) < 2 || len(freqsMHz) != len(phasesDeg) {
		return DelayFit{DelayNS: math.NaN(), R2: math.NaN()}
	}

	unwrapped := UnwrapDegrees(phasesDeg)
	alpha, beta := stat.LinearRegression(freqsMHz, unwrapped, nil, false)
	return DelayFit{
		DelayNS: beta * 1000 / 360,
		R2:      stat.RSquared(freqsMHz, unwrapped, nil, alpha, beta),
	}
}

// UnwrapDegrees removes the wrap at +-180 degrees from a phase series by
// shifting each sample so that consecutive samples never jump by more than
// half a turn.
func UnwrapDegrees(phasesDeg []float64) []float64 {
	out := make([]float64, len(phasesDeg))
	if len(phasesDeg) == 0 {
		return out
	}

	out[0] = phasesDeg[0]
	var offset float64
	for i := 1; i < len(phasesDeg); i++ {
		switch d := phasesDeg[i] - phasesDeg[i-1]; {
		case d > 180:
			offset -= 360
		case d < -180:
			offset += 360
		}
		out[i] = phasesDeg[i] + offset
	}
	return out
}

// SplitPhases returns the X and Y polarisation columns of pairs.
func SplitPhases(pairs []PhasePair) (x, y []float64) {
	x = make([]float64, len(pairs))
	y = make([]float64, len(pairs))
	for i, p := range pairs {
		x[i] = p.X
		y[i] = p.Y
	}
	return x, y
}

// SplitPowers returns the XX and YY polarisation columns of pairs.
func SplitPowers(pairs []PowerPair) (xx, yy []float64) {
	xx = make([]float64, len(pairs))
	yy = make([]float64, len(pairs))
	for i, p := range pairs {
		xx[i] = p.XX
		yy[i] = p.YY
	}
	return xx, yy
}
