package analyzers

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// MacroDynamicsAnalyzer implements the macro-dynamics shape classifier of
// spec §4.2: short-term loudness is aggregated into macro windows (default
// 16s), then classified into a closed shape taxonomy via a decision ladder
// over range, slope, thirds means, peak position and stepped-plateau
// variance.
type MacroDynamicsAnalyzer struct{}

func (MacroDynamicsAnalyzer) Name() string { return "macro_dynamics" }

func (MacroDynamicsAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	windowSec := opts.MacroWindowSec
	if windowSec <= 0 {
		windowSec = 16
	}

	windowed, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindWindowedStats, WindowMs: windowSec * 1000})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.MacroDynamicsRecord{Shape: measurement.ShapeUnknown, Status: measurement.MacroDynamicsUnknown}, nil
		}
		return nil, err
	}
	windows := windowed.WindowsDb
	if len(windows) < 3 {
		return measurement.MacroDynamicsRecord{Shape: measurement.ShapeUnknown, Status: measurement.MacroDynamicsUnknown}, nil
	}

	min, max := windows[0], windows[0]
	maxIdx := 0
	for i, v := range windows {
		if v < min {
			min = v
		}
		if v > max {
			max, maxIdx = v, i
		}
	}
	rangeDb := max - min
	slope := windows[len(windows)-1] - windows[0]

	thirds := thirdsMeans(windows)
	peakPosition := float64(maxIdx) / float64(len(windows)-1)

	rec := measurement.MacroDynamicsRecord{
		Slope:        slope,
		ThirdsMeans:  thirds,
		PeakPosition: peakPosition,
		Status:       measurement.MacroDynamicsOK,
	}

	rec.Shape, rec.Confidence = classifyShape(rangeDb, slope, thirds, peakPosition, windows)

	return rec, nil
}

func thirdsMeans(windows []float64) [3]float64 {
	n := len(windows)
	third := n / 3
	if third == 0 {
		third = 1
	}
	a := windows[0:third]
	b := windows[third : 2*third]
	c := windows[2*third:]
	return [3]float64{stat.Mean(a, nil), stat.Mean(b, nil), stat.Mean(c, nil)}
}

// classifyShape walks the decision ladder of spec §4.2, returning the best
// matching closed shape and a confidence derived from how decisively the
// evidence fits.
func classifyShape(rangeDb, slope float64, thirds [3]float64, peakPosition float64, windows []float64) (measurement.MacroShape, float64) {
	if rangeDb < 2 {
		return measurement.ShapeFlat, 0.9
	}

	t1, t2, t3 := thirds[0], thirds[1], thirds[2]

	if steppedPlateauVariance(windows) < 0.5 {
		if t3 > t1+2 {
			return measurement.ShapeSteppedUp, 0.75
		}
		if t1 > t3+2 {
			return measurement.ShapeSteppedDown, 0.75
		}
	}

	switch {
	case slope > rangeDb*0.6:
		return measurement.ShapeCrescendo, 0.8
	case slope < -rangeDb*0.6:
		return measurement.ShapeDecrescendo, 0.8
	}

	if t2 > t1+1 && t2 > t3+1 {
		return measurement.ShapeArc, 0.7
	}
	if t2 < t1-1 && t2 < t3-1 {
		return measurement.ShapeInvertedArc, 0.7
	}
	if t1 > t2+1 && t3 > t2+1 {
		return measurement.ShapeBookend, 0.6
	}

	if peakPosition < 0.3 {
		return measurement.ShapeFrontLoaded, 0.55
	}
	if peakPosition > 0.7 {
		return measurement.ShapeBackLoaded, 0.55
	}

	if reversalCount(windows) >= len(windows)/3 {
		return measurement.ShapeDoubleArc, 0.5
	}

	return measurement.ShapeFluctuating, 0.4
}

// steppedPlateauVariance estimates how "staircase"-like the series is by
// averaging the variance of local runs; a low value indicates flat
// plateaus separated by sharp jumps rather than a continuous slope.
func steppedPlateauVariance(windows []float64) float64 {
	if len(windows) < 4 {
		return 1
	}
	chunk := len(windows) / 4
	if chunk == 0 {
		chunk = 1
	}
	var total float64
	count := 0
	for i := 0; i+chunk <= len(windows); i += chunk {
		total += stat.Variance(windows[i:i+chunk], nil)
		count++
	}
	if count == 0 {
		return 1
	}
	return total / float64(count)
}

func reversalCount(windows []float64) int {
	if len(windows) < 3 {
		return 0
	}
	reversals := 0
	risingPrev := windows[1] > windows[0]
	for i := 2; i < len(windows); i++ {
		rising := windows[i] > windows[i-1]
		if rising != risingPrev {
			reversals++
		}
		risingPrev = rising
	}
	return reversals
}

func (a MacroDynamicsAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	mr := rec.(measurement.MacroDynamicsRecord)
	return ShortResult{Status: string(mr.Status)}, nil
}
