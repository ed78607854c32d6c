package analyzers

import (
	"context"
	"math"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// SpectralBalanceAnalyzer implements the spectral-balance analyzer of spec
// §4.2: per-band energy ratios vs. a reference curve.
type SpectralBalanceAnalyzer struct{}

func (SpectralBalanceAnalyzer) Name() string { return "spectral_balance" }

// referenceCentroidHz is a flat reference expectation; deviation beyond
// referenceToleranceHz is tagged as an imbalance region.
const (
	referenceCentroidHz  = 2000.0
	referenceToleranceHz = 800.0
)

func (SpectralBalanceAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	reading, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindSpectralStats})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.SpectralRecord{Status: measurement.SpectralUnknown}, nil
		}
		return nil, err
	}
	if !reading.Centroid.Valid {
		return measurement.SpectralRecord{Status: measurement.SpectralUnknown}, nil
	}

	deviation := reading.Centroid.Value - referenceCentroidHz
	rec := measurement.SpectralRecord{
		Centroid:         toMeasurementNull(reading.Centroid),
		Spread:           toMeasurementNull(reading.Spread),
		Rolloff:          toMeasurementNull(reading.Rolloff),
		Flatness:         toMeasurementNull(reading.Flatness),
		DeviationFromRef: measurement.Some(deviation),
	}

	if math.Abs(deviation) <= referenceToleranceHz {
		rec.Status = measurement.SpectralBalanced
		rec.ImbalanceRegion = "none"
		return rec, nil
	}

	rec.Status = measurement.SpectralImbalanced
	if deviation > 0 {
		rec.ImbalanceRegion = "high"
	} else {
		rec.ImbalanceRegion = "low"
	}
	return rec, nil
}

func (a SpectralBalanceAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	sr := rec.(measurement.SpectralRecord)
	return ShortResult{Status: string(sr.Status), Value: sr.Centroid}, nil
}
