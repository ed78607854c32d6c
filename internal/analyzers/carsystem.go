package analyzers

import (
	"context"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// CarSystemAnalyzer implements the car-system translator of spec §4.2.
// LimiterStressIndex is deliberately independent of CrestStressAnalyzer's
// StressIndex per the open question noted in spec §9.
type CarSystemAnalyzer struct{}

func (CarSystemAnalyzer) Name() string { return "car_system" }

func carSystemStatus(boom, mud, box, sustainedLF float64) measurement.CarSystemStatus {
	composite := 0.3*boom + 0.3*mud + 0.2*box + 0.2*sustainedLF
	switch {
	case composite < 0.35:
		return measurement.CarSystemGood
	case composite < 0.65:
		return measurement.CarSystemModerate
	default:
		return measurement.CarSystemPoor
	}
}

func (CarSystemAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	boom, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindBandStats, LowHz: 80, HighHz: 120})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.CarSystemRecord{Status: measurement.CarSystemUnknown}, nil
		}
		return nil, err
	}
	mud, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindBandStats, LowHz: 120, HighHz: 200})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}
	box, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindBandStats, LowHz: 200, HighHz: 300})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}
	windowed, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindWindowedStats, WindowMs: 400})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}
	overall, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindOverallStats})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}

	if !boom.BandEnergyRatio.Valid {
		return measurement.CarSystemRecord{Status: measurement.CarSystemUnknown}, nil
	}

	rec := measurement.CarSystemRecord{
		BoomRatio: measurement.Some(clamp01(boom.BandEnergyRatio.Value)),
	}
	if mud != nil && mud.BandEnergyRatio.Valid {
		rec.MudRatio = measurement.Some(clamp01(mud.BandEnergyRatio.Value))
	}
	if box != nil && box.BandEnergyRatio.Valid {
		rec.BoxRatio = measurement.Some(clamp01(box.BandEnergyRatio.Value))
	}

	sustainedLF := 0.0
	if windowed != nil && len(windowed.WindowsDb) > 0 {
		loud := 0
		for _, w := range windowed.WindowsDb {
			if w > -9 {
				loud++
			}
		}
		sustainedLF = clamp01(float64(loud) / float64(len(windowed.WindowsDb)))
	}
	rec.SustainedLFFraction = measurement.Some(sustainedLF)

	if overall != nil && overall.PeakDb.Valid && overall.RMSDb.Valid {
		crest := overall.PeakDb.Value - overall.RMSDb.Value
		rec.CrestFactorDB = measurement.Some(crest)
		rec.LimiterStressIndex = measurement.Some(clamp01((14 - crest) / 14))
	}

	rec.PumpingRisk = measurement.Some(clamp01(0.5*sustainedLF + 0.5*rec.BoomRatio.Value))
	rec.Status = carSystemStatus(rec.BoomRatio.Value, rec.MudRatio.Value, rec.BoxRatio.Value, sustainedLF)

	return rec, nil
}

func (a CarSystemAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	cr := rec.(measurement.CarSystemRecord)
	return ShortResult{Status: string(cr.Status), Value: cr.PumpingRisk}, nil
}
