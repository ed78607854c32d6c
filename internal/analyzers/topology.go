package analyzers

import (
	"context"
	"math"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// TopologyAnalyzer implements the channel-topology analyzer of spec §4.2.
type TopologyAnalyzer struct{}

func (TopologyAnalyzer) Name() string { return "topology" }

func (TopologyAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	format, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindFormatInfo})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.TopologyRecord{Status: measurement.TopologyUnknown}, nil
		}
		return nil, err
	}
	if format.Channels == 1 {
		return measurement.TopologyRecord{Status: measurement.TopologyMono}, nil
	}
	if format.Channels != 2 {
		return measurement.TopologyRecord{Status: measurement.TopologyUnknown}, nil
	}

	phase, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindPhaseCorrelation})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.TopologyRecord{Status: measurement.TopologyStereo}, nil
		}
		return nil, err
	}
	if !phase.CorrelationOverall.Valid {
		return measurement.TopologyRecord{Status: measurement.TopologyStereo}, nil
	}

	corr := phase.CorrelationOverall.Value
	switch {
	case corr > 0.98:
		return measurement.TopologyRecord{Status: measurement.TopologyDualMono}, nil
	case math.Abs(corr) < 0.1 && phase.WidthEstimate.Valid && phase.WidthEstimate.Value > 0.8:
		return measurement.TopologyRecord{Status: measurement.TopologyMidSide}, nil
	default:
		return measurement.TopologyRecord{Status: measurement.TopologyStereo}, nil
	}
}

func (a TopologyAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	tr := rec.(measurement.TopologyRecord)
	return ShortResult{Status: string(tr.Status)}, nil
}
