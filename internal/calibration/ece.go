package calibration

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Prediction is one recorded (predicted-confidence, was-correct) pair fed
// into the sliding-window ECE report (spec §4.5).
type Prediction struct {
	Confidence float64
	Correct    bool
}

// ECEReport summarizes calibration quality over the current window via
// 10 fixed-width confidence bins.
type ECEReport struct {
	ECE   float64
	Bins  [eceBins]BinStat
	Count int
}

// BinStat is one bin's aggregate within an ECEReport.
type BinStat struct {
	Count          int
	MeanConfidence float64
	Accuracy       float64
}

// Recorder holds the process-global sliding window of recent predictions
// per modelId (spec §3: "Calibration accumulators are process-global
// mutable").
type Recorder struct {
	mu      sync.Mutex
	window  map[string][]Prediction
	maxSize int
}

// NewRecorder constructs a Recorder with the default window size.
func NewRecorder() *Recorder {
	return &Recorder{window: make(map[string][]Prediction), maxSize: eceWindowSize}
}

// Record appends a prediction outcome, evicting the oldest entry once the
// window exceeds its bound.
func (r *Recorder) Record(modelID string, p Prediction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := append(r.window[modelID], p)
	if len(w) > r.maxSize {
		w = w[len(w)-r.maxSize:]
	}
	r.window[modelID] = w
}

// Report computes the Expected Calibration Error over the current window
// for modelId: `ECE = Σ_bin (count_bin/N) · |accuracy_bin - confidence_bin|`.
func (r *Recorder) Report(modelID string) ECEReport {
	r.mu.Lock()
	preds := append([]Prediction(nil), r.window[modelID]...)
	r.mu.Unlock()

	var report ECEReport
	report.Count = len(preds)
	if len(preds) == 0 {
		return report
	}

	confByBin := make([][]float64, eceBins)
	correctByBin := make([]int, eceBins)

	for _, p := range preds {
		b := bucketIndex(p.Confidence)
		confByBin[b] = append(confByBin[b], p.Confidence)
		if p.Correct {
			correctByBin[b]++
		}
	}

	n := float64(len(preds))
	for i := 0; i < eceBins; i++ {
		count := len(confByBin[i])
		if count == 0 {
			continue
		}
		meanConf := stat.Mean(confByBin[i], nil)
		acc := float64(correctByBin[i]) / float64(count)
		report.Bins[i] = BinStat{Count: count, MeanConfidence: meanConf, Accuracy: acc}
		weight := float64(count) / n
		diff := acc - meanConf
		if diff < 0 {
			diff = -diff
		}
		report.ECE += weight * diff
	}

	return report
}
