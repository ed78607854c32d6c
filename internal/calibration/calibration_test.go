package calibration

import "testing"

func TestCalibrateClampsToFloorAndCeiling(t *testing.T) {
	RegisterModel("test-floor", ModelTable{Temperature: 1.0, Bias: -1.0, Buckets: map[int]BucketAccuracy{}})
	got := Calibrate(0.5, "test-floor", nil)
	if got.Value != MinFloor {
		t.Fatalf("expected floor clamp to %f, got %f", MinFloor, got.Value)
	}

	RegisterModel("test-ceiling", ModelTable{Temperature: 1.0, Bias: 1.0, Buckets: map[int]BucketAccuracy{}})
	got = Calibrate(0.9, "test-ceiling", nil)
	if got.Value != MaxCeiling {
		t.Fatalf("expected ceiling clamp to %f, got %f", MaxCeiling, got.Value)
	}
}

func TestCalibrateOverconfidenceBound(t *testing.T) {
	RegisterModel("test-bucket", ModelTable{
		Temperature: 1.0,
		Buckets:     map[int]BucketAccuracy{9: {ExpectedAccuracy: 0.6}},
	})
	got := Calibrate(0.99, "test-bucket", nil)
	if got.Value > 0.6+MaxAllowedOverconfidence {
		t.Fatalf("expected overconfidence clamp near 0.70, got %f", got.Value)
	}
}

func TestCalibrateUnknownModelUsesDefault(t *testing.T) {
	got := Calibrate(0.6, "never-registered", nil)
	if got.Value < MinFloor || got.Value > MaxCeiling {
		t.Fatalf("expected clamped output, got %f", got.Value)
	}
}

func TestECEReportEmptyWindow(t *testing.T) {
	r := NewRecorder()
	report := r.Report("no-data")
	if report.Count != 0 || report.ECE != 0 {
		t.Fatalf("expected zero-value report for empty window, got %+v", report)
	}
}

func TestECEReportPerfectCalibration(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < 10; i++ {
		r.Record("m1", Prediction{Confidence: 0.95, Correct: true})
	}
	report := r.Report("m1")
	if report.ECE > 0.06 {
		t.Fatalf("expected low ECE for consistently correct high-confidence predictions, got %f", report.ECE)
	}
}
