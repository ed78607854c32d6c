package lineage

import "testing"

func TestBuildLineageTreeDetectsDuplicateAndOrphan(t *testing.T) {
	versions := []Version{
		{ID: "a"},
		{ID: "a"},
		{ID: "b", ParentID: "missing"},
	}
	_, report := BuildLineageTree(versions)
	if len(report.DuplicateIDs) != 1 {
		t.Fatalf("expected 1 duplicate id, got %v", report.DuplicateIDs)
	}
	if len(report.OrphanRefs) != 1 {
		t.Fatalf("expected 1 orphan ref, got %v", report.OrphanRefs)
	}
	if report.Clean() {
		t.Fatalf("expected unclean report")
	}
}

func TestBuildLineageTreeDetectsCycle(t *testing.T) {
	versions := []Version{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	}
	_, report := BuildLineageTree(versions)
	if len(report.Cycles) == 0 {
		t.Fatalf("expected a detected cycle")
	}
}

func TestBuildLineageTreeStatesAndDepths(t *testing.T) {
	versions := []Version{
		{ID: "root"},
		{ID: "mid", ParentID: "root"},
		{ID: "leaf", ParentID: "mid"},
	}
	tree, report := BuildLineageTree(versions)
	if !report.Clean() {
		t.Fatalf("expected clean report, got %+v", report)
	}
	root := tree.Nodes[tree.IndexOf["root"]]
	leaf := tree.Nodes[tree.IndexOf["leaf"]]
	if root.State != StateRaw {
		t.Fatalf("expected root RAW, got %s", root.State)
	}
	if leaf.State != StateFinal {
		t.Fatalf("expected leaf FINAL, got %s", leaf.State)
	}
	if leaf.Depth != 2 {
		t.Fatalf("expected leaf depth 2, got %d", leaf.Depth)
	}
}

func TestCalculateDeltaSeverityBuckets(t *testing.T) {
	d := CalculateDelta(Metrics{IntegratedLoudness: -16}, Metrics{IntegratedLoudness: -4})
	md := d.PerMetric["integratedLoudness"]
	if md.Severity != SeveritySevere {
		t.Fatalf("expected SEVERE for a 12 LU jump, got %s (change=%f)", md.Severity, md.Change)
	}
}

func TestInferTransformationLevelChange(t *testing.T) {
	d := CalculateDelta(
		Metrics{IntegratedLoudness: -16, TruePeak: -1, DynamicRange: 10, Width: 0.6, SpectralBalance: 0},
		Metrics{IntegratedLoudness: -10, TruePeak: -0.2, DynamicRange: 10, Width: 0.6, SpectralBalance: 0},
	)
	match := InferTransformation(d)
	if match.Pattern != PatternLevelChange {
		t.Fatalf("expected LEVEL_CHANGE, got %s (confidence=%f)", match.Pattern, match.Confidence)
	}
}

func TestAnalyzeLineageHealthLoudnessEscalation(t *testing.T) {
	versions := []Version{
		{ID: "v1", CreatedAtUnix: 1, Metrics: Metrics{IntegratedLoudness: -16}},
		{ID: "v2", ParentID: "v1", CreatedAtUnix: 2, Metrics: Metrics{IntegratedLoudness: -14.5}},
		{ID: "v3", ParentID: "v2", CreatedAtUnix: 3, Metrics: Metrics{IntegratedLoudness: -12.5}},
	}
	report := AnalyzeLineageHealth(versions)

	foundEscalation := false
	for _, p := range report.Patterns {
		if p == PatternLoudnessEscalation {
			foundEscalation = true
		}
	}
	if !foundEscalation {
		t.Fatalf("expected LOUDNESS_ESCALATION pattern, got %v", report.Patterns)
	}
	if report.Trend != TrendDegrading {
		t.Fatalf("expected DEGRADING trend, got %s", report.Trend)
	}
	total := report.Cumulative.CumulativeAbsDelta["integratedLoudness"]
	if total < 3.4 || total > 3.6 {
		t.Fatalf("expected cumulative delta ~3.5, got %f", total)
	}
}
