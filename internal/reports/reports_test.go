package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContentDetectsForbiddenTerm(t *testing.T) {
	r := Report{
		Type:             TypeMastering,
		Summary:          "We fixed the clipping issue in the chorus.",
		Rationale:        "Loudness was over target.",
		ImpactAssessment: "No audible difference.",
		Confidence:       "92%",
	}
	violations := ValidateContent(r)
	require.NotEmpty(t, violations, "expected at least one violation for the term 'fixed'")

	found := false
	for _, v := range violations {
		if v.Term == "fixed" && v.Field == "summary" {
			found = true
		}
	}
	assert.True(t, found, "expected a violation naming 'fixed' in summary, got %+v", violations)
}

func TestSanitizeReplacesForbiddenTermsAndPreservesCapitalization(t *testing.T) {
	r := Report{
		Summary:   "Fixed the clipping, then fixed the DC offset.",
		Rationale: "No manipulation was involved.",
	}
	out := Sanitize(r)
	assert.Empty(t, ValidateContent(out), "expected sanitized report to be clean")
	assert.Equal(t, "Adjusted", out.Summary[:8])
}

func TestFormatConfidenceRendersPercentFormat(t *testing.T) {
	assert.Equal(t, "92%", FormatConfidence(0.923))
	assert.Equal(t, "100%", FormatConfidence(1.0))
}

func TestValidateContentCleanDraftHasNoViolations(t *testing.T) {
	r := Report{
		Summary:          "Adjusted integrated loudness to match the streaming target.",
		Rationale:        "The source exceeded the platform's loudness target by 3 LU.",
		ImpactAssessment: "Perceived loudness reduced; dynamics unchanged.",
		Confidence:       "88%",
		ChangesApplied:   []string{"Applied -3dB gain reduction"},
	}
	assert.Empty(t, ValidateContent(r))
}
