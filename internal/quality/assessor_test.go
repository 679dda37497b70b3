package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/llm"
)

func fullCertFields() llm.FieldMap {
	return llm.FieldMap{
		"cert_name":  "ISM Certificate",
		"cert_no":    "A123",
		"cert_type":  "Full Term",
		"issue_date": "2024-03-12",
		"valid_date": "2029-03-11",
		"issued_by":  "DNV",
		"ship_name":  "MV EXAMPLE",
		"ship_imo":   "9123456",
	}
}

func TestAssessSufficient(t *testing.T) {
	a := NewAssessor(DefaultThresholds(), nil)

	v := a.Assess(fullCertFields(), 0.9, constants.Certificate)

	assert.True(t, v.Sufficient)
	assert.Equal(t, 1.0, v.CriticalExtractionRate)
	assert.Equal(t, 1.0, v.OverallExtractionRate)
	assert.Equal(t, 0.9, v.ConfidenceScore)
	assert.Empty(t, v.MissingFields)
}

func TestAssessMissingCriticalFieldDisqualifies(t *testing.T) {
	a := NewAssessor(DefaultThresholds(), nil)

	fields := fullCertFields()
	fields["cert_no"] = "" // critical

	v := a.Assess(fields, 0.95, constants.Certificate)

	assert.False(t, v.Sufficient, "high confidence must not compensate for a missing critical field")
	assert.Equal(t, []string{"cert_no"}, v.MissingFields)
	assert.Less(t, v.CriticalExtractionRate, 1.0)
}

func TestAssessLowConfidenceDisqualifies(t *testing.T) {
	a := NewAssessor(DefaultThresholds(), nil)

	v := a.Assess(fullCertFields(), 0.2, constants.Certificate)

	assert.False(t, v.Sufficient)
	assert.Empty(t, v.MissingFields)
}

func TestAssessLowOverallRateDisqualifies(t *testing.T) {
	a := NewAssessor(DefaultThresholds(), nil)

	// criticals filled, everything else empty: 2 of 8 fields = 0.25 < 0.3
	fields := llm.FieldMap{
		"cert_name": "ISM Certificate",
		"cert_no":   "A123",
	}
	v := a.Assess(fields, 0.9, constants.Certificate)

	assert.False(t, v.Sufficient)
	assert.Equal(t, 1.0, v.CriticalExtractionRate)
	assert.InDelta(t, 0.25, v.OverallExtractionRate, 1e-9)
}

func TestAssessEmptyExtraction(t *testing.T) {
	a := NewAssessor(DefaultThresholds(), nil)

	v := a.Assess(llm.FieldMap{}, 0, constants.Certificate)

	assert.False(t, v.Sufficient)
	assert.Equal(t, 0.0, v.CriticalExtractionRate)
	assert.ElementsMatch(t, []string{"cert_name", "cert_no"}, v.MissingFields)
}

func TestAssessCustomThresholds(t *testing.T) {
	a := NewAssessor(Thresholds{MinConfidence: 0.8, MinOverallRate: 0.9}, nil)

	v := a.Assess(fullCertFields(), 0.7, constants.Certificate)
	assert.False(t, v.Sufficient)

	v = a.Assess(fullCertFields(), 0.85, constants.Certificate)
	assert.True(t, v.Sufficient)
}
