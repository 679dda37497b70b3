package quality

import (
	"log/slog"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/llm"
)

// Verdict classifies one extraction as sufficient for automatic processing
// or requiring manual input. Sufficient is true only if every critical field
// is non-empty AND the confidence and overall-rate thresholds hold.
type Verdict struct {
	Sufficient             bool
	ConfidenceScore        float64
	CriticalExtractionRate float64
	OverallExtractionRate  float64
	MissingFields          []string // critical fields that are empty, for user messaging
}

// Thresholds are empirically tuned, not derived; they stay configurable with
// the documented defaults.
type Thresholds struct {
	MinConfidence  float64 // default 0.4
	MinOverallRate float64 // default 0.3
}

func DefaultThresholds() Thresholds {
	return Thresholds{MinConfidence: 0.4, MinOverallRate: 0.3}
}

// Assessor is pure and deterministic: no I/O, no clock, no external calls.
type Assessor struct {
	thresholds Thresholds
	logger     *slog.Logger
}

func NewAssessor(t Thresholds, logger *slog.Logger) *Assessor {
	if logger == nil {
		logger = slog.Default()
	}
	if t.MinConfidence <= 0 {
		t.MinConfidence = 0.4
	}
	if t.MinOverallRate <= 0 {
		t.MinOverallRate = 0.3
	}
	return &Assessor{thresholds: t, logger: logger}
}

// Assess scores the extraction for one document kind. A single missing
// critical field is disqualifying regardless of confidence.
func (a *Assessor) Assess(fields llm.FieldMap, confidence float64, kind constants.DocumentKind) Verdict {
	spec, ok := constants.Spec(kind)
	if !ok {
		return Verdict{MissingFields: []string{"unknown document kind"}}
	}

	v := Verdict{ConfidenceScore: confidence}

	criticalFilled := 0
	for _, f := range spec.CriticalFields {
		if fields.Get(f) != "" {
			criticalFilled++
		} else {
			v.MissingFields = append(v.MissingFields, f)
		}
	}
	if len(spec.CriticalFields) > 0 {
		v.CriticalExtractionRate = float64(criticalFilled) / float64(len(spec.CriticalFields))
	}

	overallFilled := 0
	for _, f := range spec.Fields {
		if fields.Get(f) != "" {
			overallFilled++
		}
	}
	if len(spec.Fields) > 0 {
		v.OverallExtractionRate = float64(overallFilled) / float64(len(spec.Fields))
	}

	v.Sufficient = v.CriticalExtractionRate == 1.0 &&
		v.ConfidenceScore >= a.thresholds.MinConfidence &&
		v.OverallExtractionRate >= a.thresholds.MinOverallRate

	a.logger.Info("quality.assess",
		"kind", string(kind),
		"sufficient", v.Sufficient,
		"confidence", v.ConfidenceScore,
		"critical_rate", v.CriticalExtractionRate,
		"overall_rate", v.OverallExtractionRate,
		"missing", v.MissingFields,
	)
	return v
}
