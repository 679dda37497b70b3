package constants

// Outcome is the terminal classification of one analysis run. Business-level
// "failures" (insufficient extraction, identity mismatch) are outcomes, not
// errors; only infrastructure faults surface as Go errors.
type Outcome string

// Stable values (the caller persists these exact strings).
const (
	OutcomeDone         Outcome = "DONE"                  // clean result, caller may auto-process
	OutcomeInsufficient Outcome = "INSUFFICIENT_QUALITY"  // requires manual input; partial fields attached
	OutcomeRejected     Outcome = "REJECTED"              // identity hard reject; reason attached
)

// Stage names for the orchestrator state machine. Transitions are strictly
// forward; the names appear in log events and error wrapping only.
type Stage string

const (
	StagePlanning        Stage = "PLANNING"
	StageExtracting      Stage = "EXTRACTING"
	StageMerging         Stage = "MERGING"
	StageFieldExtraction Stage = "FIELD_EXTRACTION"
	StageQualityGate     Stage = "QUALITY_GATE"
	StageIdentityGate    Stage = "IDENTITY_GATE"
	StageDuplicateGate   Stage = "DUPLICATE_GATE"
	StageDone            Stage = "DONE"
)
