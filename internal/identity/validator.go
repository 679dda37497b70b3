package identity

import (
	"fmt"
	"strings"

	"github.com/harborview/shipdocs/internal/llm"
)

// OutcomeKind tags a validation result. Pass and SoftWarning let the pipeline
// continue; HardReject halts it.
type OutcomeKind int

const (
	Pass OutcomeKind = iota
	SoftWarning
	HardReject
)

func (k OutcomeKind) String() string {
	switch k {
	case Pass:
		return "PASS"
	case SoftWarning:
		return "SOFT_WARNING"
	case HardReject:
		return "HARD_REJECT"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the identity gate's verdict. OverrideNote is attached only to
// soft warnings; the caller persists it alongside the record if it proceeds.
type Outcome struct {
	Kind         OutcomeKind
	Reason       string
	OverrideNote string
}

// OverrideNoteText is the caller-visible note attached to ship-name soft
// warnings.
const OverrideNoteText = "ship name on document differs from the selected ship; accepted for reference only"

// Validate compares the extracted ship identity against the expected ship.
// IMO is the non-negotiable key: hull names can legally change over a ship's
// life while the IMO number cannot, so an IMO mismatch hard-rejects
// regardless of name agreement. A name-only mismatch soft-warns. An absent
// identity field on either side skips that comparison rather than failing
// closed or open arbitrarily.
func Validate(extractedShipName, extractedIMO, expectedShipName, expectedIMO string) Outcome {
	extIMO := llm.NormalizeIMO(extractedIMO)
	expIMO := llm.NormalizeIMO(expectedIMO)

	if extIMO != "" && expIMO != "" && extIMO != expIMO {
		return Outcome{
			Kind: HardReject,
			Reason: fmt.Sprintf("document belongs to a different ship: IMO %s on document, expected IMO %s",
				extIMO, expIMO),
		}
	}

	extName := strings.TrimSpace(extractedShipName)
	expName := strings.TrimSpace(expectedShipName)
	if extName != "" && expName != "" && !strings.EqualFold(extName, expName) {
		return Outcome{
			Kind: SoftWarning,
			Reason: fmt.Sprintf("ship name %q on document does not match expected %q",
				extName, expName),
			OverrideNote: OverrideNoteText,
		}
	}

	return Outcome{Kind: Pass}
}
