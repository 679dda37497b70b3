package llm

import (
	"context"
	"strings"

	"github.com/harborview/shipdocs/constants"
)

// FieldMap is the kind-specific extracted field set, keyed by the field names
// the kind's spec enumerates. Values are already normalized (ISO dates, bare
// 7-digit IMO, canonical enum and issuer strings) by the time the engine
// returns it.
type FieldMap map[string]string

// Get returns the trimmed value for a field, "" when absent.
func (f FieldMap) Get(key string) string {
	return strings.TrimSpace(f[key])
}

// ShipName reads the ship identity field every document kind carries.
func (f FieldMap) ShipName() string { return f.Get("ship_name") }

// ShipIMO reads the normalized IMO field; empty when extraction found none.
func (f FieldMap) ShipIMO() string { return f.Get("ship_imo") }

// Clone returns a copy; the pipeline hands copies across gate boundaries so
// no stage mutates another's view.
func (f FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ExtractRequest carries the merged summary text plus hint material into the
// field extraction engine. The engine is invoked exactly once per analysis,
// over the already-merged text, never per chunk.
type ExtractRequest struct {
	MergedText string
	Filename   string // secondary hint: filenames frequently encode form identifiers
	Kind       constants.DocumentKind
	// Candidates are the merge stage's coarse per-field guesses, used to
	// backfill fields the model leaves empty (first non-empty chunk wins).
	Candidates map[string][]string
}

// Extraction is the engine's output. Unparseable marks the degraded path
// where the model response could not be decoded: Fields is empty, no error is
// raised, and the quality gate downstream classifies the run as insufficient.
type Extraction struct {
	Fields      FieldMap
	Confidence  float64 // model self-reported, 0..1; 0 when absent
	Raw         []byte  // raw JSON content kept for audit
	Unparseable bool
}

// FieldExtractor is the capability interface the pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (Extraction, error)
}
