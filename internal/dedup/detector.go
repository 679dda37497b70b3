package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/llm"
)

// Store is the read-only document-store capability this package consumes.
// A nil record with a nil error means "no match".
type Store interface {
	FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error)
}

// Verdict is advisory: the caller decides skip / replace / keep-both.
type Verdict struct {
	IsDuplicate bool
	ExistingID  string
	Similarity  float64 // 1.0 name+number match, 0.8 name-only
}

// Collections holding prior records, by document kind.
var kindCollections = map[constants.DocumentKind]string{
	constants.Certificate:      "certificates",
	constants.SurveyReport:     "survey_reports",
	constants.TestReport:       "test_reports",
	constants.AuditReport:      "audit_reports",
	constants.AuditCertificate: "audit_certificates",
}

type Detector struct {
	store  Store
	logger *slog.Logger
}

func NewDetector(store Store, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{store: store, logger: logger}
}

// Detect queries existing records for the ship with the same document name
// and scores similarity against the new extraction. Never mutates the store.
func (d *Detector) Detect(ctx context.Context, shipID string, fields llm.FieldMap, kind constants.DocumentKind) (Verdict, error) {
	spec, ok := constants.Spec(kind)
	if !ok {
		return Verdict{}, fmt.Errorf("dedup: unknown document kind %q", kind)
	}
	collection, ok := kindCollections[kind]
	if !ok {
		return Verdict{}, fmt.Errorf("dedup: no collection for kind %q", kind)
	}

	name := fields.Get(spec.NameField)
	if shipID == "" || name == "" {
		// nothing identifying to match on
		return Verdict{}, nil
	}

	record, err := d.store.FindOne(ctx, collection, map[string]any{
		"ship_id":       shipID,
		"document_name": name,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("dedup: query %s: %w", collection, err)
	}
	if record == nil {
		return Verdict{}, nil
	}

	verdict := Verdict{
		IsDuplicate: true,
		ExistingID:  stringField(record, "_id"),
	}

	newNo := fields.Get(spec.NumberField)
	existingNo := strings.TrimSpace(stringField(record, "document_no"))
	if newNo != "" && existingNo != "" && strings.EqualFold(newNo, existingNo) {
		verdict.Similarity = 1.0
	} else if newNo == "" || existingNo == "" {
		verdict.Similarity = 0.8
	} else {
		// same name, different numbers: likely a renewal, not a duplicate
		d.logger.Info("dedup.number_mismatch",
			"ship_id", shipID, "document_name", name,
			"new_no", newNo, "existing_no", existingNo)
		return Verdict{}, nil
	}

	d.logger.Info("dedup.match",
		"ship_id", shipID,
		"collection", collection,
		"document_name", name,
		"existing_id", verdict.ExistingID,
		"similarity", verdict.Similarity,
	)
	return verdict, nil
}

func stringField(record map[string]any, key string) string {
	if v, ok := record[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}
