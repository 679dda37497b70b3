package llm

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/alias"
	"github.com/harborview/shipdocs/internal/merge"
)

var (
	reIMODigits = regexp.MustCompile(`^\d{7}$`)
	reIMOPrefix = regexp.MustCompile(`(?i)^imo[\s.:#-]*`)
)

// NormalizeIMO strips whitespace and any "IMO" literal prefix, accepting the
// value only if exactly 7 digits remain. Anything else normalizes to "".
// The IMO number is the authoritative identity key, so this is deliberately
// strict: a garbled IMO must read as absent, not as a different ship.
func NormalizeIMO(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = reIMOPrefix.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if reIMODigits.MatchString(s) {
		return s
	}
	return ""
}

// NormalizeDate parses a date leniently and re-emits ISO YYYY-MM-DD.
// Unparseable dates become "", never an error.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// Normalizer applies the per-kind post-parse rules: lenient dates to ISO,
// enum fallback to the kind default, IMO to a bare 7-digit string, issuing
// authority through the alias table, and merge-candidate backfill for fields
// the model left empty.
type Normalizer struct {
	aliases *alias.Normalizer
	logger  *slog.Logger
}

func NewNormalizer(aliases *alias.Normalizer, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{aliases: aliases, logger: logger}
}

// Apply normalizes in place and returns the same map for chaining.
func (n *Normalizer) Apply(fields FieldMap, kind constants.DocumentKind, candidates map[string][]string) FieldMap {
	spec, ok := constants.Spec(kind)
	if !ok {
		return fields
	}

	n.backfillFromCandidates(fields, spec, candidates)

	for _, f := range spec.DateFields {
		if v := fields.Get(f); v != "" {
			iso := NormalizeDate(v)
			if iso == "" {
				n.logger.Warn("llm.normalize.unparseable_date", "field", f, "value", v)
			}
			fields[f] = iso
		}
	}

	for f, ef := range spec.EnumFields {
		canonical, exact := constants.CanonicalizeEnum(ef, fields.Get(f))
		if !exact && fields.Get(f) != "" {
			n.logger.Warn("llm.normalize.enum_fallback", "field", f, "value", fields.Get(f), "default", canonical)
		}
		fields[f] = canonical
	}

	if _, has := fields["ship_imo"]; has {
		fields["ship_imo"] = NormalizeIMO(fields["ship_imo"])
	}

	if n.aliases != nil {
		if v := fields.Get("issued_by"); v != "" {
			fields["issued_by"] = n.aliases.Normalize(v)
		}
	}

	n.checkDatePlausibility(fields, spec)

	for k, v := range fields {
		fields[k] = strings.TrimSpace(v)
	}
	return fields
}

// backfillFromCandidates fills empty fields from the merge stage's coarse
// chunk signals. Candidates are ordered by chunk, so taking the first
// non-empty one preserves first-chunk-wins semantics.
func (n *Normalizer) backfillFromCandidates(fields FieldMap, spec constants.KindSpec, candidates map[string][]string) {
	if len(candidates) == 0 {
		return
	}
	mapping := map[string]string{
		spec.NameField:   merge.CandidateDocName,
		spec.NumberField: merge.CandidateDocNo,
		"form_no":        merge.CandidateFormNo,
		"ship_name":      merge.CandidateShipName,
		"ship_imo":       merge.CandidateShipIMO,
		"issue_date":     merge.CandidateIssueDt,
		"issued_by":      merge.CandidateIssuedBy,
	}
	for _, field := range spec.Fields {
		if fields.Get(field) != "" {
			continue
		}
		candKey, ok := mapping[field]
		if !ok {
			continue
		}
		for _, v := range candidates[candKey] {
			if strings.TrimSpace(v) != "" {
				fields[field] = strings.TrimSpace(v)
				n.logger.Info("llm.normalize.candidate_backfill", "field", field, "value", fields[field])
				break
			}
		}
	}
}

// checkDatePlausibility flags odd date pairs. Advisory only: values stand.
func (n *Normalizer) checkDatePlausibility(fields FieldMap, spec constants.KindSpec) {
	parse := func(f string) (time.Time, bool) {
		v := fields.Get(f)
		if v == "" {
			return time.Time{}, false
		}
		t, err := time.Parse("2006-01-02", v)
		return t, err == nil
	}
	if issue, ok := parse("issue_date"); ok {
		if issue.After(time.Now().AddDate(0, 0, 1)) {
			n.logger.Warn("llm.normalize.issue_date_in_future", "issue_date", fields.Get("issue_date"))
		}
		if valid, ok2 := parse("valid_date"); ok2 && valid.Before(issue) {
			n.logger.Warn("llm.normalize.valid_before_issue",
				"issue_date", fields.Get("issue_date"), "valid_date", fields.Get("valid_date"))
		}
	}
}
