package constants

import "strings"

// DocumentKind identifies the class of compliance document being analyzed.
// The set is closed: every kind maps to a static KindSpec via Spec.
type DocumentKind string

const (
	Certificate      DocumentKind = "CERTIFICATE"
	SurveyReport     DocumentKind = "SURVEY_REPORT"
	TestReport       DocumentKind = "TEST_REPORT"
	AuditReport      DocumentKind = "AUDIT_REPORT"
	AuditCertificate DocumentKind = "AUDIT_CERTIFICATE"
)

var allKinds = []DocumentKind{
	Certificate,
	SurveyReport,
	TestReport,
	AuditReport,
	AuditCertificate,
}

func AllKinds() []DocumentKind {
	out := make([]DocumentKind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind maps loose user input ("certificate", "survey_report") to a kind.
func ParseKind(input string) (DocumentKind, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, k := range allKinds {
		if normalized == string(k) {
			return k, true
		}
	}
	return "", false
}

// EnumField constrains one extracted field to a fixed value set with a
// canonical default used when the model answers outside the set.
type EnumField struct {
	Allowed []string
	Default string
}

// KindSpec is the static per-kind record: the full field set the extraction
// prompt enumerates, the critical subset whose absence alone disqualifies the
// result from automatic processing, and field-level normalization hints.
type KindSpec struct {
	Label          string // human-readable, used in prompts and log lines
	NameField      string // logical document-name field ("cert_name", ...)
	NumberField    string // logical document-number field
	Fields         []string
	CriticalFields []string
	DateFields     []string
	EnumFields     map[string]EnumField
}

// CertTypes is the accepted set for certificate-kind "cert_type" values.
var CertTypes = []string{"Full Term", "Interim", "Provisional", "Short Term"}

// DefaultCertType is used whenever the model returns a cert_type outside CertTypes.
const DefaultCertType = "Full Term"

var auditTypes = []string{"Internal", "External"}

var kindSpecs = map[DocumentKind]KindSpec{
	Certificate: {
		Label:          "ship certificate",
		NameField:      "cert_name",
		NumberField:    "cert_no",
		Fields:         []string{"cert_name", "cert_no", "cert_type", "issue_date", "valid_date", "issued_by", "ship_name", "ship_imo"},
		CriticalFields: []string{"cert_name", "cert_no"},
		DateFields:     []string{"issue_date", "valid_date"},
		EnumFields: map[string]EnumField{
			"cert_type": {Allowed: CertTypes, Default: DefaultCertType},
		},
	},
	SurveyReport: {
		Label:          "survey report",
		NameField:      "survey_report_name",
		NumberField:    "survey_report_no",
		Fields:         []string{"survey_report_name", "survey_report_no", "form_no", "issue_date", "issued_by", "surveyor_name", "ship_name", "ship_imo"},
		CriticalFields: []string{"survey_report_name", "survey_report_no"},
		DateFields:     []string{"issue_date"},
	},
	TestReport: {
		Label:          "test report",
		NameField:      "test_report_name",
		NumberField:    "test_report_no",
		Fields:         []string{"test_report_name", "test_report_no", "form_no", "test_date", "issued_by", "equipment_name", "ship_name", "ship_imo"},
		CriticalFields: []string{"test_report_name", "test_report_no"},
		DateFields:     []string{"test_date"},
	},
	AuditReport: {
		Label:          "audit report",
		NameField:      "audit_report_name",
		NumberField:    "audit_report_no",
		Fields:         []string{"audit_report_name", "audit_report_no", "form_no", "audit_type", "audit_date", "issued_by", "ship_name", "ship_imo"},
		CriticalFields: []string{"audit_report_name", "audit_report_no"},
		DateFields:     []string{"audit_date"},
		EnumFields: map[string]EnumField{
			"audit_type": {Allowed: auditTypes, Default: "External"},
		},
	},
	AuditCertificate: {
		Label:          "audit certificate",
		NameField:      "cert_name",
		NumberField:    "cert_no",
		Fields:         []string{"cert_name", "cert_no", "cert_type", "issue_date", "valid_date", "issued_by", "ship_name", "ship_imo"},
		CriticalFields: []string{"cert_name", "cert_no"},
		DateFields:     []string{"issue_date", "valid_date"},
		EnumFields: map[string]EnumField{
			"cert_type": {Allowed: CertTypes, Default: DefaultCertType},
		},
	},
}

// Spec returns the static record for a kind. The bool is false for kinds
// outside the closed set; callers treat that as a programming error.
func Spec(kind DocumentKind) (KindSpec, bool) {
	s, ok := kindSpecs[kind]
	return s, ok
}

// CanonicalizeEnum maps a model-returned value onto the accepted set for the
// field, falling back to the field's default. The bool reports an exact match.
func CanonicalizeEnum(ef EnumField, input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return ef.Default, false
	}
	for _, v := range ef.Allowed {
		if normalized == strings.ToLower(v) {
			return v, true
		}
	}
	return ef.Default, false
}
