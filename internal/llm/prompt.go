package llm

import (
	"strings"

	"github.com/harborview/shipdocs/constants"
)

// BuildSystemPrompt composes the system message for one document kind: a
// JSON-only instruction over the kind's fixed key set, the header/footer
// priority rule for the fields general OCR gets wrong most often, and the
// per-field formatting rules.
func BuildSystemPrompt(kind constants.DocumentKind) string {
	spec, _ := constants.Spec(kind)

	parts := []string{
		"You are a maritime compliance document parser reading a " + spec.Label + ".",
		"Return ONLY a JSON object. No prose, no markdown, no code fences.",
		"Use EXACTLY these keys and no others: " + strings.Join(spec.Fields, ", ") + ".",
		"If a value is not present in the document, use an empty string for that key.",
		"Also include a 'confidence' key: your overall extraction confidence as a number between 0 and 1.",

		// The targeted scan exists precisely because these fields live in
		// bands that general-purpose OCR drops.
		"If the text contains a section titled 'FIRST PAGE HEADER/FOOTER (TARGETED SCAN)', PREFER values found there for the form code and the issuing authority ('issued_by') over values found elsewhere.",
		"The filename is a secondary hint: report and certificate filenames frequently encode the form identifier and document number.",

		"Use ISO-8601 dates (YYYY-MM-DD).",
		"'ship_imo' is the 7-digit IMO number, digits only, without the 'IMO' prefix.",
		"'issued_by' is the issuing authority or classification society, not a person.",
	}

	for field, ef := range spec.EnumFields {
		parts = append(parts,
			"'"+field+"' MUST be exactly one of: "+strings.Join(ef.Allowed, ", ")+
				". If uncertain, use '"+ef.Default+"'.")
	}

	if contains(spec.Fields, "form_no") {
		parts = append(parts, "'form_no' is the printed form code (often in the page header or footer, e.g. 'FORM 4B' or a letter-digit code).")
	}

	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint and the merged document text.
// The merged text already carries the synthetic header block and page-range
// sections, so the framing is identical for split and unsplit documents.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.Filename); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n\n")
	}
	b.WriteString("Document text:\n")
	b.WriteString(req.MergedText)
	return b.String()
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
