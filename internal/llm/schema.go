package llm

import (
	"github.com/harborview/shipdocs/constants"
)

// BuildFieldsJSONSchema returns a JSON-Schema (draft 2020-12 subset) for one
// document kind as a generic map. It is passed to the model as a structured
// output constraint and also used locally to validate the response.
func BuildFieldsJSONSchema(kind constants.DocumentKind) map[string]any {
	spec, _ := constants.Spec(kind)

	props := map[string]any{
		"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}
	for _, field := range spec.Fields {
		props[field] = fieldProp(spec, field)
	}

	// Every declared key must be present; empty string stands for "absent"
	// so the quality gate can count extraction rates uniformly.
	required := append([]string{}, spec.Fields...)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func fieldProp(spec constants.KindSpec, field string) map[string]any {
	if ef, ok := spec.EnumFields[field]; ok {
		allowed := append([]string{""}, ef.Allowed...)
		return map[string]any{"type": "string", "enum": allowed}
	}
	for _, d := range spec.DateFields {
		if d == field {
			return map[string]any{"type": "string", "pattern": `^(\d{4}-\d{2}-\d{2})?$`}
		}
	}
	if field == "ship_imo" {
		return map[string]any{"type": "string", "pattern": `^(\d{7})?$`}
	}
	return map[string]any{"type": "string"}
}
