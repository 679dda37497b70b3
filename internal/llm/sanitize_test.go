package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/shipdocs/constants"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"plain fences", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"fence glued to payload", "```{\"a\":1}```", `{"a":1}`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestSanitizeFieldsJSON(t *testing.T) {
	raw := []byte(`{
		"cert_name": "  ISM Certificate ",
		"cert_no": 12345,
		"cert_type": null,
		"issue_date": "N/A",
		"issued_by": "DNV",
		"ship_imo": 9123456,
		"confidence": 0.87,
		"remarks": "not a declared field"
	}`)

	cleaned, dropped, err := SanitizeFieldsJSON(raw, constants.Certificate, nil)
	require.NoError(t, err)
	assert.Contains(t, dropped, "remarks(unknown)")

	var m map[string]any
	require.NoError(t, json.Unmarshal(cleaned, &m))

	assert.Equal(t, "ISM Certificate", m["cert_name"])
	assert.Equal(t, "12345", m["cert_no"]) // number coerced to string
	assert.Equal(t, "", m["cert_type"])    // null becomes empty
	assert.Equal(t, "", m["issue_date"])   // "N/A" becomes empty
	assert.Equal(t, "9123456", m["ship_imo"])
	assert.Equal(t, 0.87, m["confidence"])

	// every declared field is present even when the model omitted it
	spec, ok := constants.Spec(constants.Certificate)
	require.True(t, ok)
	for _, f := range spec.Fields {
		_, present := m[f]
		assert.True(t, present, "missing field %q", f)
	}
	_, present := m["remarks"]
	assert.False(t, present)
}

func TestSanitizeFieldsJSONBadConfidence(t *testing.T) {
	raw := []byte(`{"cert_name":"x","confidence":"high"}`)
	cleaned, dropped, err := SanitizeFieldsJSON(raw, constants.Certificate, nil)
	require.NoError(t, err)
	assert.Contains(t, dropped, "confidence(type)")

	var m map[string]any
	require.NoError(t, json.Unmarshal(cleaned, &m))
	_, present := m["confidence"]
	assert.False(t, present)
}

func TestSanitizeFieldsJSONRejectsNonObject(t *testing.T) {
	_, _, err := SanitizeFieldsJSON([]byte(`["not","an","object"]`), constants.Certificate, nil)
	assert.Error(t, err)
}
