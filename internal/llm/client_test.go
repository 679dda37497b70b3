package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/shipdocs/constants"
)

func completionsResponse(t *testing.T, content string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	require.NoError(t, err)
	return b
}

func TestExtractFieldsParsesFencedJSON(t *testing.T) {
	content := "```json\n" + `{
		"cert_name": "ISM Certificate",
		"cert_no": "A123",
		"cert_type": "Full Term",
		"issue_date": "2024-03-12",
		"valid_date": "2029-03-11",
		"issued_by": "DNV GL",
		"ship_name": "MV EXAMPLE",
		"ship_imo": "IMO 9123456",
		"confidence": 0.91
	}` + "\n```"

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionsResponse(t, content))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test", BaseURL: srv.URL}, nil, nil)
	out, err := c.ExtractFields(context.Background(), ExtractRequest{
		MergedText: "=== DOCUMENT ===\n...",
		Filename:   "ISM_Cert.pdf",
		Kind:       constants.Certificate,
	})
	require.NoError(t, err)

	assert.False(t, out.Unparseable)
	assert.Equal(t, 0.91, out.Confidence)
	assert.Equal(t, "ISM Certificate", out.Fields.Get("cert_name"))
	assert.Equal(t, "9123456", out.Fields.ShipIMO()) // IMO prefix stripped
	assert.Equal(t, "DNV", out.Fields.Get("issued_by"))

	// request carried the structured-output constraint
	rf, ok := gotBody["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])
}

func TestExtractFieldsSanitizesSloppyResponse(t *testing.T) {
	// unknown key plus numeric cert_no: schema validation fails, the
	// sanitize retry repairs it
	content := `{"cert_name":"SMC","cert_no":777,"remarks":"drop me","confidence":0.6}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionsResponse(t, content))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test", BaseURL: srv.URL}, nil, nil)
	out, err := c.ExtractFields(context.Background(), ExtractRequest{Kind: constants.Certificate})
	require.NoError(t, err)

	assert.False(t, out.Unparseable)
	assert.Equal(t, "SMC", out.Fields.Get("cert_name"))
	assert.Equal(t, "777", out.Fields.Get("cert_no"))
	assert.Equal(t, "", out.Fields.Get("remarks"))
	assert.Equal(t, 0.6, out.Confidence)
}

func TestExtractFieldsUnparseableDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionsResponse(t, "I could not find any fields in this document."))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test", BaseURL: srv.URL}, nil, nil)
	out, err := c.ExtractFields(context.Background(), ExtractRequest{Kind: constants.Certificate})

	require.NoError(t, err) // degrade, not fail
	assert.True(t, out.Unparseable)
	assert.Empty(t, out.Fields)
}

func TestExtractFieldsTransportErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test", BaseURL: srv.URL}, nil, nil)
	_, err := c.ExtractFields(context.Background(), ExtractRequest{Kind: constants.Certificate})
	assert.Error(t, err)
}
