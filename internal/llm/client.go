package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborview/shipdocs/internal/common"
)

// Config for the text-completion model client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // per-call timeout, default 90s
}

// Client implements FieldExtractor against an OpenAI-compatible
// chat/completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	normalizer *Normalizer
	log        *slog.Logger
}

func NewClient(cfg Config, normalizer *Normalizer, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil, logger)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		normalizer: normalizer,
		log:        logger,
	}
}

// ExtractFields runs one schema-constrained completion over the merged text.
// Transport faults return an error; an unparseable model response instead
// degrades to an empty field map so the quality gate can classify the run
// as insufficient instead of crashing the pipeline.
func (c *Client) ExtractFields(ctx context.Context, req ExtractRequest) (Extraction, error) {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"kind", string(req.Kind),
		"text_len", len(req.MergedText),
		"filename", req.Filename,
	)

	schema := BuildFieldsJSONSchema(req.Kind)
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": BuildSystemPrompt(req.Kind)},
			{"role": "user", "content": BuildUserPrompt(req)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Extraction{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Extraction{}, fmt.Errorf("decode completions response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Extraction{}, fmt.Errorf("no choices in completions response")
	}

	content := []byte(StripCodeFences(cc.Choices[0].Message.Content))
	out, ok := c.parseContent(rid, req, schema, content)
	if !ok {
		// Non-fatal: the quality gate turns this into a
		// "requires manual input" outcome with whatever we have.
		c.log.Warn("llm.extract.unparseable_response",
			"req_id", rid, "raw_bytes", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Extraction{Fields: FieldMap{}, Raw: content, Unparseable: true}, nil
	}

	out.Fields = c.normalizer.Apply(out.Fields, req.Kind, req.Candidates)

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"kind", string(req.Kind),
		"confidence", out.Confidence,
		"fields", len(out.Fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// parseContent decodes, schema-validates (with one lenient sanitize retry),
// and converts the model JSON into a FieldMap. ok=false means unparseable.
func (c *Client) parseContent(rid string, req ExtractRequest, schema map[string]any, content []byte) (Extraction, bool) {
	var probe map[string]any
	if err := json.Unmarshal(content, &probe); err != nil {
		return Extraction{}, false
	}

	validated := content
	if err := ValidateJSONAgainstSchema(schema, content); err != nil {
		cleaned, dropped, sErr := SanitizeFieldsJSON(content, req.Kind, c.log)
		if sErr != nil {
			return Extraction{}, false
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			// keep the sanitized best effort; the quality gate decides
			c.log.Warn("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr, "dropped", dropped)
		}
		validated = cleaned
	}

	var m map[string]any
	if err := json.Unmarshal(validated, &m); err != nil {
		return Extraction{}, false
	}

	out := Extraction{Fields: FieldMap{}, Raw: validated}
	for k, v := range m {
		if k == "confidence" {
			if f, ok := v.(float64); ok {
				out.Confidence = f
			}
			continue
		}
		out.Fields[k] = coerceString(v)
	}
	return out, true
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := common.SendJSON(ctx, c.httpClient, url, body, headers, "llm.http", c.log)
	return raw, err
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
