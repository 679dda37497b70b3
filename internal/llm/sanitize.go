package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harborview/shipdocs/constants"
)

// StripCodeFences removes a Markdown code-fence wrapper (``` or ```json) from
// a model response, returning the inner payload. Responses without fences
// pass through unchanged.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop a language tag on the opening fence line ("json", "JSON", ...)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || len(first) <= 8 && !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// SanitizeFieldsJSON reshapes a decoded-but-messy model response so the
// overall document can still validate against the kind schema:
//   - removes unknown keys (additionalProperties friendliness)
//   - coerces numbers/booleans to strings for declared string fields
//   - replaces JSON null and "null" literals with ""
//   - trims whitespace everywhere
//
// The dropped list names what was discarded, for the warn log.
func SanitizeFieldsJSON(raw []byte, kind constants.DocumentKind, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	spec, ok := constants.Spec(kind)
	if !ok {
		return nil, nil, fmt.Errorf("sanitize: unknown document kind %q", kind)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	allowed := map[string]struct{}{"confidence": {}}
	for _, f := range spec.Fields {
		allowed[f] = struct{}{}
	}

	var dropped []string
	out := make(map[string]any, len(allowed))

	for k, v := range m {
		if _, ok := allowed[k]; !ok {
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		if k == "confidence" {
			if f, ok := v.(float64); ok && f >= 0 && f <= 1 {
				out[k] = f
			} else {
				dropped = append(dropped, "confidence(type)")
			}
			continue
		}
		out[k] = coerceString(v)
	}

	// every declared field must be present; fill misses with ""
	for _, f := range spec.Fields {
		if _, ok := out[f]; !ok {
			out[f] = ""
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.sanitized", "kind", string(kind), "dropped", dropped)
	}
	return b, dropped, nil
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
			return ""
		}
		return s
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return ""
	}
}
