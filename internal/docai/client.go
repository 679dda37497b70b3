package docai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/harborview/shipdocs/internal/common"
)

// Config for the document AI HTTP client.
type Config struct {
	Endpoint       string        // full-document analysis URL
	RegionEndpoint string        // header/footer band scan URL; optional
	APIKey         string
	Timeout        time.Duration // per-call timeout, default 90s
	RegionTimeout  time.Duration // default 20s
	RatePerSecond  float64       // client-side rate limit; 0 = unlimited
	RateBurst      int
}

// Client talks to a document-AI style OCR backend over JSON/HTTP. It
// implements both Analyzer and RegionScanner.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.RegionTimeout <= 0 {
		cfg.RegionTimeout = 20 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger,
	}
}

type analyzeResponse struct {
	Success  bool   `json:"success"`
	Text     string `json:"text"`
	Entities []struct {
		Type        string  `json:"type"`
		MentionText string  `json:"mention_text"`
		Confidence  float64 `json:"confidence"`
	} `json:"entities"`
	Error string `json:"error"`
}

// Analyze submits one chunk's bytes to the backend. Transport and backend
// failures come back as errors; the orchestrator records them as a failed
// chunk rather than aborting the run.
func (c *Client) Analyze(ctx context.Context, payload []byte, mimeType string) (ChunkAnalysis, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return ChunkAnalysis{}, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := map[string]any{
		"raw_document": map[string]any{
			"content":   base64.StdEncoding.EncodeToString(payload),
			"mime_type": mimeType,
		},
	}
	raw, _, err := common.SendJSON(ctx, c.http, c.cfg.Endpoint, body, c.headers(), "docai.http", c.logger)
	if err != nil {
		return ChunkAnalysis{}, fmt.Errorf("docai analyze: %w", err)
	}

	var resp analyzeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ChunkAnalysis{}, fmt.Errorf("docai analyze: decode response: %w", err)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "backend reported failure"
		}
		return ChunkAnalysis{}, fmt.Errorf("docai analyze: %s", msg)
	}

	out := ChunkAnalysis{
		RawText: resp.Text,
		Success: true,
	}
	for _, e := range resp.Entities {
		out.Entities = append(out.Entities, Entity{
			Type:        strings.ToLower(strings.TrimSpace(e.Type)),
			MentionText: strings.TrimSpace(e.MentionText),
			Confidence:  e.Confidence,
		})
	}
	return out, nil
}

type regionResponse struct {
	Success    bool   `json:"success"`
	HeaderText string `json:"header_text"`
	FooterText string `json:"footer_text"`
	Error      string `json:"error"`
}

// ScanHeaderFooter scans the header/footer band of a first-page render.
// Best-effort: callers treat any error as an absent scan, never a pipeline
// failure.
func (c *Client) ScanHeaderFooter(ctx context.Context, pageImage []byte) (RegionScan, error) {
	if c.cfg.RegionEndpoint == "" {
		return RegionScan{}, fmt.Errorf("region endpoint not configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return RegionScan{}, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RegionTimeout)
	defer cancel()

	body := map[string]any{
		"page_image": base64.StdEncoding.EncodeToString(pageImage),
		"regions":    []string{"header", "footer"},
	}
	raw, _, err := common.SendJSON(ctx, c.http, c.cfg.RegionEndpoint, body, c.headers(), "docai.http", c.logger)
	if err != nil {
		return RegionScan{}, fmt.Errorf("docai region scan: %w", err)
	}

	var resp regionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return RegionScan{}, fmt.Errorf("docai region scan: decode response: %w", err)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "backend reported failure"
		}
		return RegionScan{}, fmt.Errorf("docai region scan: %s", msg)
	}
	return RegionScan{
		HeaderText: strings.TrimSpace(resp.HeaderText),
		FooterText: strings.TrimSpace(resp.FooterText),
		Success:    true,
	}, nil
}

func (c *Client) headers() map[string]string {
	h := map[string]string{}
	if c.cfg.APIKey != "" {
		h["Authorization"] = "Bearer " + c.cfg.APIKey
	}
	return h
}
