package chunk

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/common"
)

// Document is the uploaded artifact for one analysis run. Immutable once
// received; it exists only for the duration of that run.
type Document struct {
	Bytes    []byte
	Filename string
	MimeType string
}

// Chunk is a contiguous page range of a Document with its own byte payload.
// Chunks are produced once by the planner and never re-split.
type Chunk struct {
	Index     int
	FirstPage int // 1-based, inclusive
	LastPage  int // 1-based, inclusive
	Bytes     []byte
	MimeType  string
}

// Plan is the split decision for one document. The no-split path and the
// split path produce the same shape so downstream stages stay agnostic.
type Plan struct {
	TotalPages int
	Chunks     []Chunk
	// FirstPage is a single-page PDF holding page 1, kept for the targeted
	// header/footer scan. Nil for image inputs (the whole file serves).
	FirstPage []byte
}

type Config struct {
	SplitThreshold int // split documents with more pages than this; default 15
	MaxChunkPages  int // page cap per chunk; default 12
}

type Planner struct {
	cfg    Config
	conf   *model.Configuration
	logger *slog.Logger
}

func NewPlanner(cfg Config, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SplitThreshold <= 0 {
		cfg.SplitThreshold = 15
	}
	if cfg.MaxChunkPages <= 0 {
		cfg.MaxChunkPages = 12
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Planner{cfg: cfg, conf: conf, logger: logger}
}

// Plan inspects the document and decides whether and how to split it.
// Images always yield a single whole-file chunk. Malformed or unsupported
// inputs fail with common.ErrInvalidDocumentFormat before any OCR call.
func (p *Planner) Plan(ctx context.Context, doc Document) (Plan, error) {
	if len(doc.Bytes) == 0 {
		return Plan{}, fmt.Errorf("%w: empty payload", common.ErrInvalidDocumentFormat)
	}

	switch constants.MapMimeToFormat(doc.MimeType) {
	case constants.IMAGE:
		return Plan{
			TotalPages: 1,
			Chunks:     []Chunk{{Index: 0, FirstPage: 1, LastPage: 1, Bytes: doc.Bytes, MimeType: doc.MimeType}},
		}, nil
	case constants.PDF:
		return p.planPDF(ctx, doc)
	default:
		return Plan{}, fmt.Errorf("%w: unsupported content type %q", common.ErrInvalidDocumentFormat, doc.MimeType)
	}
}

func (p *Planner) planPDF(ctx context.Context, doc Document) (Plan, error) {
	if err := api.Validate(bytes.NewReader(doc.Bytes), p.conf); err != nil {
		p.logger.Error("chunk.plan.invalid_pdf", "filename", doc.Filename, "error", err)
		return Plan{}, fmt.Errorf("%w: %v", common.ErrInvalidDocumentFormat, err)
	}
	total, err := api.PageCount(bytes.NewReader(doc.Bytes), p.conf)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: page count: %v", common.ErrInvalidDocumentFormat, err)
	}
	if total <= 0 {
		return Plan{}, fmt.Errorf("%w: no pages", common.ErrInvalidDocumentFormat)
	}

	ranges := splitRanges(total, p.cfg.SplitThreshold, p.cfg.MaxChunkPages)
	plan := Plan{TotalPages: total, Chunks: make([]Chunk, 0, len(ranges))}

	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		var payload []byte
		if len(ranges) == 1 {
			// no-split path: reuse the original bytes untouched
			payload = doc.Bytes
		} else {
			payload, err = p.extractRange(doc.Bytes, r[0], r[1])
			if err != nil {
				return Plan{}, fmt.Errorf("%w: extract pages %d-%d: %v", common.ErrInvalidDocumentFormat, r[0], r[1], err)
			}
		}
		plan.Chunks = append(plan.Chunks, Chunk{
			Index:     i,
			FirstPage: r[0],
			LastPage:  r[1],
			Bytes:     payload,
			MimeType:  "application/pdf",
		})
	}

	if plan.FirstPage, err = p.extractRange(doc.Bytes, 1, 1); err != nil {
		// Header/footer scan is best-effort enrichment; the plan stands.
		p.logger.Warn("chunk.plan.first_page_extract_failed", "filename", doc.Filename, "error", err)
		plan.FirstPage = nil
	}

	p.logger.Info("chunk.plan.ok",
		"filename", doc.Filename,
		"total_pages", total,
		"chunks", len(plan.Chunks),
	)
	return plan, nil
}

func (p *Planner) extractRange(pdf []byte, from, to int) ([]byte, error) {
	var out bytes.Buffer
	sel := []string{fmt.Sprintf("%d-%d", from, to)}
	if err := api.Trim(bytes.NewReader(pdf), &out, sel, p.conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// splitRanges returns 1-based inclusive [first,last] page ranges, contiguous
// and non-overlapping. A document at or under the threshold stays whole.
func splitRanges(total, threshold, maxPages int) [][2]int {
	if total <= threshold {
		return [][2]int{{1, total}}
	}
	var ranges [][2]int
	for first := 1; first <= total; first += maxPages {
		last := first + maxPages - 1
		if last > total {
			last = total
		}
		ranges = append(ranges, [2]int{first, last})
	}
	return ranges
}
