package merge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/harborview/shipdocs/internal/docai"
)

// Summary is the reconciled view over all chunk analyses: one formatted text
// block for the field extraction prompt, the bare concatenated text, and the
// per-field candidate lists harvested from chunk entities.
type Summary struct {
	FormattedText string
	RawText       string
	// FieldCandidates retains every chunk's guess per logical field, in
	// chunk order, to support first-non-empty fallback selection.
	FieldCandidates map[string][]string
}

// Candidate returns the first non-empty candidate for a field, by chunk
// order. Later chunks never override an earlier candidate.
func (s Summary) Candidate(field string) string {
	for _, v := range s.FieldCandidates[field] {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Meta frames the synthetic header block so the extraction prompt reads the
// same whether the document was split or not.
type Meta struct {
	Filename   string
	ShipName   string // expected ship, when the caller knows it
	TotalPages int
}

// PageRange locates one chunk's pages inside the original document.
type PageRange struct {
	FirstPage int
	LastPage  int
}

// Logical candidate fields harvested from chunk entities. These are coarse
// signals only; the authoritative business fields come later from the field
// extraction engine over the merged text.
const (
	CandidateDocName  = "doc_name"
	CandidateDocNo    = "doc_no"
	CandidateFormNo   = "form_no"
	CandidateShipName = "ship_name"
	CandidateShipIMO  = "ship_imo"
	CandidateIssueDt  = "issue_date"
	CandidateIssuedBy = "issued_by"
)

// entityFieldSynonyms maps backend entity types onto logical fields.
var entityFieldSynonyms = map[string]string{
	"title":           CandidateDocName,
	"document_title":  CandidateDocName,
	"document_name":   CandidateDocName,
	"certificate":     CandidateDocName,
	"document_number": CandidateDocNo,
	"document_no":     CandidateDocNo,
	"certificate_no":  CandidateDocNo,
	"report_no":       CandidateDocNo,
	"form_code":       CandidateFormNo,
	"form_no":         CandidateFormNo,
	"ship_name":       CandidateShipName,
	"vessel_name":     CandidateShipName,
	"ship_imo":        CandidateShipIMO,
	"imo":             CandidateShipIMO,
	"imo_number":      CandidateShipIMO,
	"issue_date":      CandidateIssueDt,
	"date":            CandidateIssueDt,
	"issued_by":       CandidateIssuedBy,
	"issuer":          CandidateIssuedBy,
	"organization":    CandidateIssuedBy,
}

// Entities below this confidence are too noisy to keep as candidates.
const minEntityConfidence = 0.35

type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Merge combines N partial chunk analyses into one Summary. Failed chunks are
// skipped (the orchestrator has already logged them); completion order does
// not matter because analyses are re-sorted by chunk index first. The region
// scan, when present and successful, is appended as a clearly delimited
// section the prompt can be told to prioritize.
func (e *Engine) Merge(analyses []docai.ChunkAnalysis, ranges []PageRange, meta Meta, region *docai.RegionScan) Summary {
	sorted := make([]docai.ChunkAnalysis, len(analyses))
	copy(sorted, analyses)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChunkIndex < sorted[j].ChunkIndex })

	out := Summary{FieldCandidates: map[string][]string{}}

	var formatted, raw strings.Builder
	writeHeaderBlock(&formatted, meta, len(sorted))

	for _, a := range sorted {
		if !a.Success {
			continue
		}
		text := strings.TrimSpace(a.RawText)
		if text != "" {
			formatted.WriteString(sectionHeader(a.ChunkIndex, ranges))
			formatted.WriteString(text)
			formatted.WriteString("\n\n")
			if raw.Len() > 0 {
				raw.WriteString("\n")
			}
			raw.WriteString(text)
		}
		e.harvestCandidates(out.FieldCandidates, a)
	}

	if region != nil && region.Success {
		formatted.WriteString("--- FIRST PAGE HEADER/FOOTER (TARGETED SCAN) ---\n")
		if region.HeaderText != "" {
			formatted.WriteString("Header: " + region.HeaderText + "\n")
		}
		if region.FooterText != "" {
			formatted.WriteString("Footer: " + region.FooterText + "\n")
		}
		formatted.WriteString("\n")
	}

	out.FormattedText = formatted.String()
	out.RawText = raw.String()
	return out
}

// harvestCandidates appends each usable entity mention under its logical
// field. Appending in chunk order is what makes first-non-empty-wins stable
// under incremental merging.
func (e *Engine) harvestCandidates(candidates map[string][]string, a docai.ChunkAnalysis) {
	for _, ent := range a.Entities {
		field, ok := entityFieldSynonyms[strings.ToLower(strings.TrimSpace(ent.Type))]
		if !ok {
			continue
		}
		if ent.Confidence < minEntityConfidence {
			e.logger.Debug("merge.candidate.skipped_low_confidence",
				"chunk_index", a.ChunkIndex, "type", ent.Type, "confidence", ent.Confidence)
			continue
		}
		v := strings.TrimSpace(ent.MentionText)
		if v == "" {
			continue
		}
		candidates[field] = append(candidates[field], v)
	}
}

func writeHeaderBlock(b *strings.Builder, meta Meta, chunkCount int) {
	b.WriteString("=== DOCUMENT ===\n")
	b.WriteString("Filename: " + meta.Filename + "\n")
	if meta.ShipName != "" {
		b.WriteString("Ship: " + meta.ShipName + "\n")
	}
	fmt.Fprintf(b, "Pages: %d\n", meta.TotalPages)
	fmt.Fprintf(b, "Chunks: %d\n\n", chunkCount)
}

func sectionHeader(chunkIndex int, ranges []PageRange) string {
	if chunkIndex >= 0 && chunkIndex < len(ranges) {
		r := ranges[chunkIndex]
		if r.FirstPage == r.LastPage {
			return fmt.Sprintf("--- Page %d ---\n", r.FirstPage)
		}
		return fmt.Sprintf("--- Pages %d-%d ---\n", r.FirstPage, r.LastPage)
	}
	return fmt.Sprintf("--- Chunk %d ---\n", chunkIndex+1)
}
