package docai

import "context"

// Entity is one structured mention recognized by the document AI backend.
type Entity struct {
	Type        string  `json:"type"`
	MentionText string  `json:"mention_text"`
	Confidence  float64 `json:"confidence"` // 0..1
}

// ChunkAnalysis is the result of running the backend on one chunk's bytes.
// A failed chunk is recorded with Success=false and excluded from the merge;
// the pipeline proceeds as long as at least one chunk succeeded.
type ChunkAnalysis struct {
	ChunkIndex int
	RawText    string
	Entities   []Entity
	Success    bool
	Error      string
}

// RegionScan holds the header/footer band text of the first page. General
// document OCR frequently drops letterheads and form codes, so this targeted
// pass backstops those fields.
type RegionScan struct {
	HeaderText string
	FooterText string
	Success    bool
}

// Analyzer is the OCR / document AI capability: raw chunk bytes in, plain
// text plus optional structured entities out.
type Analyzer interface {
	Analyze(ctx context.Context, payload []byte, mimeType string) (ChunkAnalysis, error)
}

// RegionScanner scans only the header/footer band of a rendered first page.
type RegionScanner interface {
	ScanHeaderFooter(ctx context.Context, pageImage []byte) (RegionScan, error)
}
