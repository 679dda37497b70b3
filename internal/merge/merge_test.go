package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/shipdocs/internal/docai"
)

func twoChunkAnalyses() []docai.ChunkAnalysis {
	return []docai.ChunkAnalysis{
		{
			ChunkIndex: 0,
			RawText:    "INTERNATIONAL SAFETY MANAGEMENT CERTIFICATE\nShip: MV EXAMPLE",
			Success:    true,
			Entities: []docai.Entity{
				{Type: "document_title", MentionText: "ISM Certificate", Confidence: 0.91},
				{Type: "ship_name", MentionText: "MV EXAMPLE", Confidence: 0.88},
			},
		},
		{
			ChunkIndex: 1,
			RawText:    "Continuation sheet\nIMO 9123456",
			Success:    true,
			Entities: []docai.Entity{
				{Type: "document_title", MentionText: "Continuation", Confidence: 0.70},
				{Type: "imo_number", MentionText: "9123456", Confidence: 0.95},
			},
		},
	}
}

func twoChunkRanges() []PageRange {
	return []PageRange{{FirstPage: 1, LastPage: 12}, {FirstPage: 13, LastPage: 20}}
}

func TestMergeFormattedText(t *testing.T) {
	e := NewEngine(nil)
	summary := e.Merge(twoChunkAnalyses(), twoChunkRanges(), Meta{
		Filename:   "ISM_Cert.pdf",
		ShipName:   "MV EXAMPLE",
		TotalPages: 20,
	}, nil)

	assert.Contains(t, summary.FormattedText, "Filename: ISM_Cert.pdf")
	assert.Contains(t, summary.FormattedText, "Ship: MV EXAMPLE")
	assert.Contains(t, summary.FormattedText, "Pages: 20")
	assert.Contains(t, summary.FormattedText, "Chunks: 2")
	assert.Contains(t, summary.FormattedText, "--- Pages 1-12 ---")
	assert.Contains(t, summary.FormattedText, "--- Pages 13-20 ---")
	assert.NotContains(t, summary.FormattedText, "TARGETED SCAN")

	// raw text keeps chunk order
	first := strings.Index(summary.RawText, "SAFETY MANAGEMENT")
	second := strings.Index(summary.RawText, "Continuation sheet")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
}

func TestMergeSortsByChunkIndex(t *testing.T) {
	e := NewEngine(nil)
	analyses := twoChunkAnalyses()
	analyses[0], analyses[1] = analyses[1], analyses[0] // completion order differs

	summary := e.Merge(analyses, twoChunkRanges(), Meta{Filename: "a.pdf", TotalPages: 20}, nil)
	assert.Less(t,
		strings.Index(summary.FormattedText, "--- Pages 1-12 ---"),
		strings.Index(summary.FormattedText, "--- Pages 13-20 ---"),
	)
	// candidate order follows chunk order, not completion order
	assert.Equal(t, "ISM Certificate", summary.Candidate(CandidateDocName))
}

func TestMergeFirstNonEmptyCandidateWins(t *testing.T) {
	e := NewEngine(nil)
	summary := e.Merge(twoChunkAnalyses(), twoChunkRanges(), Meta{Filename: "a.pdf", TotalPages: 20}, nil)

	assert.Equal(t, "ISM Certificate", summary.Candidate(CandidateDocName))
	assert.Equal(t, "MV EXAMPLE", summary.Candidate(CandidateShipName))
	assert.Equal(t, "9123456", summary.Candidate(CandidateShipIMO))
	// every chunk's guess is retained
	assert.Equal(t, []string{"ISM Certificate", "Continuation"}, summary.FieldCandidates[CandidateDocName])
}

func TestMergeIsAssociativeOverChunkOrder(t *testing.T) {
	e := NewEngine(nil)
	all := twoChunkAnalyses()
	ranges := twoChunkRanges()
	meta := Meta{Filename: "a.pdf", TotalPages: 20}

	whole := e.Merge(all, ranges, meta, nil)

	// merging a prefix and then extending with the remaining chunk must give
	// the same candidates as one merge over everything
	prefix := e.Merge(all[:1], ranges, meta, nil)
	extended := prefix.FieldCandidates
	tail := e.Merge(all[1:], ranges, meta, nil)
	for field, values := range tail.FieldCandidates {
		extended[field] = append(extended[field], values...)
	}

	assert.Equal(t, whole.FieldCandidates, extended)
}

func TestMergeSkipsFailedChunksAndLowConfidenceEntities(t *testing.T) {
	e := NewEngine(nil)
	analyses := []docai.ChunkAnalysis{
		{ChunkIndex: 0, Success: false, Error: "timeout"},
		{
			ChunkIndex: 1,
			RawText:    "page two text",
			Success:    true,
			Entities: []docai.Entity{
				{Type: "document_title", MentionText: "Noise", Confidence: 0.1},
				{Type: "document_title", MentionText: "Survey Report", Confidence: 0.8},
			},
		},
	}

	summary := e.Merge(analyses, twoChunkRanges(), Meta{Filename: "a.pdf", TotalPages: 20}, nil)
	assert.NotContains(t, summary.FormattedText, "--- Pages 1-12 ---")
	assert.Contains(t, summary.FormattedText, "page two text")
	assert.Equal(t, "Survey Report", summary.Candidate(CandidateDocName))
}

func TestMergeAppendsRegionScanSection(t *testing.T) {
	e := NewEngine(nil)
	region := &docai.RegionScan{
		HeaderText: "FORM 4B - DNV",
		FooterText: "Page 1 of 20",
		Success:    true,
	}
	summary := e.Merge(twoChunkAnalyses(), twoChunkRanges(), Meta{Filename: "a.pdf", TotalPages: 20}, region)

	assert.Contains(t, summary.FormattedText, "FIRST PAGE HEADER/FOOTER (TARGETED SCAN)")
	assert.Contains(t, summary.FormattedText, "Header: FORM 4B - DNV")
	assert.Contains(t, summary.FormattedText, "Footer: Page 1 of 20")

	// the section comes after the chunk text
	assert.Greater(t,
		strings.Index(summary.FormattedText, "TARGETED SCAN"),
		strings.Index(summary.FormattedText, "--- Pages 13-20 ---"),
	)

	// failed scans are never appended
	summary = e.Merge(twoChunkAnalyses(), twoChunkRanges(), Meta{Filename: "a.pdf", TotalPages: 20}, &docai.RegionScan{Success: false})
	assert.NotContains(t, summary.FormattedText, "TARGETED SCAN")
}
