package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/chunk"
	"github.com/harborview/shipdocs/internal/common"
	"github.com/harborview/shipdocs/internal/dedup"
	"github.com/harborview/shipdocs/internal/docai"
	"github.com/harborview/shipdocs/internal/identity"
	"github.com/harborview/shipdocs/internal/llm"
	"github.com/harborview/shipdocs/internal/merge"
	"github.com/harborview/shipdocs/internal/quality"
)

// AnalyzeRequest is the produced interface's input: one uploaded document
// plus the ship the caller believes it belongs to.
type AnalyzeRequest struct {
	Bytes            []byte
	Filename         string
	MimeType         string
	Kind             constants.DocumentKind
	ShipID           string
	ExpectedShipName string
	ExpectedIMO      string
}

// AnalysisResult is the terminal output handed to the CRUD-layer caller,
// which decides whether to persist, request manual input, or request an
// override. Business "failures" arrive here as outcomes, never as errors.
type AnalysisResult struct {
	ID      uuid.UUID
	Outcome constants.Outcome
	Reason  string // human-readable, set for non-DONE outcomes

	Fields     llm.FieldMap
	Confidence float64
	Quality    quality.Verdict
	Identity   identity.Outcome
	Duplicate  dedup.Verdict

	// Kept for later archival by the caller.
	RawFile    []byte
	MergedText string

	StartedAt       time.Time
	FinishedAt      time.Time
	ChunksTotal     int
	ChunksSucceeded int

	// OverrideApprovedBy is set only on results produced via ResolveOverride.
	OverrideApprovedBy string
}

// Config tunes orchestration. Zero values fall back to the shipped defaults.
type Config struct {
	MaxParallel   int           // concurrent chunk OCR calls, default 3
	ChunkTimeout  time.Duration // per chunk OCR call, default 90s
	RegionTimeout time.Duration // header/footer scan budget, default 20s
}

// Planner is the split-decision capability; *chunk.Planner is the production
// implementation.
type Planner interface {
	Plan(ctx context.Context, doc chunk.Document) (chunk.Plan, error)
}

// Orchestrator ties the pipeline stages into one synchronous analyze call.
// Transitions are strictly forward; no retries happen inside a single run.
type Orchestrator struct {
	cfg       Config
	planner   Planner
	analyzer  docai.Analyzer
	region    docai.RegionScanner // optional; nil disables the targeted scan
	merger    *merge.Engine
	extractor llm.FieldExtractor
	assessor  *quality.Assessor
	detector  *dedup.Detector
	logger    *slog.Logger
}

func NewOrchestrator(
	cfg Config,
	planner Planner,
	analyzer docai.Analyzer,
	region docai.RegionScanner,
	merger *merge.Engine,
	extractor llm.FieldExtractor,
	assessor *quality.Assessor,
	detector *dedup.Detector,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 3
	}
	if cfg.ChunkTimeout <= 0 {
		cfg.ChunkTimeout = 90 * time.Second
	}
	if cfg.RegionTimeout <= 0 {
		cfg.RegionTimeout = 20 * time.Second
	}
	return &Orchestrator{
		cfg:       cfg,
		planner:   planner,
		analyzer:  analyzer,
		region:    region,
		merger:    merger,
		extractor: extractor,
		assessor:  assessor,
		detector:  detector,
		logger:    logger,
	}
}

// Analyze runs the full pipeline: plan -> chunk OCR -> merge -> field
// extraction -> quality gate -> identity gate -> duplicate gate. The call
// blocks the caller; chunk OCR overlaps internally. Cancelling ctx abandons
// in-flight chunk calls and discards partial results.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	result := &AnalysisResult{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		RawFile:   req.Bytes,
	}
	ctx = common.WithAnalysisID(ctx, result.ID.String())

	o.logger.Info("pipeline.analyze.start",
		"analysis_id", result.ID,
		"filename", req.Filename,
		"kind", string(req.Kind),
		"ship_id", req.ShipID,
		"bytes", len(req.Bytes),
	)

	if _, ok := constants.Spec(req.Kind); !ok {
		return nil, fmt.Errorf("%w: unknown document kind %q", common.ErrInvalidInput, req.Kind)
	}

	// Planning
	plan, err := o.planner.Plan(ctx, chunk.Document{
		Bytes:    req.Bytes,
		Filename: req.Filename,
		MimeType: req.MimeType,
	})
	if err != nil {
		return nil, o.fail(result.ID, constants.StagePlanning, err)
	}
	result.ChunksTotal = len(plan.Chunks)

	// Extracting (bounded parallel OCR + best-effort region scan)
	analyses, regionScan, err := o.runExtraction(ctx, plan)
	if err != nil {
		return nil, o.fail(result.ID, constants.StageExtracting, err)
	}
	for _, a := range analyses {
		if a.Success {
			result.ChunksSucceeded++
		}
	}
	if result.ChunksSucceeded == 0 {
		return nil, o.fail(result.ID, constants.StageExtracting,
			fmt.Errorf("%w: %s", common.ErrExtractionFailed, firstChunkError(analyses)))
	}

	// Merging
	ranges := make([]merge.PageRange, len(plan.Chunks))
	for i, c := range plan.Chunks {
		ranges[i] = merge.PageRange{FirstPage: c.FirstPage, LastPage: c.LastPage}
	}
	summary := o.merger.Merge(analyses, ranges, merge.Meta{
		Filename:   req.Filename,
		ShipName:   req.ExpectedShipName,
		TotalPages: plan.TotalPages,
	}, regionScan)
	result.MergedText = summary.FormattedText

	// Field extraction is a hard barrier: runs once, over the complete merged text.
	extraction, err := o.extractor.ExtractFields(ctx, llm.ExtractRequest{
		MergedText: summary.FormattedText,
		Filename:   req.Filename,
		Kind:       req.Kind,
		Candidates: summary.FieldCandidates,
	})
	if err != nil {
		return nil, o.fail(result.ID, constants.StageFieldExtraction, err)
	}
	result.Fields = extraction.Fields
	result.Confidence = extraction.Confidence

	// QualityGate
	result.Quality = o.assessor.Assess(extraction.Fields, extraction.Confidence, req.Kind)
	if !result.Quality.Sufficient {
		result.Outcome = constants.OutcomeInsufficient
		result.Reason = insufficientReason(result.Quality)
		return o.finish(result), nil
	}

	// IdentityGate
	result.Identity = identity.Validate(
		extraction.Fields.ShipName(),
		extraction.Fields.ShipIMO(),
		req.ExpectedShipName,
		req.ExpectedIMO,
	)
	switch result.Identity.Kind {
	case identity.HardReject:
		result.Outcome = constants.OutcomeRejected
		result.Reason = result.Identity.Reason
		return o.finish(result), nil
	case identity.SoftWarning:
		o.logger.Warn("pipeline.identity.soft_warning",
			"analysis_id", result.ID, "reason", result.Identity.Reason)
	}

	// Duplicate gate: advisory, never terminal.
	result.Duplicate, err = o.detector.Detect(ctx, req.ShipID, extraction.Fields, req.Kind)
	if err != nil {
		return nil, o.fail(result.ID, constants.StageDuplicateGate, err)
	}

	result.Outcome = constants.OutcomeDone
	return o.finish(result), nil
}

// OverrideRequest re-enters the pipeline after a human explicitly approved
// bypassing a prior HardReject or InsufficientQuality outcome.
type OverrideRequest struct {
	Fields     llm.FieldMap
	Kind       constants.DocumentKind
	ShipID     string
	ApprovedBy string
}

// ResolveOverride skips the quality and identity gates entirely and runs
// only the duplicate gate over the approved fields.
func (o *Orchestrator) ResolveOverride(ctx context.Context, req OverrideRequest) (*AnalysisResult, error) {
	if strings.TrimSpace(req.ApprovedBy) == "" {
		return nil, fmt.Errorf("%w: override requires explicit approver", common.ErrInvalidInput)
	}
	if _, ok := constants.Spec(req.Kind); !ok {
		return nil, fmt.Errorf("%w: unknown document kind %q", common.ErrInvalidInput, req.Kind)
	}

	result := &AnalysisResult{
		ID:                 uuid.New(),
		StartedAt:          time.Now().UTC(),
		Fields:             req.Fields.Clone(),
		OverrideApprovedBy: req.ApprovedBy,
	}
	ctx = common.WithAnalysisID(ctx, result.ID.String())

	o.logger.Info("pipeline.override.start",
		"analysis_id", result.ID,
		"kind", string(req.Kind),
		"ship_id", req.ShipID,
		"approved_by", req.ApprovedBy,
	)

	var err error
	result.Duplicate, err = o.detector.Detect(ctx, req.ShipID, result.Fields, req.Kind)
	if err != nil {
		return nil, o.fail(result.ID, constants.StageDuplicateGate, err)
	}

	result.Outcome = constants.OutcomeDone
	return o.finish(result), nil
}

func (o *Orchestrator) finish(result *AnalysisResult) *AnalysisResult {
	result.FinishedAt = time.Now().UTC()
	o.logger.Info("pipeline.analyze.done",
		"analysis_id", result.ID,
		"outcome", string(result.Outcome),
		"chunks_ok", result.ChunksSucceeded,
		"chunks_total", result.ChunksTotal,
		"duplicate", result.Duplicate.IsDuplicate,
		"identity", result.Identity.Kind.String(),
		"elapsed_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	)
	return result
}

func (o *Orchestrator) fail(id uuid.UUID, stage constants.Stage, err error) error {
	o.logger.Error("pipeline.analyze.failed",
		"analysis_id", id, "stage", string(stage), "error", err)
	return fmt.Errorf("%s: %w", strings.ToLower(string(stage)), err)
}

func insufficientReason(v quality.Verdict) string {
	if len(v.MissingFields) > 0 {
		return "extraction incomplete; missing critical fields: " + strings.Join(v.MissingFields, ", ")
	}
	return fmt.Sprintf("extraction quality too low for automatic processing (confidence %.2f, overall rate %.2f)",
		v.ConfidenceScore, v.OverallExtractionRate)
}

func firstChunkError(analyses []docai.ChunkAnalysis) string {
	for _, a := range analyses {
		if !a.Success && a.Error != "" {
			return a.Error
		}
	}
	return "no chunk produced text"
}

// runExtraction fans chunk OCR calls out with bounded parallelism and races
// the targeted header/footer scan alongside them. The scan starts as soon as
// chunk 0 finishes and never blocks the main path: its failure or timeout
// feeds a nil region into the merge.
func (o *Orchestrator) runExtraction(ctx context.Context, plan chunk.Plan) ([]docai.ChunkAnalysis, *docai.RegionScan, error) {
	analyses := make([]docai.ChunkAnalysis, len(plan.Chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxParallel)

	var chunkZeroOnce sync.Once
	chunkZeroDone := make(chan struct{})

	for _, c := range plan.Chunks {
		c := c
		g.Go(func() error {
			if c.Index == 0 {
				defer chunkZeroOnce.Do(func() { close(chunkZeroDone) })
			}

			cctx, cancel := context.WithTimeout(gctx, o.cfg.ChunkTimeout)
			defer cancel()

			analysis, err := o.analyzer.Analyze(cctx, c.Bytes, c.MimeType)
			if err != nil {
				// Caller cancellation aborts the run; a chunk's own fault
				// (including its timeout) is just that chunk failing.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.Warn("pipeline.chunk.failed",
					"chunk_index", c.Index,
					"pages", fmt.Sprintf("%d-%d", c.FirstPage, c.LastPage),
					"error", err,
				)
				analyses[c.Index] = docai.ChunkAnalysis{ChunkIndex: c.Index, Error: err.Error()}
				return nil
			}
			analysis.ChunkIndex = c.Index
			analyses[c.Index] = analysis
			return nil
		})
	}

	// Best-effort enrichment: a task with a short timeout whose failure mode
	// is simply an absent result.
	var regionScan *docai.RegionScan
	regionDone := make(chan struct{})
	if o.region != nil && len(plan.Chunks) > 0 {
		firstPage := plan.FirstPage
		if firstPage == nil {
			firstPage = plan.Chunks[0].Bytes
		}
		go func() {
			defer close(regionDone)
			select {
			case <-chunkZeroDone:
			case <-ctx.Done():
				return
			}
			rctx, cancel := context.WithTimeout(ctx, o.cfg.RegionTimeout)
			defer cancel()
			scan, err := o.region.ScanHeaderFooter(rctx, firstPage)
			if err != nil {
				o.logger.Warn("pipeline.region_scan.failed", "error", err)
				return
			}
			regionScan = &scan
		}()
	} else {
		close(regionDone)
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	chunkZeroOnce.Do(func() { close(chunkZeroDone) })
	<-regionDone

	return analyses, regionScan, nil
}
