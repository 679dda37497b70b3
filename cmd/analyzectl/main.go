package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/alias"
	"github.com/harborview/shipdocs/internal/batch"
	"github.com/harborview/shipdocs/internal/chunk"
	"github.com/harborview/shipdocs/internal/common"
	"github.com/harborview/shipdocs/internal/dedup"
	"github.com/harborview/shipdocs/internal/docai"
	"github.com/harborview/shipdocs/internal/llm"
	"github.com/harborview/shipdocs/internal/merge"
	"github.com/harborview/shipdocs/internal/pipeline"
	"github.com/harborview/shipdocs/internal/quality"
	"github.com/harborview/shipdocs/internal/store"
)

// nullStore serves runs without a document store configured: the duplicate
// gate then always reports no match.
type nullStore struct{}

func (nullStore) FindOne(context.Context, string, map[string]any) (map[string]any, error) {
	return nil, nil
}

func main() {
	var (
		filePath = flag.String("file", "", "path to the document to analyze")
		dirPath  = flag.String("dir", "", "analyze every supported file under this directory instead of -file")
		kindStr  = flag.String("kind", "certificate", "document kind (certificate|survey_report|test_report|audit_report|audit_certificate)")
		shipID   = flag.String("ship-id", "", "ship record id for duplicate lookup")
		shipName = flag.String("ship-name", "", "expected ship name")
		shipIMO  = flag.String("imo", "", "expected IMO number")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *filePath == "" && *dirPath == "" {
		logger.Error("missing -file or -dir")
		os.Exit(2)
	}
	kind, ok := constants.ParseKind(*kindStr)
	if !ok {
		logger.Error("unknown document kind", "kind", *kindStr)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	aliases, err := alias.New(cfg.Pipeline.AliasTablePath, logger)
	if err != nil {
		logger.Error("load alias table", "error", err)
		os.Exit(1)
	}

	var docStore dedup.Store = nullStore{}
	if cfg.Store.URI != "" {
		m, err := store.Open(ctx, store.Config{
			URI:      cfg.Store.URI,
			Database: cfg.Store.Database,
		}, logger)
		if err != nil {
			logger.Error("open document store", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Close(closeCtx); err != nil {
				logger.Warn("close document store", "error", err)
			}
		}()
		docStore = m
	}

	docaiClient := docai.NewClient(docai.Config{
		Endpoint:       cfg.DocAI.Endpoint,
		RegionEndpoint: cfg.DocAI.RegionEndpoint,
		APIKey:         cfg.DocAI.APIKey,
		Timeout:        cfg.DocAI.Timeout,
		RegionTimeout:  cfg.DocAI.RegionTimeout,
		RatePerSecond:  cfg.DocAI.RatePerSecond,
		RateBurst:      cfg.DocAI.RateBurst,
	}, logger)

	var region docai.RegionScanner
	if cfg.DocAI.RegionEndpoint != "" {
		region = docaiClient
	}

	orch := pipeline.NewOrchestrator(
		pipeline.Config{
			MaxParallel:   cfg.Pipeline.MaxParallel,
			ChunkTimeout:  cfg.DocAI.Timeout,
			RegionTimeout: cfg.Pipeline.RegionScanAfter,
		},
		chunk.NewPlanner(chunk.Config{
			SplitThreshold: cfg.Pipeline.SplitThreshold,
			MaxChunkPages:  cfg.Pipeline.MaxChunkPages,
		}, logger),
		docaiClient,
		region,
		merge.NewEngine(logger),
		llm.NewClient(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, llm.NewNormalizer(aliases, logger), logger),
		quality.NewAssessor(quality.Thresholds{
			MinConfidence:  cfg.Pipeline.MinConfidence,
			MinOverallRate: cfg.Pipeline.MinOverallRate,
		}, logger),
		dedup.NewDetector(docStore, logger),
		logger,
	)

	tmpl := pipeline.AnalyzeRequest{
		Kind:             kind,
		ShipID:           *shipID,
		ExpectedShipName: *shipName,
		ExpectedIMO:      *shipIMO,
	}

	if *dirPath != "" {
		walker := batch.NewWalker(orch, logger)
		results, stats, err := walker.AnalyzeDirectory(ctx, *dirPath, tmpl, true)
		if err != nil {
			logger.Error("directory analysis failed", "error", err)
			os.Exit(1)
		}
		printBatch(results, stats)
		return
	}

	payload, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("read file", "path", *filePath, "error", err)
		os.Exit(1)
	}
	req := tmpl
	req.Bytes = payload
	req.Filename = filepath.Base(*filePath)
	req.MimeType = mime.TypeByExtension(filepath.Ext(*filePath))
	if req.MimeType == "" {
		req.MimeType = constants.MimeTypes[constants.NormalizeExt(filepath.Ext(*filePath))]
	}

	result, err := orch.Analyze(ctx, req)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	printResult(result)
}

// printBatch emits one line per file plus the aggregate counters.
func printBatch(results []batch.FileResult, stats batch.Stats) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"files": results, "stats": stats}); err != nil {
		fmt.Fprintln(os.Stderr, "encode result:", err)
	}
}

// printResult emits a compact JSON summary to stdout; the raw bytes and full
// merged text stay out of it.
func printResult(result *pipeline.AnalysisResult) {
	summary := map[string]any{
		"analysis_id":      result.ID.String(),
		"outcome":          string(result.Outcome),
		"fields":           result.Fields,
		"confidence":       result.Confidence,
		"quality":          result.Quality,
		"identity":         result.Identity.Kind.String(),
		"chunks_total":     result.ChunksTotal,
		"chunks_succeeded": result.ChunksSucceeded,
	}
	if result.Reason != "" {
		summary["reason"] = result.Reason
	}
	if result.Identity.OverrideNote != "" {
		summary["override_note"] = result.Identity.OverrideNote
	}
	if result.Duplicate.IsDuplicate {
		summary["duplicate"] = result.Duplicate
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		fmt.Fprintln(os.Stderr, "encode result:", err)
	}
}
