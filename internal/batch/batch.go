package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/pipeline"
)

// FileResult is the per-file outcome of a directory run. Err is set for files
// that failed before producing a pipeline result; business outcomes (rejected,
// insufficient) land in Outcome, not Err.
type FileResult struct {
	SourcePath string
	AnalysisID string
	Outcome    constants.Outcome
	SHA256     string
	Err        string
}

// Stats summarizes a directory run.
type Stats struct {
	Scanned      uint32
	Matched      uint32
	Done         uint32
	Insufficient uint32
	Rejected     uint32
	Failed       uint32
}

// Runner is the analysis capability a Walker drives, one call per file.
type Runner interface {
	Analyze(ctx context.Context, req pipeline.AnalyzeRequest) (*pipeline.AnalysisResult, error)
}

// Walker feeds local files through the analysis pipeline. Files are processed
// sequentially; the pipeline already overlaps chunk OCR internally, and the
// document AI backend is rate limited, so fanning out across files buys
// nothing.
type Walker struct {
	runner Runner
	logger *slog.Logger
}

func NewWalker(runner Runner, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{runner: runner, logger: logger}
}

// AllowedExt reports whether a file extension is in the accepted upload set.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden reports whether a file or directory name starts with '.'.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// AnalyzePath runs one local file through the pipeline. The template carries
// the ship identity and document kind; bytes, filename and mime type come
// from the file itself.
func (w *Walker) AnalyzePath(ctx context.Context, path string, tmpl pipeline.AnalyzeRequest) (FileResult, error) {
	out := FileResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension %q", ext)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return out, err
	}
	sum := sha256.Sum256(raw)
	out.SHA256 = hex.EncodeToString(sum[:])

	req := tmpl
	req.Bytes = raw
	req.Filename = filepath.Base(abs)
	req.MimeType = constants.MimeTypes[ext]

	result, err := w.runner.Analyze(ctx, req)
	if err != nil {
		return out, err
	}
	out.AnalysisID = result.ID.String()
	out.Outcome = result.Outcome
	return out, nil
}

// AnalyzeDirectory walks root, filters to the accepted extensions, skips
// hidden entries when asked, and analyzes every matching file. Faults are
// recorded per entry (an unreadable root included) and the walk continues;
// only a caller cancellation aborts the run.
func (w *Walker) AnalyzeDirectory(ctx context.Context, root string, tmpl pipeline.AnalyzeRequest, skipHidden bool) ([]FileResult, Stats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, Stats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats Stats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := w.AnalyzePath(ctx, path, tmpl)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			w.logger.Warn("batch.file.failed", "path", path, "error", err)
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}

		results = append(results, r)
		switch r.Outcome {
		case constants.OutcomeDone:
			stats.Done++
		case constants.OutcomeInsufficient:
			stats.Insufficient++
		case constants.OutcomeRejected:
			stats.Rejected++
		}
		w.logger.Info("batch.file.analyzed",
			"path", path, "analysis_id", r.AnalysisID, "outcome", string(r.Outcome))
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk %s: %w", root, err)
	}

	w.logger.Info("batch.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"done", stats.Done,
		"insufficient", stats.Insufficient,
		"rejected", stats.Rejected,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
