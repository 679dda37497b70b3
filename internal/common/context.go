package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID  contextKey = "request_id"
	ContextKeyAnalysisID contextKey = "analysis_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithAnalysisID tags the context with the current analysis run id so
// adapter-level log events can be correlated with the pipeline run.
func WithAnalysisID(ctx context.Context, analysisID string) context.Context {
	return context.WithValue(ctx, ContextKeyAnalysisID, analysisID)
}

// AnalysisIDFromContext extracts the analysis ID from context
func AnalysisIDFromContext(ctx context.Context) string {
	if analysisID, ok := ctx.Value(ContextKeyAnalysisID).(string); ok {
		return analysisID
	}
	return ""
}
