package errors

import (
	"log/slog"
	"maps"
	"slices"
)

// ErrorCategory says which part of the pipeline a failure belongs to. The CLI
// maps it to an exit code.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Content pipeline.
	CategoryContent   ErrorCategory = "content"
	CategoryTransform ErrorCategory = "transform"
	CategoryRender    ErrorCategory = "render"

	// CategoryExternal covers git, the bundler, the render process and the
	// search indexer.
	CategoryExternal ErrorCategory = "external"

	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity decides whether a stage keeps going.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // aborts the build
	SeverityError   ErrorSeverity = "error"   // fails the current operation
	SeverityWarning ErrorSeverity = "warning" // recorded, build continues
	SeverityInfo    ErrorSeverity = "info"
)

// ErrorContext is structured detail attached to an error.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Merge returns a new context holding both, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}

// Attrs renders the context as slog attributes ordered by key.
func (c ErrorContext) Attrs() []slog.Attr {
	out := make([]slog.Attr, 0, len(c))
	for _, k := range slices.Sorted(maps.Keys(c)) {
		out = append(out, slog.Any(k, c[k]))
	}
	return out
}
