package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifiedErrorMessage(t *testing.T) {
	cause := errors.New("undefined control sequence")
	tests := []struct {
		name string
		err  *ClassifiedError
		want string
	}{
		{"bare", ConfigError("no configuration file found").Build(), "config: no configuration file found"},
		{"with path", ValidationError("missing time").WithPath("blog/a.md").Build(), "validation: blog/a.md: missing time"},
		{"with cause", WrapError(cause, CategoryTransform, "math typesetting failed").WithPath("blog/a.md").Build(),
			"transform: blog/a.md: math typesetting failed: undefined control sequence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestClassifiedErrorDetection(t *testing.T) {
	err := fmt.Errorf("loading: %w", ConfigError("test error").Build())

	assert.True(t, IsClassified(err))
	assert.True(t, HasCategory(err, CategoryConfig))
	assert.False(t, HasCategory(err, CategoryRender))
	assert.Equal(t, SeverityFatal, GetSeverity(err))
	assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	assert.Equal(t, SeverityError, GetSeverity(errors.New("plain")))
}

func TestErrorBuilder(t *testing.T) {
	original := errors.New("exit status 1")
	err := WrapError(original, CategoryExternal, "search indexer failed").
		Warning().
		WithContext("command", "pagefind").
		Build()

	assert.Equal(t, CategoryExternal, err.Category())
	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, "pagefind", err.Context()["command"])
	assert.Empty(t, err.Path())
	assert.ErrorIs(t, err, original)
	assert.False(t, err.IsFatal())
}

func TestConstructorSeverities(t *testing.T) {
	tests := []struct {
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
	}{
		{ConfigError("x"), CategoryConfig, SeverityFatal},
		{ValidationError("x"), CategoryValidation, SeverityFatal},
		{TransformError("x"), CategoryTransform, SeverityFatal},
		{RenderError("x"), CategoryRender, SeverityFatal},
		{ExternalError("x"), CategoryExternal, SeverityError},
		{InternalError("x"), CategoryInternal, SeverityFatal},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := tt.builder.Build()
			assert.Equal(t, tt.category, err.Category())
			assert.Equal(t, tt.severity, err.Severity())
		})
	}
}

func TestErrorContext(t *testing.T) {
	a := ErrorContext{}.Set("b", 2).Set("shared", "original")
	b := ErrorContext{}.Set("a", 1).Set("shared", "override")

	merged := a.Merge(b)
	assert.Equal(t, "override", merged["shared"])
	assert.Equal(t, "original", a["shared"])

	attrs := merged.Attrs()
	keys := make([]string, 0, len(attrs))
	for _, at := range attrs {
		keys = append(keys, at.Key)
	}
	assert.Equal(t, []string{"a", "b", "shared"}, keys)
	assert.Equal(t, slog.KindInt64, attrs[0].Value.Kind())
	assert.Empty(t, ErrorContext(nil).Attrs())
}

func TestClassifiedError_WithContextDoesNotMutate(t *testing.T) {
	base := ValidationError("no metadata").Build()
	derived := base.WithContext(pathKey, "blog/a.md")

	assert.Empty(t, base.Path())
	assert.Equal(t, "blog/a.md", derived.Path())
	assert.ErrorIs(t, derived, base)
}
