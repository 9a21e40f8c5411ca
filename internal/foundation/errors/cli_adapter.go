package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Exit codes by category. Unclassified errors exit with 1.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryConfig:     7,
	CategoryExternal:   8,
	CategoryContent:    9,
	CategoryTransform:  9,
	CategoryRender:     9,
	CategoryInternal:   10,
	CategoryBuild:      11,
	CategoryFileSystem: 11,
}

// MsgNoConfig is the message of the error returned when no configuration
// file is found; the CLI suggests `inkpress init` for it.
const MsgNoConfig = "no configuration file found"

// CLIErrorAdapter prints an error, logs its context and exits with the code
// of its category.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor determines the process exit code for err.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if classified, ok := AsClassified(err); ok {
		if code, ok := exitCodes[classified.Category()]; ok {
			return code
		}
	}
	return 1
}

// FormatError renders err as the one-line message printed to the user.
// Internal errors stay terse unless verbose.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	switch {
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return classified.Error()
	case classified.Category() == CategoryInternal:
		return "Internal error occurred (use -v for details)"
	}
	msg := classified.Message()
	if p := classified.Path(); p != "" {
		msg = p + ": " + msg
	}
	if cause := classified.Cause(); cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	if classified.Category() == CategoryConfig && classified.Message() == MsgNoConfig {
		msg += " (run `inkpress init` to create one)"
	}
	return "Error: " + msg
}

// HandleError logs and prints err, then exits with the mapped code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if classified, ok := AsClassified(err); !ok {
		a.logger.Error("Unclassified error", "error", err)
	} else if a.verbose || classified.IsFatal() {
		a.log(classified)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

func (a *CLIErrorAdapter) log(classified *ClassifiedError) {
	attrs := append([]slog.Attr{slog.String("category", string(classified.Category()))}, classified.Context().Attrs()...)
	if cause := classified.Cause(); cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	level := slog.LevelError
	switch classified.Severity() {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityInfo:
		level = slog.LevelInfo
	}
	a.logger.LogAttrs(context.Background(), level, classified.Message(), attrs...)
}
