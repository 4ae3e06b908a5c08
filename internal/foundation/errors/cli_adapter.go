package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if classified, ok := AsClassified(err); ok {
		return exitCodeFromCategory(classified.Category())
	}
	return 1
}

func exitCodeFromCategory(category ErrorCategory) int {
	switch category {
	case CategoryValidation:
		return 2 // invalid usage
	case CategoryConfig, CategoryCycle:
		return 7
	case CategoryNotFound:
		return 8
	case CategoryExternal, CategoryProtocol:
		return 9
	case CategoryInternal:
		return 10
	case CategoryBuild, CategoryFileSystem, CategoryLoad:
		return 11
	case CategoryRuntime:
		return 12
	default:
		return 1
	}
}

// FormatError renders the error message and its causal chain.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	chain := Chain(err)
	if len(chain) == 0 {
		return "Error: " + err.Error()
	}

	var b strings.Builder
	b.WriteString("Error: ")
	if a.verbose {
		if classified, ok := AsClassified(err); ok {
			fmt.Fprintf(&b, "[%s:%s] ", classified.Category(), classified.Severity())
		}
	}
	b.WriteString(chain[0])
	for _, cause := range chain[1:] {
		b.WriteString("\n\tCaused by: ")
		b.WriteString(cause)
	}
	return b.String()
}

// Report logs the error and writes the user-facing message. It returns the exit code.
func (a *CLIErrorAdapter) Report(err error) int {
	if err == nil {
		return 0
	}
	if a.verbose {
		a.logError(err)
	}
	fmt.Fprintln(a.out, a.FormatError(err))
	return a.ExitCodeFor(err)
}

// HandleError reports the error and exits the program with the matching code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(a.Report(err))
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
	for k, v := range classified.Context() {
		attrs = append(attrs, slog.Any(k, v))
	}
	a.logger.LogAttrs(context.Background(), slogLevelFromSeverity(classified.Severity()), classified.Message(), attrs...)
}

func slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
