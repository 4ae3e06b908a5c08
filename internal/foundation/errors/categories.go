package errors

import "maps"

// ErrorCategory classifies a failure for routing and exit codes.
type ErrorCategory string

const (
	// CategoryConfig covers malformed configuration tables and values.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// CategoryCycle is an unsatisfiable set of ordering constraints.
	CategoryCycle ErrorCategory = "cycle"

	// CategoryNotFound is a required external executable that could not be spawned.
	CategoryNotFound ErrorCategory = "not_found"
	CategoryExternal ErrorCategory = "external"
	CategoryProtocol ErrorCategory = "protocol"

	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryLoad       ErrorCategory = "load"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // aborts the build
	SeverityError   ErrorSeverity = "error"   // fails the current operation
	SeverityWarning ErrorSeverity = "warning" // logged, build continues
	SeverityInfo    ErrorSeverity = "info"
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
