package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// NewError starts an error of category with severity SeverityError.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
	}
}

// WrapError starts an error that wraps err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// WithPath records the file the error is about. It is shown in the message.
func (b *ErrorBuilder) WithPath(path string) *ErrorBuilder {
	return b.WithContext(pathKey, path)
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	b.severity = SeverityFatal
	return b
}

func (b *ErrorBuilder) Warning() *ErrorBuilder {
	b.severity = SeverityWarning
	return b
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// ConfigError creates a fatal configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError creates a fatal error for invalid content metadata.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// TransformError creates a fatal content transform error.
func TransformError(message string) *ErrorBuilder {
	return NewError(CategoryTransform, message).Fatal()
}

// RenderError creates a fatal prerender error.
func RenderError(message string) *ErrorBuilder {
	return NewError(CategoryRender, message).Fatal()
}

// ExternalError creates an error for a failed external tool invocation.
func ExternalError(message string) *ErrorBuilder {
	return NewError(CategoryExternal, message)
}

// InternalError creates a fatal internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
