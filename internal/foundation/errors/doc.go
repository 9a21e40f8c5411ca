// Package errors provides the classified error primitives used across inkpress.
//
// Every failure that leaves a package carries a category (config, validation,
// content, transform, render, filesystem, external, build, internal), a severity
// and structured context. The CLI adapter maps categories to process exit codes.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryTransform, "math typesetting failed").
//		Fatal().
//		WithPath(rel).
//		Build()
package errors
