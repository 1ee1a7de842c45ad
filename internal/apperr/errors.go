// Package apperr holds the sentinel errors and error categories shared by
// both tools.
package apperr

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Error categories. Provider errors abort the current note; generation
// errors only skip the marker that triggered them.
const (
	CategoryProvider   goerrors.Category = "provider"
	CategoryGeneration goerrors.Category = "generation"
)

// Text codes attached to categorized errors.
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeProviderFailed   = "PROVIDER_REQUEST_FAILED"
	CodeGenerationFailed = "IMAGE_GENERATION_FAILED"
)

// Config marks err as a fatal configuration error.
func Config(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration").
		WithTextCode(CodeConfigInvalid)
}

// Provider marks err as a failed call to an external lookup service.
func Provider(err error, msg string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, CategoryProvider, msg).WithTextCode(CodeProviderFailed)
}

// Generation marks err as a failed image generation. It always wraps, so a
// provider error raised while fetching a generated image still reports as a
// generation failure.
func Generation(err error, msg string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, CategoryGeneration, msg).WithTextCode(CodeGenerationFailed)
}

// IsGeneration reports whether err is a generation failure.
func IsGeneration(err error) bool {
	return goerrors.IsCategory(err, CategoryGeneration)
}

// IsProvider reports whether err is a provider failure.
func IsProvider(err error) bool {
	return goerrors.IsCategory(err, CategoryProvider)
}

// IsConfig reports whether err is a configuration failure.
func IsConfig(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryValidation)
}
