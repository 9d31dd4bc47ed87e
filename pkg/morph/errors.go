package morph

import "errors"

// Sentinel errors for programmatic checking with errors.Is.
var (
	ErrInvalidRoot      = errors.New("invalid root")
	ErrInvalidTemplate  = errors.New("invalid template")
	ErrPatternNotFound  = errors.New("pattern not found")
	ErrPatternExists    = errors.New("pattern already exists")
	ErrEmptyPatternName = errors.New("pattern name cannot be empty")
	ErrRootNotFound     = errors.New("root not found")
	ErrUnknownFormat    = errors.New("unknown export format")
)
