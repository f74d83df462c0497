package dataset

import "errors"

var (
	// ErrPathTraversal indicates a plan entry would escape the base directory.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrInvalidPlan indicates the plan file could not be understood.
	ErrInvalidPlan = errors.New("invalid reorganize plan")

	// ErrDestinationExists indicates the move target is already present.
	ErrDestinationExists = errors.New("destination file already exists")

	// ErrCopyFailed indicates the cross-device copy fallback failed.
	ErrCopyFailed = errors.New("failed to copy file")
)
