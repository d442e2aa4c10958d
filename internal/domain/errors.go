package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidIndex    = errors.New("invalid index")
	ErrInvalidSectionID = errors.New("invalid section id")

	ErrNotFound        = errors.New("not found")
	ErrUnknownSection  = errors.New("unknown section")
	ErrUnknownTask     = errors.New("unknown task")
	ErrDuplicateEntry  = errors.New("duplicate entry")
	ErrOrderDiverged   = errors.New("order diverged from entity set")
)
