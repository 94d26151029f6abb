// Package nsmerr holds the sentinel error kinds shared across the grid,
// species, reaction, scheduler and nsm packages, so that callers can use
// errors.Is to distinguish them regardless of which package raised them.
package nsmerr

import "errors"

var (
	// ErrShapeMismatch means an array shape did not match a grid's (Nx, Ny, Nz).
	ErrShapeMismatch = errors.New("nsm: array shape mismatch")

	// ErrOutOfRange means a compartment index fell outside [0, size).
	ErrOutOfRange = errors.New("nsm: index out of range")

	// ErrNotFound means a reaction or interface lookup found no match.
	ErrNotFound = errors.New("nsm: not found")

	// ErrInvalidConfiguration means a structural setup call was invalid:
	// an unsupported grid operation, a species added after stepping began,
	// a negative rate, or an empty reaction side.
	ErrInvalidConfiguration = errors.New("nsm: invalid configuration")

	// ErrDomainViolation means a particle position fell outside the
	// grid's bounding box where containment was required.
	ErrDomainViolation = errors.New("nsm: domain violation")
)
