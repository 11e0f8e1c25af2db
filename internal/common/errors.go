// Package common defines shared constants and sentinel errors used across
// the cloud drive server. Callers should use errors.Is to match these values;
// services wrap them with a human-readable detail, e.g.
//
//	fmt.Errorf("%w: parent folder not found", common.ErrNotFound)
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument covers malformed input, illegal state transitions,
	// cycles and expired upload sessions.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned for missing, deleted or foreign-owner entities.
	ErrNotFound = errors.New("not found")

	// ErrConflict signals an optimistic-lock mismatch, a name collision or a
	// concurrent completion race. Callers may retry with fresh state.
	ErrConflict = errors.New("conflict")

	// ErrInternal marks an inconsistency between upload sessions and the
	// version ledger.
	ErrInternal = errors.New("internal error")

	// ErrUnauthorized is returned when no valid owner identity is present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken is returned for malformed or badly signed access tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Repository-level errors. Both wrap ErrConflict so a caller that does not
// care about the distinction can still match the broader category.
var (
	// ErrVersionConflict is returned when a conditional update matched no
	// row because the row changed since it was read.
	ErrVersionConflict = fmt.Errorf("%w: version conflict", ErrConflict)

	// ErrAlreadyExists is returned when an insert or update hits a unique index.
	ErrAlreadyExists = fmt.Errorf("%w: already exists", ErrConflict)
)
