package models

import "errors"

// Validation failures returned to the immediate caller. None are retried or
// swallowed by the core; retry policy belongs to the calling collaborator.
var (
	ErrDuplicateActiveMigration = errors.New("an active migration already exists")
	ErrUnknownMigration         = errors.New("unknown migration")
	ErrInvalidTransition        = errors.New("invalid state transition")
	ErrRegressionRejected       = errors.New("update would regress committed progress")
	ErrBaselineAlreadySet       = errors.New("baseline snapshot already set")
	ErrDivergentSnapshot        = errors.New("snapshot growth exceeds declared total size")
	ErrUnknownPerson            = errors.New("unknown person")
)
