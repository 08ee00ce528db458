package store

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRecord indicates a record without an id field.
	ErrInvalidRecord = errors.New("record has no id")

	// ErrUnknownCollection indicates an operation named a collection the
	// engine does not manage.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrUnknownIndex indicates the collection does not maintain the
	// requested index.
	ErrUnknownIndex = errors.New("unknown index for collection")

	// ErrSchemaTooNew indicates the database was written by a newer build.
	ErrSchemaTooNew = errors.New("database schema is newer than this build")
)
