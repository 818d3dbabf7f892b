package postgres

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected = errors.New("database not connected")
	ErrNotFound     = errors.New("document not found")
)

// ConnectionError is returned when the server cannot be reached or rejects
// the credentials.
func ConnectionError(host string, port int, database, user string, cause error) error {
	return fmt.Errorf("connect to %s:%d/%s as %s: %w", host, port, database, user, cause)
}

// CreateDatabaseError is returned when the target database is missing and
// cannot be created.
func CreateDatabaseError(database string, cause error) error {
	return fmt.Errorf("create database %s: %w", database, cause)
}

// SchemaError is returned when the collections cannot be created.
func SchemaError(cause error) error {
	return fmt.Errorf("ensure collections: %w", cause)
}

// WriteError is returned when a document write fails.
func WriteError(collection, key string, cause error) error {
	return fmt.Errorf("write %s/%s: %w", collection, key, cause)
}

// NotFoundError is returned when a lookup by key matches nothing.
func NotFoundError(collection, key string) error {
	return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
}
