package internal

import (
	"errors"
	"fmt"
)

// Sentinel categories for provider failures. Backends wrap these so callers
// can classify with errors.Is without depending on concrete error types.
var (
	ErrNotConfigured   = errors.New("source not configured")
	ErrUnavailable     = errors.New("source unavailable")
	ErrCorruptRecord   = errors.New("corrupt record")
	ErrSessionNotFound = errors.New("session not found")
)

// PathError reports a source whose base directory could not be resolved.
type PathError struct {
	Source string
	Err    error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path error [%s]: %v", e.Source, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// StoreError represents errors accessing a source store
type StoreError struct {
	Source string
	Path   string
	Op     string // "open", "read", "query"
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s] %s %s: %v", e.Source, e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing a single record
type ParseError struct {
	Source string
	Key    string // storage key, file path, or file:line
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return ErrCorruptRecord
}

// NotFoundError reports a session ID that does not resolve under any backend.
// This is the only provider failure surfaced to callers as an error; every
// other category degrades to warnings and partial results.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrSessionNotFound
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a session lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsNotConfigured reports whether err means a source has no resolvable path.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsUnavailable reports whether err means a source's store is missing,
// structurally invalid, or stayed locked through retries.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
