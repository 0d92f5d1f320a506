package tierkv

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tierkv/core"
)

var (
	// ErrNotFound is returned when a key exists in neither the hot tier nor
	// the cold store.
	ErrNotFound = errors.New("tierkv: key not found")

	// ErrMemoryLimitExceeded is the sentinel behind MemoryLimitError.
	ErrMemoryLimitExceeded = errors.New("tierkv: memory limit exceeded")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("tierkv: engine closed")

	// ErrInvalidDB is returned when a database id is out of range.
	ErrInvalidDB = errors.New("tierkv: invalid database id")
)

// MemoryLimitError reports a write rejected at the memory limit. Freed tells
// whether reclamation was attempted at all: with the no-eviction policy it is
// zero and the limit itself is the cause; otherwise it counts the bytes the
// reclamation loop managed to free before giving up.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type MemoryLimitError struct {
	Policy core.EvictionPolicy
	Used   int64
	Limit  int64
	Freed  int64
	cause  error
}

func (e *MemoryLimitError) Error() string {
	msg := fmt.Sprintf("memory limit exceeded: used %d of %d under policy %s (freed %d)",
		e.Used, e.Limit, e.Policy, e.Freed)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *MemoryLimitError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrMemoryLimitExceeded, e.cause}
	}
	return []error{ErrMemoryLimitExceeded}
}

// PersistenceError reports a cold store batch that failed midway. The
// candidates past Persisted remain queued and will be retried.
//
// The original underlying error can be accessed via errors.Unwrap.
type PersistenceError struct {
	Persisted int
	Attempted int
	cause     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %d of %d persisted: %v", e.Persisted, e.Attempted, e.cause)
}

func (e *PersistenceError) Unwrap() error { return e.cause }
