package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned when no snapshot has ever been built and the
// first refresh failed. It is the only pipeline failure that reaches callers.
var ErrUnavailable = errors.New("property data unavailable")

// FetchError is a network, timeout or non-success status failure for one
// provider.
type FetchError struct {
	Provider   string
	URL        string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: http status %d", e.Provider, e.StatusCode)
	case e.Timeout:
		return fmt.Sprintf("fetch %s: timed out: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could plausibly succeed.
func (e *FetchError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ParseError means a provider's document could not be parsed at all.
type ParseError struct {
	Provider string
	Format   string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.Provider, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RecordDropped describes a single record skipped during decode or
// normalization.
type RecordDropped struct {
	Provider string
	Key      string
	Reason   string
}

func (e *RecordDropped) Error() string {
	return fmt.Sprintf("record %s/%s dropped: %s", e.Provider, e.Key, e.Reason)
}

// StaleServed signals that a refresh failed entirely and the previous
// snapshot is still being served.
type StaleServed struct {
	SnapshotAge time.Duration
	Err         error
}

func (e *StaleServed) Error() string {
	return fmt.Sprintf("refresh failed, serving snapshot aged %s: %v", e.SnapshotAge.Round(time.Second), e.Err)
}

func (e *StaleServed) Unwrap() error { return e.Err }
