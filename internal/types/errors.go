package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrNoData        = errors.New("no data")
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrUnknownSite   = errors.New("unknown site")
	ErrUnknownScreen = errors.New("unknown screen")
	ErrStopped       = errors.New("scheduler already started")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while decoding a JSON or CSV payload.
type ParseError struct {
	URL    string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (format=%s): %v", e.URL, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while archiving readings.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RenderError wraps errors raised by a render surface.
type RenderError struct {
	Surface string
	Element string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error on %s (element=%q): %v", e.Surface, e.Element, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PipelineError wraps errors raised by a normalization stage.
type PipelineError struct {
	Stage string
	Site  string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q (site=%s): %v", e.Stage, e.Site, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
