package service

import (
	"errors"
	"fmt"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrOwnerRequired = errors.New("owner is required")
	ErrReaderNil     = errors.New("reader is nil")

	// ErrNotFound means the document, or a live grant for it, does not exist.
	ErrNotFound  = errors.New("document not found")
	ErrForbidden = errors.New("requester does not own the document")

	ErrEncodingFailed   = errors.New("artifact encoding failed")
	ErrRevocationFailed = errors.New("revocation failed")

	// ErrUpstreamUnavailable marks a failure reaching the object store or the
	// document directory. It never means "does not exist".
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
}
