package domain

import "errors"

// Sentinel errors for the chat core. Adapters wrap the classifying sentinel
// with %w so callers can use errors.Is across the boundary.
var (
	// ErrEmptyMessage rejects blank or whitespace-only input.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrBusy rejects a submission while another is in flight.
	ErrBusy = errors.New("a submission is already in flight")
	// ErrNoIdentity rejects operations without an authenticated user.
	ErrNoIdentity = errors.New("no authenticated user")
	// ErrNotFound reports a read or update against a deleted record.
	ErrNotFound = errors.New("session not found")
	// ErrStoreUnavailable reports a transport or auth failure at the store.
	ErrStoreUnavailable = errors.New("chat store unavailable")
	// ErrUpstream reports a completion call failure of any flavor.
	ErrUpstream = errors.New("completion upstream failed")
	// ErrStale marks a result discarded by generation fencing: the active
	// session changed while the operation was in flight.
	ErrStale = errors.New("stale result discarded: active session changed")
)

// Kind is the closed taxonomy every failure collapses into at the
// controller boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUpstream
	KindStoreUnavailable
	KindNotFound
	KindStale
)

// KindOf classifies an error chain into the taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrBusy), errors.Is(err, ErrNoIdentity):
		return KindValidation
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrStale):
		return KindStale
	default:
		return KindUnknown
	}
}
