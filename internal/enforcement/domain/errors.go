package domain

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the stable, machine-readable class of an enforcement failure.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindEligibilityRequired Kind = "eligibility_required"
	KindRateLimited         Kind = "rate_limited"
	KindBrandBlocked        Kind = "brand_blocked"
	KindChainNotAllowed     Kind = "chain_not_allowed"
	KindNotFound            Kind = "not_found"
	KindAlreadyReviewed     Kind = "already_reviewed"
	KindInvalidPayload      Kind = "invalid_payload"
	KindSchemaNotReady      Kind = "schema_not_ready"
	KindInternal            Kind = "internal"
)

// Error is returned by every enforcement operation. Score and Reasons are
// set for BrandBlocked and ChainNotAllowed; Window, Cap and RetryAfter for
// RateLimited.
type Error struct {
	Kind       Kind
	Message    string
	Score      *int
	Reasons    []string
	Window     string
	Cap        int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRateLimited)
// works regardless of the details carried.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrEligibilityRequired = &Error{Kind: KindEligibilityRequired}
	ErrRateLimited         = &Error{Kind: KindRateLimited}
	ErrBrandBlocked        = &Error{Kind: KindBrandBlocked}
	ErrChainNotAllowed     = &Error{Kind: KindChainNotAllowed}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrAlreadyReviewed     = &Error{Kind: KindAlreadyReviewed}
	ErrInvalidPayload      = &Error{Kind: KindInvalidPayload}
	ErrSchemaNotReady      = &Error{Kind: KindSchemaNotReady}
	ErrInternal            = &Error{Kind: KindInternal}
)

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
