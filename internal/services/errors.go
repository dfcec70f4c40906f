// Package services defines the business logic for polls, votes, and user
// accounts. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import (
	"errors"
	"strings"
)

// Identity-related errors.
var (
	// ErrUnauthenticated is returned when an operation that requires a signed-in
	// user is invoked without one.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidCredentials is returned for every login failure that involves
	// the submitted email or password: unknown account, wrong password, or a
	// soft-deleted user. The cases are deliberately indistinguishable so the
	// response never confirms whether an address is registered.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registration collides with an existing
	// account on the same email address.
	ErrEmailTaken = errors.New("an account with this email already exists")

	// ErrRateLimited is returned when the attempt limiter has seen too many
	// login or registration attempts for an email within the current window.
	ErrRateLimited = errors.New("too many attempts, please try again later")
)

// Poll- and vote-related errors.
var (
	// ErrPollNotFound indicates that the requested poll does not exist or is
	// not accessible to the current user. Missing polls and foreign polls
	// produce the same error so ownership probing learns nothing.
	ErrPollNotFound = errors.New("poll not found")

	// ErrOptionOutOfRange is returned when a vote names an option index the
	// poll does not have.
	ErrOptionOutOfRange = errors.New("option index out of range")

	// ErrDuplicateVote is returned when an authenticated user attempts to vote
	// a second time on the same poll.
	ErrDuplicateVote = errors.New("you have already voted on this poll")
)

// ErrStoreUnavailable replaces infrastructure-level store failures (timeouts,
// connectivity) after they have been logged. Raw driver errors never cross
// the service boundary.
var ErrStoreUnavailable = errors.New("storage temporarily unavailable")

// ErrValidation is the sentinel matched by errors.Is for any *ValidationError.
// Use errors.As to recover the individual messages.
var ErrValidation = errors.New("validation failed")

// ValidationError carries every rule violated by one request, so callers can
// surface the complete list instead of the first failure.
type ValidationError struct {
	Messages []string
}

// Error joins the individual messages into a single string.
func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(e.Messages, "; ")
}

// Is reports true for ErrValidation so callers can branch on the class of
// failure without inspecting messages.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// newValidationError wraps a non-empty message list; it returns nil when
// nothing was violated so callers can return it unconditionally.
func newValidationError(msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	return &ValidationError{Messages: msgs}
}
