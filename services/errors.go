package services

import (
	"errors"
	"fmt"
)

// Ledger errors. Handlers classify with errors.Is.
var (
	// ErrRespondentNotFound: the respondent is unknown (or was removed).
	ErrRespondentNotFound = errors.New("respondent not found")
	// ErrInsufficientBalance: fewer than 100 unconsumed accepted academic
	// responses at transaction time.
	ErrInsufficientBalance = errors.New("not enough accepted academic responses to exchange for a survey creation pass")
	// ErrNothingToClaim: no accepted, unclaimed commerce rewards with a
	// positive total at transaction time.
	ErrNothingToClaim = errors.New("no commerce rewards available to claim")
	// ErrUpstreamUnavailable: the record store failed; the caller may retry.
	ErrUpstreamUnavailable = errors.New("record store unavailable")
)

// Survey and response errors.
var (
	ErrSurveyNotFound    = errors.New("survey not found")
	ErrSurveyClosed      = errors.New("survey is closed")
	ErrOwnSurvey         = errors.New("survey owners cannot answer their own survey")
	ErrDuplicateResponse = errors.New("respondent already answered this survey")
	ErrResponseNotFound  = errors.New("response not found")
	ErrNotSurveyOwner    = errors.New("only the survey owner can do this")
	ErrInvalidTransition = errors.New("response has already been reviewed")
	ErrInvalidDecision   = errors.New("decision must be accepted or rejected")
	ErrNoSurveyPass      = errors.New("a survey creation pass is required to author a survey")
	ErrInvalidSurvey     = errors.New("invalid survey")
)

// upstream wraps a store failure so callers can match ErrUpstreamUnavailable
// while the cause stays in the message.
func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
