package ports

import "errors"

// Standard application-level errors.
// Adapters and engine components wrap underlying errors with these.
var (
	// General Errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrNotFound        = errors.New("resource not found")
	ErrContextCanceled = errors.New("operation canceled via context")
	ErrInvalidConfig   = errors.New("invalid or missing configuration")

	// Engine Errors
	ErrInsufficientData    = errors.New("insufficient data for lookback")
	ErrInvalidParameterSet = errors.New("invalid parameter set")
	ErrNoViableCandidate   = errors.New("no parameter combination met the acceptance criteria")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidRequest       = errors.New("invalid request parameters or format")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
