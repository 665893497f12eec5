package landport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress represents a malformed Ethereum address
	ErrInvalidAddress = errors.New("invalid ethereum address")

	// ErrPaymentTokenRequired is returned when a buy-side order names no
	// ERC20 payment token
	ErrPaymentTokenRequired = errors.New("ERC20 payment token required")

	// ErrUnsupportedSchema is returned for token standards the exchange
	// cannot settle
	ErrUnsupportedSchema = errors.New("unsupported token schema")

	// ErrInsufficientBalance is returned when the account cannot cover
	// the trade
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnsupportedNetwork is returned for networks without a known
	// contract deployment
	ErrUnsupportedNetwork = errors.New("unsupported network")
)

// ValidationError reports invalid order parameters detected before
// any network call
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError reports a failure to obtain or verify the maker
// signature of an order
type AuthorizationError struct {
	Message string
	Err     error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// MatchValidationError reports that the exchange rejected one side of
// a match after the retry budget was exhausted
type MatchValidationError struct {
	Side    string
	Message string
}

func (e *MatchValidationError) Error() string {
	return fmt.Sprintf("%s order is not valid: %s", e.Side, e.Message)
}

// ChainReadError reports an on-chain read that kept failing after
// retries
type ChainReadError struct {
	Op  string
	Err error
}

func (e *ChainReadError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ChainReadError) Unwrap() error {
	return e.Err
}

// APIError reports a non-2xx response from the orderbook API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("orderbook API error (status %d): %s", e.StatusCode, e.Message)
}
