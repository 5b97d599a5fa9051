package common

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input or configuration
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Reason)
}

// InsufficientDataError reports a price history shorter than a calculation needs
type InsufficientDataError struct {
	Ticker        string
	RequiredDays  int
	AvailableDays int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d days, have %d", e.Ticker, e.RequiredDays, e.AvailableDays)
}

// TickerNotFoundError reports a ticker the data provider does not know
type TickerNotFoundError struct {
	Ticker string
}

func (e *TickerNotFoundError) Error() string {
	return fmt.Sprintf("ticker not found: %s", e.Ticker)
}

// MarketDataError wraps a provider transport or availability failure
type MarketDataError struct {
	Ticker string
	Op     string
	Err    error
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("market data %s failed for %s: %v", e.Op, e.Ticker, e.Err)
}

func (e *MarketDataError) Unwrap() error {
	return e.Err
}

// TimeoutError marks a batch slot that did not finish before its deadline
type TimeoutError struct {
	Ticker string
	Err    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scoring %s timed out: %v", e.Ticker, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a TickerNotFoundError.
func IsNotFound(err error) bool {
	var target *TickerNotFoundError
	return errors.As(err, &target)
}

// IsInsufficientData reports whether err is an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}
