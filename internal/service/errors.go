package service

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidMood     = errors.New("invalid mood")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidEmail    = errors.New("invalid email address")

	// ErrAuth is the parent of every authentication failure.
	ErrAuth                = errors.New("authentication failed")
	ErrAuthRequired        = fmt.Errorf("%w: login required", ErrAuth)
	ErrInvalidToken        = fmt.Errorf("%w: invalid token", ErrAuth)
	ErrOTPNotFound         = fmt.Errorf("%w: no pending code or code expired", ErrAuth)
	ErrOTPMismatch         = fmt.Errorf("%w: code does not match", ErrAuth)
	ErrOTPAttemptsExceeded = fmt.Errorf("%w: too many attempts", ErrAuth)

	ErrSubmissionInProgress = errors.New("checkout submission already in progress")
	ErrNoSubmission         = errors.New("no checkout submission in progress")
	// ErrPersistence means the payment went through but the order could not
	// be stored.
	ErrPersistence = errors.New("order could not be saved")

	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
)

// PaymentError reports a declined, failed or cancelled charge.
type PaymentError struct {
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	return "payment failed: " + e.Reason
}

func (e *PaymentError) Unwrap() error { return e.Err }
