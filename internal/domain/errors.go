package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNeedsAuth       = errors.New("free analysis used, sign in required")
	ErrNeedsUpgrade    = errors.New("free analysis used, upgrade required")
	ErrAnalyzerFailure = errors.New("analyzer failure")
	ErrPersistence     = errors.New("persistence failure")
	ErrBillingNotSetup = errors.New("billing not configured")
)
