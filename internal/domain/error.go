package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Authentication / verification
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Reconciliation
	ErrUserUnresolved      = errors.New("user could not be resolved by email or customer id")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrNoSubscription      = errors.New("no subscription")
	ErrTrainingJobNotFound = errors.New("training job not found")
	ErrCannotCancelFree    = errors.New("free tier subscription cannot be cancelled")
	ErrAlreadySubscribed   = errors.New("already subscribed to this plan")
	ErrEventInFlight       = errors.New("webhook event is already being processed")

	// Usage
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrRateLimited   = errors.New("rate limit exceeded")

	// Outbound collaborators
	ErrUpstream = errors.New("upstream service error")
)
