package errors

import (
	"errors"
	"fmt"
)

// Common error types for the identity bridge
var (
	// Configuration errors - a dependency is missing its credentials and
	// must never be called with empty ones
	ErrBotNotConfigured      = errors.New("telegram bot is not configured")
	ErrProviderNotConfigured = errors.New("identity provider is not configured")
	ErrStoreNotConfigured    = errors.New("session store is not configured")

	// Signature/freshness failures - always a rejection, never a retry
	ErrInvalidSignature = errors.New("invalid widget signature")

	// Issuance errors
	ErrLinkIssuance = errors.New("provider issued no usable action link")

	// Session errors
	ErrSessionNotFound = errors.New("auth session not found")
	ErrTicketExpired   = errors.New("ticket expired")

	// General errors
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
