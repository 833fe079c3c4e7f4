// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidReminders is returned when a reminder offset list contains
	// a negative value or cannot be parsed from its persisted form.
	ErrInvalidReminders = errors.New("invalid reminder offsets")
)
