package repository

import "errors"

// Common repository errors
var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateUser is returned when a unique index on email or
	// username rejects an insert
	ErrDuplicateUser = errors.New("email or username already taken")
)
