package domain

import "errors"

var (
	// Payment-facing errors. Callers match them with errors.Is; wrapping adds context.
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidState    = errors.New("invalid state for operation")
	ErrGateway         = errors.New("payment gateway error")
	ErrAuthentication  = errors.New("authentication failed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("entity already exists")

	// Storage errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
