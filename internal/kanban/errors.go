// Package kanban holds the board domain: the error taxonomy, the card
// ordering engine and the board service that orchestrates it.
package kanban

import "fmt"

// NotFoundError reports an absent board, column, card or user.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ForbiddenError reports a valid user acting on a board that does not
// authorize them.
type ForbiddenError struct {
	BoardID string
	UserID  string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user %q is not authorized on board %q", e.UserID, e.BoardID)
}

// ConflictError reports a mutation that would duplicate existing state,
// such as adding an already-authorized user.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// ValidationError reports a malformed identifier or request body.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// AuthError reports a missing or invalid session token.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }
