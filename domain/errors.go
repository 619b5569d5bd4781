package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAuthorized indicates the principal exists but the policy denied the
// action. It is reported to clients with the same status as a failed
// credential check so a non-owner cannot distinguish the two.
var ErrNotAuthorized = errors.New("not authorized")

// ErrInvalidCredentials indicates a failed login or a bad token.
var ErrInvalidCredentials = errors.New("invalid credentials")

// NotFoundError indicates the referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id of %s", e.Resource, e.ID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// ValidationError carries the names of fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

// ConflictError indicates a uniqueness violation, e.g. a duplicate email.
type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string { return e.Message }

// InvalidQueryError indicates a list request used an unsupported filter
// operator.
type InvalidQueryError struct {
	Key string
}

func (e InvalidQueryError) Error() string {
	return fmt.Sprintf("unsupported query operator in %q", e.Key)
}
