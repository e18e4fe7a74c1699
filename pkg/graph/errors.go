package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyIdentity is returned when a person is registered without a name.
	ErrEmptyIdentity = errors.New("identity must not be empty")
	// ErrEmptyItem is returned when a possession or search names no item.
	ErrEmptyItem = errors.New("item must not be empty")
	// ErrSearchLimit is returned when a search would visit more people than allowed.
	ErrSearchLimit = errors.New("search limit exceeded")
)

// UnknownPersonError is returned by mutations that reference people who were
// never registered. Registering them first is the only way to recover.
type UnknownPersonError struct {
	Identities []Identity
}

func (e *UnknownPersonError) Error() string {
	names := make([]string, len(e.Identities))
	for i, id := range e.Identities {
		names[i] = string(id)
	}
	return fmt.Sprintf("unknown person: %s", strings.Join(names, ", "))
}

// NotFoundError is returned by lookups of an unregistered identity.
type NotFoundError struct {
	Identity Identity
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("person not found: %s", e.Identity)
}

// IsUnknownPerson reports whether err carries an UnknownPersonError.
func IsUnknownPerson(err error) bool {
	var target *UnknownPersonError
	return errors.As(err, &target)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
