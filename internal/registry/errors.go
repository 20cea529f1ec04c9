package registry

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when adding a repository that is already tracked by the server.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument is returned for empty identifiers.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	Name   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
}

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func repositoryNotFound(name string) error {
	return &NotFoundError{Entity: "repository", Name: name}
}

func branchNotFound(name string) error {
	return &NotFoundError{Entity: "branch", Name: name}
}
