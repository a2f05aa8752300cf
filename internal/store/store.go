package store

import (
	"context"
	"errors"
	"fmt"

	"taskboard/internal/models"
)

var (
	// ErrNotFound is returned when no employee document exists for an id.
	ErrNotFound = errors.New("employee not found")

	// ErrUnavailable marks a connectivity failure reaching the backing store.
	// Callers decide whether to retry; stores never do.
	ErrUnavailable = errors.New("store unavailable")
)

// Store defines the interface for data persistence operations.
// Every operation touches exactly one employee document and is atomic
// with respect to that document.
type Store interface {
	// Employee lookup
	GetEmployee(ctx context.Context, empID int64) (*models.Employee, error)

	// Task list operations
	GetLists(ctx context.Context, empID int64) (models.TaskLists, error)
	ReplaceLists(ctx context.Context, empID int64, todo, done []models.Task) error
	AppendTodo(ctx context.Context, empID int64, task models.Task) error
	RemoveByID(ctx context.Context, empID int64, taskID string) error

	// Lifecycle
	Close() error
}

func notFound(empID int64) error {
	return fmt.Errorf("%w: %d", ErrNotFound, empID)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
