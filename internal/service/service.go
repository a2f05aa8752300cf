// Package service implements the task operations behind the HTTP API:
// payload validation, id generation and the store calls for one employee.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"

	"taskboard/internal/models"
	"taskboard/internal/schema"
	"taskboard/internal/store"
)

// Options holds the dependencies of a Service. Store is required; nil
// schemas are compiled from the built-in definitions, a nil IDs uses
// UUIDGenerator and a nil Logger discards output.
type Options struct {
	Store         store.Store
	CreateSchema  *schema.Schema
	ReplaceSchema *schema.Schema
	IDs           IDGenerator
	Logger        *log.Logger
}

// Service orchestrates validation and store access for task operations.
// It keeps no state between calls; concurrent writes for one employee
// are last-write-wins at the store.
type Service struct {
	store         store.Store
	createSchema  *schema.Schema
	replaceSchema *schema.Schema
	ids           IDGenerator
	logger        *log.Logger
}

// New creates a Service from opts.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("service: store is required")
	}

	s := &Service{
		store:         opts.Store,
		createSchema:  opts.CreateSchema,
		replaceSchema: opts.ReplaceSchema,
		ids:           opts.IDs,
		logger:        opts.Logger,
	}

	var err error
	if s.createSchema == nil {
		if s.createSchema, err = schema.Builtin(schema.CreateTask); err != nil {
			return nil, err
		}
	}
	if s.replaceSchema == nil {
		if s.replaceSchema, err = schema.Builtin(schema.ReplaceLists); err != nil {
			return nil, err
		}
	}
	if s.ids == nil {
		s.ids = UUIDGenerator{}
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s, nil
}

// ParseEmpID parses a path-embedded employee id. Anything other than a
// base-10 integer is ErrInvalidArgument.
func ParseEmpID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ValidationError{
			Message: "Input must be a number",
			Fields:  []schema.FieldError{{Path: "empId", Message: fmt.Sprintf("%q is not an integer", raw)}},
		}
	}
	return id, nil
}

// Employee looks up the employee record used for sign-in.
func (s *Service) Employee(ctx context.Context, empID int64) (*models.Employee, error) {
	emp, err := s.store.GetEmployee(ctx, empID)
	if err != nil {
		return nil, storeError(empID, err)
	}
	return emp, nil
}

// Get returns both task lists of an employee.
func (s *Service) Get(ctx context.Context, empID int64) (models.TaskLists, error) {
	lists, err := s.store.GetLists(ctx, empID)
	if err != nil {
		return models.TaskLists{}, storeError(empID, err)
	}
	return lists.Normalize(), nil
}

// Create validates payload against the create schema, appends a new task
// to the tail of the employee's todo list and returns its id.
func (s *Service) Create(ctx context.Context, empID int64, payload any) (string, error) {
	if errs := schema.Validate(s.createSchema, payload); errs != nil {
		return "", &ValidationError{Message: "invalid task", Fields: errs}
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := convert(payload, &body); err != nil {
		return "", err
	}

	task := models.Task{ID: s.ids.NewID(), Text: body.Text}
	if err := s.store.AppendTodo(ctx, empID, task); err != nil {
		return "", storeError(empID, err)
	}

	s.logger.Debug("task created", "empId", empID, "taskId", task.ID)
	return task.ID, nil
}

// ReplaceAll validates payload and overwrites both lists with it in one
// store operation. It never merges with the stored state.
func (s *Service) ReplaceAll(ctx context.Context, empID int64, payload any) error {
	if errs := schema.Validate(s.replaceSchema, payload); errs != nil {
		return &ValidationError{Message: "invalid task lists", Fields: errs}
	}

	var lists models.TaskLists
	if err := convert(payload, &lists); err != nil {
		return err
	}
	if err := lists.Validate(); err != nil {
		return &ValidationError{Message: "invalid task lists", Fields: []schema.FieldError{listFieldError(err)}}
	}

	lists = lists.Normalize()
	if err := s.store.ReplaceLists(ctx, empID, lists.Todo, lists.Done); err != nil {
		return storeError(empID, err)
	}

	s.logger.Debug("task lists replaced", "empId", empID, "todo", len(lists.Todo), "done", len(lists.Done))
	return nil
}

// Remove deletes taskID from both lists and returns it. Removing a task
// that is not present succeeds as long as the employee exists.
func (s *Service) Remove(ctx context.Context, empID int64, taskID string) (string, error) {
	if taskID == "" {
		return "", &ValidationError{Message: "task id is required"}
	}
	if err := s.store.RemoveByID(ctx, empID, taskID); err != nil {
		return "", storeError(empID, err)
	}

	s.logger.Debug("task removed", "empId", empID, "taskId", taskID)
	return taskID, nil
}

// listFieldError locates a TaskLists.Validate failure in the payload.
func listFieldError(err error) schema.FieldError {
	var dup *models.DuplicateIDError
	if errors.As(err, &dup) {
		return schema.FieldError{Path: dup.Path, Message: dup.Error()}
	}
	var invalid *models.InvalidTaskError
	if errors.As(err, &invalid) {
		return schema.FieldError{Path: invalid.Path, Message: invalid.Err.Error()}
	}
	return schema.FieldError{Path: "/", Message: err.Error()}
}

// convert maps an already validated generic payload onto a typed value.
func convert(payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}
