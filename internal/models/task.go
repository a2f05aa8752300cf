package models

import (
	"errors"
	"fmt"
	"strings"
)

// Task is a single unit of work on an employee's board.
type Task struct {
	ID   string `json:"id" bson:"id"`
	Text string `json:"text" bson:"text"`
}

var (
	ErrIDRequired   = errors.New("id is required")
	ErrTextRequired = errors.New("text is required")
)

// Validate checks that the task has valid field values.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrIDRequired
	}
	if t.Text == "" {
		return ErrTextRequired
	}
	return nil
}

// InvalidTaskError locates a task that failed Validate inside TaskLists.
type InvalidTaskError struct {
	Path string
	Err  error
}

func (e *InvalidTaskError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *InvalidTaskError) Unwrap() error {
	return e.Err
}

// TaskLists holds the two ordered lists owned by one employee.
// Position within a list is the display order.
type TaskLists struct {
	Todo []Task `json:"todo" bson:"todo"`
	Done []Task `json:"done" bson:"done"`
}

// DuplicateIDError reports a task id that appears more than once across
// the todo and done lists.
type DuplicateIDError struct {
	ID   string
	Path string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate task id %q at %s", e.ID, e.Path)
}

// Validate checks every task and that ids are unique across both lists.
func (l TaskLists) Validate() error {
	seen := make(map[string]struct{}, len(l.Todo)+len(l.Done))
	check := func(name string, tasks []Task) error {
		for i, t := range tasks {
			if err := t.Validate(); err != nil {
				field := "text"
				if errors.Is(err, ErrIDRequired) {
					field = "id"
				}
				return &InvalidTaskError{Path: fmt.Sprintf("/%s/%d/%s", name, i, field), Err: err}
			}
			if _, dup := seen[t.ID]; dup {
				return &DuplicateIDError{ID: t.ID, Path: fmt.Sprintf("/%s/%d/id", name, i)}
			}
			seen[t.ID] = struct{}{}
		}
		return nil
	}
	if err := check("todo", l.Todo); err != nil {
		return err
	}
	return check("done", l.Done)
}

// Normalize replaces nil lists with empty ones so they encode as [].
func (l TaskLists) Normalize() TaskLists {
	if l.Todo == nil {
		l.Todo = []Task{}
	}
	if l.Done == nil {
		l.Done = []Task{}
	}
	return l
}

// Clone returns a deep copy of both lists.
func (l TaskLists) Clone() TaskLists {
	return TaskLists{
		Todo: append([]Task{}, l.Todo...),
		Done: append([]Task{}, l.Done...),
	}
}

// Without returns copies of both lists with every task whose id matches removed.
func (l TaskLists) Without(id string) TaskLists {
	return TaskLists{
		Todo: filterTasks(l.Todo, id),
		Done: filterTasks(l.Done, id),
	}
}

// Contains reports whether a task with the given id is in either list.
func (l TaskLists) Contains(id string) bool {
	for _, t := range l.Todo {
		if t.ID == id {
			return true
		}
	}
	for _, t := range l.Done {
		if t.ID == id {
			return true
		}
	}
	return false
}

func filterTasks(tasks []Task, id string) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
