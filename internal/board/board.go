// Package board is the client side of the task board: an in-memory mirror
// of one employee's lists that applies edits locally and confirms them
// against the API.
//
// Local edits are optimistic and never reconciled. Removes and drops update
// the mirror first and send the remote call in the background; a failed
// call is logged and the mirror is left as it is. Each drop sends its own
// full snapshot, so overlapping drops persist in network arrival order.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"taskboard/internal/models"
)

// List names one of the two task lists.
type List int

const (
	Todo List = iota
	Done
)

func (l List) String() string {
	if l == Done {
		return "done"
	}
	return "todo"
}

// Other returns the opposite list.
func (l List) Other() List {
	if l == Todo {
		return Done
	}
	return Todo
}

// DragState is the state of the current drag/drop interaction.
type DragState int

const (
	Idle DragState = iota
	Dragging
	Dropped
	Persisting
	Synced
	FailedLogged
)

func (s DragState) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	case Persisting:
		return "persisting"
	case Synced:
		return "synced"
	case FailedLogged:
		return "failed"
	default:
		return "idle"
	}
}

// DropKind tells whether a drop reordered one list or moved across lists.
type DropKind int

const (
	SameList DropKind = iota
	CrossList
)

func (k DropKind) String() string {
	if k == CrossList {
		return "cross-list"
	}
	return "same-list"
}

// Op identifies a background remote call in an Event.
type Op string

const (
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
)

// Event reports the outcome of a background remote call.
type Event struct {
	Op     Op
	TaskID string
	Err    error
}

var (
	ErrNotDragging     = errors.New("no drag in progress")
	ErrAlreadyDragging = errors.New("drag already in progress")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrEmptyText       = errors.New("task text is required")
	ErrDragLost        = errors.New("dragged task no longer exists")
)

// Controller holds the local mirror of one employee's board.
type Controller struct {
	api    API
	empID  int64
	logger *log.Logger

	mu       sync.Mutex
	lists    models.TaskLists
	state    DragState
	dragID   string
	lastDrop DropKind
	dropSeq  uint64
	notify   func(Event)

	wg sync.WaitGroup
}

// NewController creates a controller for empID. A nil logger discards output.
func NewController(api API, empID int64, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{
		api:    api,
		empID:  empID,
		logger: logger,
		lists:  models.TaskLists{}.Normalize(),
	}
}

// EmpID returns the employee the controller operates on.
func (c *Controller) EmpID() int64 {
	return c.empID
}

// OnEvent registers fn to be called after each background call completes.
func (c *Controller) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.notify = fn
	c.mu.Unlock()
}

// Load replaces the mirror with the server's lists.
func (c *Controller) Load(ctx context.Context) error {
	lists, err := c.api.GetTasks(ctx, c.empID)
	if err != nil {
		c.logger.Error("unable to get employee tasks", "empId", c.empID, "err", err)
		return err
	}

	c.mu.Lock()
	c.lists = lists.Normalize().Clone()
	c.releaseLostDrag()
	c.mu.Unlock()
	return nil
}

// Snapshot returns a copy of both lists.
func (c *Controller) Snapshot() models.TaskLists {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists.Clone()
}

// State returns the drag state.
func (c *Controller) State() DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastDrop returns the kind of the most recent drop.
func (c *Controller) LastDrop() DropKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDrop
}

// Create asks the server for a new task and, once it has an id, appends
// it to the local todo list. On failure the mirror is untouched.
func (c *Controller) Create(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	id, err := c.api.CreateTask(ctx, c.empID, text)
	if err != nil {
		c.logger.Error("unable to create task", "empId", c.empID, "err", err)
		return "", err
	}

	c.mu.Lock()
	c.lists.Todo = append(c.lists.Todo, models.Task{ID: id, Text: text})
	c.mu.Unlock()
	return id, nil
}

// Remove drops the task from the mirror immediately and deletes it on the
// server in the background. A failed delete is logged, not rolled back.
func (c *Controller) Remove(ctx context.Context, taskID string) {
	c.mu.Lock()
	c.lists = c.lists.Without(taskID)
	c.releaseLostDrag()
	c.mu.Unlock()

	c.background(func() Event {
		err := c.api.DeleteTask(ctx, c.empID, taskID)
		if err != nil {
			c.logger.Error("unable to delete task", "empId", c.empID, "taskId", taskID, "err", err)
		} else {
			c.logger.Debug("task deleted", "empId", c.empID, "taskId", taskID)
		}
		return Event{Op: OpRemove, TaskID: taskID, Err: err}
	})
}

// Pick starts dragging the task at index of list. The drag follows the
// task by id, so edits to the lists before Drop move the task itself.
func (c *Controller) Pick(list List, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Dragging {
		return ErrAlreadyDragging
	}
	tasks := c.listRef(list)
	if index < 0 || index >= len(tasks) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, list, index)
	}

	c.state = Dragging
	c.dragID = tasks[index].ID
	return nil
}

// Dragged returns the current list and index of the task being dragged.
func (c *Controller) Dragged() (List, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Dragging {
		return Todo, 0, false
	}
	return c.locate(c.dragID)
}

// Cancel abandons a drag without changing the lists.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dragging {
		c.state = Idle
		c.dragID = ""
	}
}

// Drop places the dragged task at index of list, then sends the full
// state of both lists to the server in the background. index is clamped
// to the target list.
func (c *Controller) Drop(ctx context.Context, list List, index int) (DropKind, error) {
	c.mu.Lock()
	if c.state != Dragging {
		c.mu.Unlock()
		return SameList, ErrNotDragging
	}
	from, fromIdx, ok := c.locate(c.dragID)
	if !ok {
		c.state = Idle
		c.dragID = ""
		c.mu.Unlock()
		return SameList, ErrDragLost
	}

	kind := SameList
	if list == from {
		*c.listPtr(list) = moveItem(c.listRef(list), fromIdx, index)
	} else {
		kind = CrossList
		src, dst := transferItem(c.listRef(from), c.listRef(list), fromIdx, index)
		*c.listPtr(from) = src
		*c.listPtr(list) = dst
	}
	c.dragID = ""
	c.state = Dropped
	c.lastDrop = kind

	snapshot := c.lists.Clone()
	c.dropSeq++
	seq := c.dropSeq
	c.state = Persisting
	c.mu.Unlock()

	c.logger.Debug("moved task", "empId", c.empID, "kind", kind, "todo", len(snapshot.Todo), "done", len(snapshot.Done))

	c.background(func() Event {
		err := c.api.ReplaceTasks(ctx, c.empID, snapshot)

		c.mu.Lock()
		if seq == c.dropSeq && c.state == Persisting {
			if err != nil {
				c.state = FailedLogged
			} else {
				c.state = Synced
			}
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.Error("unable to update task lists", "empId", c.empID, "err", err)
		} else {
			c.logger.Debug("task lists updated", "empId", c.empID)
		}
		return Event{Op: OpReplace, Err: err}
	})
	return kind, nil
}

// Wait blocks until every background call has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) background(call func() Event) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ev := call()

		c.mu.Lock()
		notify := c.notify
		c.mu.Unlock()
		if notify != nil {
			notify(ev)
		}
	}()
}

// locate finds a task by id in either list. Callers hold c.mu.
func (c *Controller) locate(id string) (List, int, bool) {
	for _, l := range []List{Todo, Done} {
		for i, t := range c.listRef(l) {
			if t.ID == id {
				return l, i, true
			}
		}
	}
	return Todo, 0, false
}

// releaseLostDrag ends a drag whose task has left the lists. Callers hold c.mu.
func (c *Controller) releaseLostDrag() {
	if c.state != Dragging {
		return
	}
	if _, _, ok := c.locate(c.dragID); !ok {
		c.logger.Warn("dragged task disappeared, drag cancelled", "empId", c.empID, "taskId", c.dragID)
		c.state = Idle
		c.dragID = ""
	}
}

func (c *Controller) listRef(l List) []models.Task {
	return *c.listPtr(l)
}

func (c *Controller) listPtr(l List) *[]models.Task {
	if l == Done {
		return &c.lists.Done
	}
	return &c.lists.Todo
}

// moveItem returns tasks with the item at from moved to to. Both indexes
// are clamped to the list.
func moveItem(tasks []models.Task, from, to int) []models.Task {
	out := append([]models.Task{}, tasks...)
	if len(out) == 0 {
		return out
	}
	from = clamp(from, len(out)-1)
	to = clamp(to, len(out)-1)
	if from == to {
		return out
	}

	item := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]models.Task{item}, out[to:]...)...)
	return out
}

// transferItem moves src[from] into dst at index to, clamped to len(dst).
func transferItem(src, dst []models.Task, from, to int) ([]models.Task, []models.Task) {
	newSrc := append([]models.Task{}, src...)
	newDst := append([]models.Task{}, dst...)
	if len(newSrc) == 0 {
		return newSrc, newDst
	}
	from = clamp(from, len(newSrc)-1)
	to = clamp(to, len(newDst))

	item := newSrc[from]
	newSrc = append(newSrc[:from], newSrc[from+1:]...)
	newDst = append(newDst[:to], append([]models.Task{item}, newDst[to:]...)...)
	return newSrc, newDst
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
