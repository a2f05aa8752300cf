package board

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"taskboard/internal/models"
)

// fakeAPI is an in-memory API. ReplaceTasks waits on the channel returned
// by hold, if any; DeleteTask waits on deleteGate.
type fakeAPI struct {
	mu       sync.Mutex
	lists    models.TaskLists
	replaces []models.TaskLists
	deletes  []string
	nextID   int

	failGet     error
	failCreate  error
	failDelete  error
	failReplace error

	hold       func(models.TaskLists) chan struct{}
	deleteGate chan struct{}
}

func newFakeAPI(todo, done []models.Task) *fakeAPI {
	return &fakeAPI{lists: models.TaskLists{Todo: todo, Done: done}.Normalize()}
}

func (f *fakeAPI) FindEmployee(_ context.Context, empID int64) (*models.Employee, error) {
	return &models.Employee{EmpID: empID, FirstName: "Marcus"}, nil
}

func (f *fakeAPI) GetTasks(_ context.Context, _ int64) (models.TaskLists, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return models.TaskLists{}, f.failGet
	}
	return f.lists.Clone(), nil
}

func (f *fakeAPI) CreateTask(_ context.Context, _ int64, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.nextID++
	id := fmt.Sprintf("srv-%d", f.nextID)
	f.lists.Todo = append(f.lists.Todo, models.Task{ID: id, Text: text})
	return id, nil
}

func (f *fakeAPI) ReplaceTasks(_ context.Context, _ int64, lists models.TaskLists) error {
	if f.hold != nil {
		if gate := f.hold(lists); gate != nil {
			<-gate
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces = append(f.replaces, lists.Clone())
	if f.failReplace != nil {
		return f.failReplace
	}
	f.lists = lists.Clone()
	return nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, _ int64, taskID string) error {
	if f.deleteGate != nil {
		<-f.deleteGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, taskID)
	if f.failDelete != nil {
		return f.failDelete
	}
	f.lists = f.lists.Without(taskID)
	return nil
}

func (f *fakeAPI) server() models.TaskLists {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists.Clone()
}

func tasks(ids ...string) []models.Task {
	out := []models.Task{}
	for _, id := range ids {
		out = append(out, models.Task{ID: id, Text: "text " + id})
	}
	return out
}

func ids(list []models.Task) []string {
	out := []string{}
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func setupController(t *testing.T, api *fakeAPI) *Controller {
	t.Helper()
	c := NewController(api, 1008, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func TestLoad_Failure(t *testing.T) {
	api := newFakeAPI(nil, nil)
	api.failGet = errors.New("boom")
	c := NewController(api, 1008, nil)

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := c.Snapshot()
	if snap.Todo == nil || snap.Done == nil {
		t.Error("expected empty lists before a successful load")
	}
}

func TestCreate_AppendsAfterServerAssignsID(t *testing.T) {
	api := newFakeAPI(tasks("a"), nil)
	c := setupController(t, api)

	id, err := c.Create(context.Background(), "new task")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id != "srv-1" {
		t.Errorf("expected server id, got %q", id)
	}

	snap := c.Snapshot()
	if !reflect.DeepEqual(ids(snap.Todo), []string{"a", "srv-1"}) {
		t.Errorf("expected new task at todo tail, got %v", ids(snap.Todo))
	}
	if snap.Todo[1].Text != "new task" {
		t.Errorf("unexpected text %q", snap.Todo[1].Text)
	}
}

func TestCreate_FailureLeavesMirrorUntouched(t *testing.T) {
	api := newFakeAPI(tasks("a"), nil)
	api.failCreate = errors.New("boom")
	c := setupController(t, api)

	if _, err := c.Create(context.Background(), "new task"); err == nil {
		t.Fatal("expected error")
	}
	if got := ids(c.Snapshot().Todo); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("expected mirror unchanged, got %v", got)
	}
}

func TestCreate_EmptyText(t *testing.T) {
	c := setupController(t, newFakeAPI(nil, nil))

	if _, err := c.Create(context.Background(), ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestRemove_LocalFirst(t *testing.T) {
	api := newFakeAPI(tasks("a", "b"), tasks("c"))
	api.deleteGate = make(chan struct{})
	c := setupController(t, api)

	c.Remove(context.Background(), "c")

	// Mirror already updated while the remote call is still blocked.
	if snap := c.Snapshot(); len(snap.Done) != 0 {
		t.Errorf("expected c removed locally, got %v", ids(snap.Done))
	}
	if got := ids(api.server().Done); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("expected server untouched before delete completes, got %v", got)
	}

	close(api.deleteGate)
	c.Wait()

	if got := api.server().Done; len(got) != 0 {
		t.Errorf("expected server delete, got %v", ids(got))
	}
}

func TestRemove_FailureNotRolledBack(t *testing.T) {
	api := newFakeAPI(tasks("a", "b"), nil)
	api.failDelete = errors.New("boom")
	c := setupController(t, api)

	var events []Event
	var mu sync.Mutex
	c.OnEvent(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	c.Remove(context.Background(), "a")
	c.Wait()

	if got := ids(c.Snapshot().Todo); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("expected local removal kept, got %v", got)
	}
	if got := ids(api.server().Todo); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected server to still hold a, got %v", got)
	}
	if len(events) != 1 || events[0].Op != OpRemove || events[0].Err == nil {
		t.Errorf("expected one failed remove event, got %+v", events)
	}
}

func TestDrop_MoveScenario(t *testing.T) {
	api := newFakeAPI([]models.Task{{ID: "a", Text: "x"}}, nil)
	c := setupController(t, api)
	ctx := context.Background()

	if err := c.Pick(Todo, 0); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	kind, err := c.Drop(ctx, Done, 0)
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if kind != CrossList {
		t.Errorf("expected cross-list drop, got %v", kind)
	}
	c.Wait()

	want := models.TaskLists{Todo: []models.Task{}, Done: []models.Task{{ID: "a", Text: "x"}}}
	if len(api.replaces) != 1 || !reflect.DeepEqual(api.replaces[0], want) {
		t.Fatalf("expected one replace with %+v, got %+v", want, api.replaces)
	}
	if got := api.server(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected server state %+v, got %+v", want, got)
	}
	if c.State() != Synced {
		t.Errorf("expected synced, got %v", c.State())
	}
}

func TestDrop_SameListReorder(t *testing.T) {
	api := newFakeAPI(tasks("a", "b", "c"), tasks("d"))
	c := setupController(t, api)

	c.Pick(Todo, 0)
	kind, err := c.Drop(context.Background(), Todo, 2)
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	c.Wait()

	if kind != SameList {
		t.Errorf("expected same-list drop, got %v", kind)
	}
	snap := c.Snapshot()
	if got := ids(snap.Todo); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("expected [b c a], got %v", got)
	}
	// The whole board goes out, including the untouched list.
	if got := ids(api.replaces[0].Done); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("expected done list in snapshot, got %v", got)
	}
}

func TestDrop_FailureNotReverted(t *testing.T) {
	api := newFakeAPI(tasks("a", "b"), nil)
	api.failReplace = errors.New("boom")
	c := setupController(t, api)

	c.Pick(Todo, 1)
	c.Drop(context.Background(), Done, 0)
	c.Wait()

	if c.State() != FailedLogged {
		t.Errorf("expected failed state, got %v", c.State())
	}
	snap := c.Snapshot()
	if !reflect.DeepEqual(ids(snap.Todo), []string{"a"}) || !reflect.DeepEqual(ids(snap.Done), []string{"b"}) {
		t.Errorf("expected local move kept, got %+v", snap)
	}
}

func TestDrop_StateMachine(t *testing.T) {
	api := newFakeAPI(tasks("a"), nil)
	gate := make(chan struct{})
	api.hold = func(models.TaskLists) chan struct{} { return gate }
	c := setupController(t, api)

	if c.State() != Idle {
		t.Fatalf("expected idle, got %v", c.State())
	}
	if _, err := c.Drop(context.Background(), Done, 0); !errors.Is(err, ErrNotDragging) {
		t.Errorf("expected ErrNotDragging, got %v", err)
	}

	c.Pick(Todo, 0)
	if c.State() != Dragging {
		t.Fatalf("expected dragging, got %v", c.State())
	}
	if err := c.Pick(Todo, 0); !errors.Is(err, ErrAlreadyDragging) {
		t.Errorf("expected ErrAlreadyDragging, got %v", err)
	}

	c.Drop(context.Background(), Done, 0)
	if c.State() != Persisting {
		t.Errorf("expected persisting, got %v", c.State())
	}

	close(gate)
	c.Wait()
	if c.State() != Synced {
		t.Errorf("expected synced, got %v", c.State())
	}
	if c.LastDrop() != CrossList {
		t.Errorf("expected last drop cross-list, got %v", c.LastDrop())
	}
}

func TestDrop_FollowsTaskAfterRemove(t *testing.T) {
	api := newFakeAPI(tasks("a", "b", "c"), nil)
	c := setupController(t, api)
	ctx := context.Background()

	if err := c.Pick(Todo, 1); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	c.Remove(ctx, "a")

	if list, idx, dragging := c.Dragged(); !dragging || list != Todo || idx != 0 {
		t.Errorf("expected b tracked at todo[0], got %v[%d] dragging=%v", list, idx, dragging)
	}
	if _, err := c.Drop(ctx, Done, 0); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	c.Wait()

	want := models.TaskLists{Todo: tasks("c"), Done: tasks("b")}
	if got := c.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if got := api.server(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected server %+v, got %+v", want, got)
	}
}

func TestDrop_FollowsTaskAfterReload(t *testing.T) {
	api := newFakeAPI(tasks("a", "b", "c"), nil)
	c := setupController(t, api)
	ctx := context.Background()

	c.Pick(Todo, 1)

	// Another session deletes a before the drop.
	api.mu.Lock()
	api.lists = api.lists.Without("a")
	api.mu.Unlock()
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := c.Drop(ctx, Done, 0); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	c.Wait()

	want := models.TaskLists{Todo: tasks("c"), Done: tasks("b")}
	if len(api.replaces) != 1 || !reflect.DeepEqual(api.replaces[0], want) {
		t.Errorf("expected one replace with %+v, got %+v", want, api.replaces)
	}
}

func TestDrag_CancelledWhenTaskDisappears(t *testing.T) {
	tests := []struct {
		name   string
		vanish func(c *Controller, api *fakeAPI)
	}{
		{
			name: "removed locally",
			vanish: func(c *Controller, _ *fakeAPI) {
				c.Remove(context.Background(), "b")
				c.Wait()
			},
		},
		{
			name: "gone after reload",
			vanish: func(c *Controller, api *fakeAPI) {
				api.mu.Lock()
				api.lists = api.lists.Without("b")
				api.mu.Unlock()
				c.Load(context.Background())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(tasks("a", "b", "c"), nil)
			c := setupController(t, api)

			c.Pick(Todo, 1)
			tt.vanish(c, api)

			if c.State() != Idle {
				t.Errorf("expected idle, got %v", c.State())
			}
			if _, _, dragging := c.Dragged(); dragging {
				t.Error("expected no drag")
			}
			if _, err := c.Drop(context.Background(), Done, 0); !errors.Is(err, ErrNotDragging) {
				t.Errorf("expected ErrNotDragging, got %v", err)
			}
			c.Wait()
			if len(api.replaces) != 0 {
				t.Errorf("expected no replace, got %+v", api.replaces)
			}
		})
	}
}

func TestDrop_LostTaskReturnsToIdle(t *testing.T) {
	api := newFakeAPI(tasks("a", "b"), nil)
	c := setupController(t, api)

	c.Pick(Todo, 1)
	c.mu.Lock()
	c.lists = c.lists.Without("b")
	c.mu.Unlock()

	if _, err := c.Drop(context.Background(), Done, 0); !errors.Is(err, ErrDragLost) {
		t.Fatalf("expected ErrDragLost, got %v", err)
	}
	if c.State() != Idle {
		t.Errorf("expected idle, got %v", c.State())
	}
	if got := ids(c.Snapshot().Todo); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("expected lists untouched, got %v", got)
	}
}

func TestPick_OutOfRange(t *testing.T) {
	c := setupController(t, newFakeAPI(tasks("a"), nil))

	for _, idx := range []int{-1, 1} {
		if err := c.Pick(Todo, idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Pick(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
	if err := c.Pick(Done, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange on empty list, got %v", err)
	}
}

func TestCancel_ReturnsToIdle(t *testing.T) {
	api := newFakeAPI(tasks("a", "b"), nil)
	c := setupController(t, api)

	c.Pick(Todo, 0)
	c.Cancel()

	if c.State() != Idle {
		t.Errorf("expected idle, got %v", c.State())
	}
	if len(api.replaces) != 0 {
		t.Error("expected no remote call after cancel")
	}
}

// Two drops in flight: the first response arrives last, so its older
// snapshot wins on the server while the mirror shows the newer state.
func TestDrop_LastResponseWins(t *testing.T) {
	api := newFakeAPI(tasks("a", "b"), nil)
	firstGate := make(chan struct{})
	api.hold = func(l models.TaskLists) chan struct{} {
		if len(l.Done) == 1 {
			return firstGate
		}
		return nil
	}
	c := setupController(t, api)
	ctx := context.Background()

	c.Pick(Todo, 0)
	c.Drop(ctx, Done, 0) // todo=[b] done=[a]

	c.Pick(Todo, 0)
	c.Drop(ctx, Done, 1) // todo=[] done=[a b]

	// Let the second request finish before releasing the first.
	for {
		api.mu.Lock()
		n := len(api.replaces)
		api.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(firstGate)
	c.Wait()

	local := c.Snapshot()
	if !reflect.DeepEqual(ids(local.Done), []string{"a", "b"}) {
		t.Errorf("expected local done [a b], got %v", ids(local.Done))
	}
	server := api.server()
	if !reflect.DeepEqual(ids(server.Todo), []string{"b"}) || !reflect.DeepEqual(ids(server.Done), []string{"a"}) {
		t.Errorf("expected stale first snapshot persisted, got %+v", server)
	}
}

func TestMoveItem(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{name: "down", from: 0, to: 2, want: []string{"b", "c", "a"}},
		{name: "up", from: 2, to: 0, want: []string{"c", "a", "b"}},
		{name: "same", from: 1, to: 1, want: []string{"a", "b", "c"}},
		{name: "clamped", from: 0, to: 10, want: []string{"b", "c", "a"}},
		{name: "negative", from: 2, to: -4, want: []string{"c", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tasks("a", "b", "c")
			got := ids(moveItem(in, tt.from, tt.to))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if !reflect.DeepEqual(ids(in), []string{"a", "b", "c"}) {
				t.Error("expected input left unmodified")
			}
		})
	}
}

func TestTransferItem(t *testing.T) {
	tests := []struct {
		name              string
		from, to          int
		wantSrc, wantDest []string
	}{
		{name: "to head", from: 1, to: 0, wantSrc: []string{"a"}, wantDest: []string{"b", "x", "y"}},
		{name: "to middle", from: 0, to: 1, wantSrc: []string{"b"}, wantDest: []string{"x", "a", "y"}},
		{name: "to tail", from: 0, to: 2, wantSrc: []string{"b"}, wantDest: []string{"x", "y", "a"}},
		{name: "clamped", from: 0, to: 99, wantSrc: []string{"b"}, wantDest: []string{"x", "y", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := transferItem(tasks("a", "b"), tasks("x", "y"), tt.from, tt.to)
			if !reflect.DeepEqual(ids(src), tt.wantSrc) {
				t.Errorf("src: expected %v, got %v", tt.wantSrc, ids(src))
			}
			if !reflect.DeepEqual(ids(dst), tt.wantDest) {
				t.Errorf("dst: expected %v, got %v", tt.wantDest, ids(dst))
			}
		})
	}
}

func TestDrop_KeepsIDsUnique(t *testing.T) {
	api := newFakeAPI(tasks("a", "b", "c"), tasks("d", "e"))
	c := setupController(t, api)
	ctx := context.Background()

	moves := []struct {
		from    List
		fromIdx int
		to      List
		toIdx   int
	}{
		{Todo, 0, Done, 1},
		{Done, 2, Todo, 0},
		{Todo, 1, Todo, 0},
		{Done, 0, Todo, 5},
	}
	for _, m := range moves {
		if err := c.Pick(m.from, m.fromIdx); err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if _, err := c.Drop(ctx, m.to, m.toIdx); err != nil {
			t.Fatalf("Drop failed: %v", err)
		}
	}
	c.Wait()

	snap := c.Snapshot()
	if err := snap.Validate(); err != nil {
		t.Errorf("expected unique ids, got %v", err)
	}
	if len(snap.Todo)+len(snap.Done) != 5 {
		t.Errorf("expected 5 tasks total, got %+v", snap)
	}
}
