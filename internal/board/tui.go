package board

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskboard/internal/models"
)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeConfirmDelete
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(36)
	focusedColumnStyle = columnStyle.BorderForeground(lipgloss.Color("63"))
	cursorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	draggedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type loadedMsg struct {
	err error
}

type createdMsg struct {
	id  string
	err error
}

type eventMsg Event

// Model is the bubbletea model for one employee's board.
type Model struct {
	ctx    context.Context
	ctrl   *Controller
	header string

	focus  List
	cursor [2]int
	mode   mode
	input  []rune

	pendingDelete models.Task
	status        string
	err           error
}

// NewModel creates a board model. header is shown above the columns.
func NewModel(ctx context.Context, ctrl *Controller, header string) *Model {
	return &Model{ctx: ctx, ctrl: ctrl, header: header}
}

// Run shows the board until the user quits, then waits for pending
// remote calls to finish.
func Run(ctx context.Context, ctrl *Controller, header string, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(NewModel(ctx, ctrl, header), opts...)
	ctrl.OnEvent(func(ev Event) {
		program.Send(eventMsg(ev))
	})

	_, err := program.Run()
	ctrl.OnEvent(nil)
	ctrl.Wait()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	case loadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = "reloaded"
		}
		m.clampCursors()
	case createdMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("could not create task: %w", msg.err)
			return m, nil
		}
		m.err = nil
		m.status = "task created"
		m.focus = Todo
		m.cursor[Todo] = len(m.ctrl.Snapshot().Todo) - 1
	case eventMsg:
		if msg.Err != nil {
			m.err = fmt.Errorf("%s failed: %w", msg.Op, msg.Err)
			return m, nil
		}
		m.status = string(msg.Op) + " saved"
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.ctrl.Cancel()
		return m, tea.Quit
	case "left", "h":
		m.focus = Todo
	case "right", "l":
		m.focus = Done
	case "tab":
		m.focus = m.focus.Other()
	case "up", "k":
		if m.cursor[m.focus] > 0 {
			m.cursor[m.focus]--
		}
	case "down", "j":
		if m.cursor[m.focus] < m.maxCursor(m.focus) {
			m.cursor[m.focus]++
		}
	case " ", "enter":
		m.pickOrDrop()
	case "esc":
		m.ctrl.Cancel()
		m.status = ""
		m.clampCursors()
	case "a", "n":
		m.mode = modeAdd
		m.input = m.input[:0]
	case "d", "x":
		if _, _, dragging := m.ctrl.Dragged(); dragging {
			return m, nil
		}
		list := m.list(m.focus)
		if len(list) == 0 {
			return m, nil
		}
		m.pendingDelete = list[m.cursor[m.focus]]
		m.mode = modeConfirmDelete
	case "r":
		return m, m.loadCmd()
	}
	return m, nil
}

func (m *Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := strings.TrimSpace(string(m.input))
		m.mode = modeBrowse
		m.input = m.input[:0]
		if text == "" {
			return m, nil
		}
		return m, m.createCmd(text)
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input = m.input[:0]
	case tea.KeyCtrlC:
		m.ctrl.Cancel()
		return m, tea.Quit
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	switch msg.String() {
	case "y", "Y":
		m.ctrl.Remove(m.ctx, m.pendingDelete.ID)
		m.status = "deleted " + strconv.Quote(m.pendingDelete.Text)
		m.clampCursors()
	case "ctrl+c":
		return m, tea.Quit
	default:
		m.status = "delete cancelled"
	}
	m.pendingDelete = models.Task{}
	return m, nil
}

func (m *Model) pickOrDrop() {
	if _, _, dragging := m.ctrl.Dragged(); !dragging {
		if err := m.ctrl.Pick(m.focus, m.cursor[m.focus]); err != nil {
			m.err = err
			return
		}
		m.err = nil
		m.status = "moving; choose a position and press space"
		return
	}

	kind, err := m.ctrl.Drop(m.ctx, m.focus, m.cursor[m.focus])
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = kind.String() + " move"
	m.clampCursors()
}

func (m *Model) loadCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return loadedMsg{err: ctrl.Load(ctx)}
	}
}

func (m *Model) createCmd(text string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		id, err := ctrl.Create(ctx, text)
		return createdMsg{id: id, err: err}
	}
}

func (m *Model) list(l List) []models.Task {
	snap := m.ctrl.Snapshot()
	if l == Done {
		return snap.Done
	}
	return snap.Todo
}

// maxCursor allows one slot past the end of a list while dragging, so a
// task can be dropped at the tail.
func (m *Model) maxCursor(l List) int {
	n := len(m.list(l))
	if _, _, dragging := m.ctrl.Dragged(); dragging {
		return n
	}
	if n == 0 {
		return 0
	}
	return n - 1
}

func (m *Model) clampCursors() {
	for _, l := range []List{Todo, Done} {
		m.cursor[l] = clamp(m.cursor[l], m.maxCursor(l))
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.header) + "\n\n")

	snap := m.ctrl.Snapshot()
	from, fromIdx, dragging := m.ctrl.Dragged()
	cols := make([]string, 0, 2)
	for _, l := range []List{Todo, Done} {
		tasks := snap.Todo
		if l == Done {
			tasks = snap.Done
		}
		style := columnStyle
		if l == m.focus {
			style = focusedColumnStyle
		}
		cols = append(cols, style.Render(m.renderColumn(l, tasks, dragging && from == l, fromIdx)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...) + "\n")

	switch m.mode {
	case modeAdd:
		b.WriteString("New task: " + string(m.input) + "_\n")
	case modeConfirmDelete:
		b.WriteString("Delete " + strconv.Quote(m.pendingDelete.Text) + "? (y/n)\n")
	}

	status := "state: " + m.ctrl.State().String()
	if m.status != "" {
		status += "  " + m.status
	}
	b.WriteString(status + "\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("h/l column  j/k move  space pick/drop  esc cancel  a add  d delete  r reload  q quit") + "\n")
	return b.String()
}

func (m *Model) renderColumn(l List, tasks []models.Task, source bool, fromIdx int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", strings.ToUpper(l.String()), len(tasks))) + "\n")

	focused := l == m.focus
	for i, t := range tasks {
		line := "  " + t.Text
		if source && i == fromIdx {
			line = draggedStyle.Render("* " + t.Text)
		}
		if focused && i == m.cursor[l] {
			line = cursorStyle.Render("> ") + strings.TrimPrefix(line, "  ")
		}
		b.WriteString(line + "\n")
	}

	if _, _, dragging := m.ctrl.Dragged(); dragging && focused && m.cursor[l] == len(tasks) {
		b.WriteString(cursorStyle.Render("> (end)") + "\n")
	} else if len(tasks) == 0 {
		b.WriteString(helpStyle.Render("  empty") + "\n")
	}
	return b.String()
}
