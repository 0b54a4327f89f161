// Package tasklist holds the per-location daily checklist: the task
// collection seeded from a location template, the completion set, the
// single in-progress draft and the pending drag payload.
//
// A Board is not safe for concurrent use; callers serialize access.
package tasklist

import (
	"errors"
	"sort"
	"strings"

	appLog "dutycal/internal/log"
	"dutycal/internal/model"
)

var (
	// ErrNoDraft is returned by draft operations when nothing is being
	// created or edited.
	ErrNoDraft = errors.New("tasklist: no draft in progress")

	// ErrEmptyLabel is returned by Save when the draft label is blank. The
	// board is left exactly as it was.
	ErrEmptyLabel = errors.New("tasklist: label is required")

	// ErrTaskNotFound is returned when an id does not name a current task.
	ErrTaskNotFound = errors.New("tasklist: task not found")
)

// EditMode tells whether a draft exists and what saving it does.
type EditMode int

const (
	EditNone EditMode = iota
	EditNew
	EditExisting
)

func (m EditMode) String() string {
	switch m {
	case EditNew:
		return "new"
	case EditExisting:
		return "existing"
	default:
		return "none"
	}
}

// Board is the task list state machine for one active location.
type Board struct {
	templates map[string][]model.Task

	location  model.Location
	tasks     []model.Task
	completed map[int]struct{}

	mode   EditMode
	editID int
	draft  Draft

	drag *int
}

// NewBoard returns an empty board backed by templates (location code →
// initial tasks). The templates are copied; later loads never alias them.
// The board starts at the unregistered location with no tasks.
func NewBoard(templates map[string][]model.Task) *Board {
	own := make(map[string][]model.Task, len(templates))
	for code, tasks := range templates {
		own[code] = cloneTasks(tasks)
	}
	return &Board{
		templates: own,
		tasks:     []model.Task{},
		completed: make(map[int]struct{}),
	}
}

// LoadForLocation replaces the task list with the template for loc (empty
// when loc is unregistered or has no template), clears completion, and
// aborts any draft or pending drag.
func (b *Board) LoadForLocation(loc model.Location) []model.Task {
	var tasks []model.Task
	if loc.Registered() {
		tasks = cloneTasks(b.templates[loc.Code()])
	}
	if tasks == nil {
		tasks = []model.Task{}
	}

	b.location = loc
	b.tasks = tasks
	b.completed = make(map[int]struct{})
	b.clearDraft()
	b.drag = nil

	appLog.Debug("task list loaded", "location", loc.String(), "tasks", len(tasks))
	return b.Tasks()
}

// SetLocation reloads only when loc differs from the active location and
// reports whether it did.
func (b *Board) SetLocation(loc model.Location) bool {
	if loc == b.location {
		return false
	}
	b.LoadForLocation(loc)
	return true
}

// Location returns the active location.
func (b *Board) Location() model.Location {
	return b.location
}

// Tasks returns a copy of the current tasks in insertion order.
func (b *Board) Tasks() []model.Task {
	return cloneTasks(b.tasks)
}

// Task returns a copy of the task with id.
func (b *Board) Task(id int) (model.Task, bool) {
	if i := b.indexOf(id); i >= 0 {
		return b.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

func (b *Board) indexOf(id int) int {
	for i, t := range b.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// StartCreate begins a new empty draft, overwriting any draft in progress.
func (b *Board) StartCreate() {
	b.mode = EditNew
	b.editID = 0
	b.draft = emptyDraft()
	appLog.Debug("draft started", "mode", b.mode.String())
}

// StartEdit seeds the draft from a deep copy of task id, overwriting any
// draft in progress.
func (b *Board) StartEdit(id int) error {
	i := b.indexOf(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	b.mode = EditExisting
	b.editID = id
	b.draft = draftOf(b.tasks[i])
	appLog.Debug("draft started", "mode", b.mode.String(), "task_id", id)
	return nil
}

// CancelEdit discards the draft.
func (b *Board) CancelEdit() {
	b.clearDraft()
}

func (b *Board) clearDraft() {
	b.mode = EditNone
	b.editID = 0
	b.draft = Draft{}
}

// Save commits the draft. A new draft is appended with id max(ids)+1; an
// edit is merged into the task it was started from. A blank label is
// refused with ErrEmptyLabel and nothing changes. If the edited task was
// removed meanwhile the draft is discarded and ErrTaskNotFound returned.
func (b *Board) Save() (model.Task, error) {
	if b.mode == EditNone {
		return model.Task{}, ErrNoDraft
	}
	if strings.TrimSpace(b.draft.Label) == "" {
		return model.Task{}, ErrEmptyLabel
	}

	var saved model.Task
	switch b.mode {
	case EditNew:
		saved = b.draft.applyTo(model.Task{ID: b.nextID()})
		// a removed task may have left its mark on this id
		delete(b.completed, saved.ID)
		b.tasks = append(b.tasks, saved)
	case EditExisting:
		i := b.indexOf(b.editID)
		if i < 0 {
			id := b.editID
			b.clearDraft()
			appLog.Debug("draft dropped, task gone", "task_id", id)
			return model.Task{}, ErrTaskNotFound
		}
		saved = b.draft.applyTo(b.tasks[i])
		b.tasks[i] = saved
	}

	b.clearDraft()
	appLog.Debug("task saved", "task_id", saved.ID)
	return saved.Clone(), nil
}

func (b *Board) nextID() int {
	top := 0
	for _, t := range b.tasks {
		if t.ID > top {
			top = t.ID
		}
	}
	return top + 1
}

// Remove deletes task id and reports whether it existed. Its completion
// mark is left behind until Save hands the id to a new task.
func (b *Board) Remove(id int) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
	appLog.Debug("task removed", "task_id", id)
	return true
}

// IsDone reports whether id is in the completion set.
func (b *Board) IsDone(id int) bool {
	_, ok := b.completed[id]
	return ok
}

// SetDone marks id done or not done. It is idempotent.
func (b *Board) SetDone(id int, done bool) {
	if done {
		b.completed[id] = struct{}{}
	} else {
		delete(b.completed, id)
	}
}

// ToggleDone flips id's completion and returns the new state.
func (b *Board) ToggleDone(id int) bool {
	done := !b.IsDone(id)
	b.SetDone(id, done)
	return done
}

// ActiveMembers lists every member named by a current task, sorted and
// without duplicates.
func (b *Board) ActiveMembers() []string {
	seen := make(map[string]struct{})
	for _, t := range b.tasks {
		for _, m := range t.Members {
			seen[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func cloneTasks(ts []model.Task) []model.Task {
	if ts == nil {
		return nil
	}
	out := make([]model.Task, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}
