package tasklist

import (
	"dutycal/internal/model"
)

// ClosedNotice is shown instead of the task list on days without one.
const ClosedNotice = "本日は非営業日のためタスクリストはありません"

// Gate carries the inputs that decide whether the list is shown at all.
type Gate struct {
	BusinessDay bool
	Location    model.Location
}

// Open reports whether tasks may be shown and edited.
func (g Gate) Open() bool {
	return g.BusinessDay && g.Location.Registered()
}

// Partition splits the visible tasks by completion, each in task order.
type Partition struct {
	Incomplete []model.Task `json:"incomplete"`
	Complete   []model.Task `json:"complete"`
}

// Visible returns the tasks of session, restricted to member when member is
// non-nil, partitioned by completion.
func (b *Board) Visible(session model.Session, member *string) Partition {
	p := Partition{Incomplete: []model.Task{}, Complete: []model.Task{}}
	for _, t := range b.tasks {
		if t.Session != session {
			continue
		}
		if member != nil && !t.HasMember(*member) {
			continue
		}
		if b.IsDone(t.ID) {
			p.Complete = append(p.Complete, t.Clone())
		} else {
			p.Incomplete = append(p.Incomplete, t.Clone())
		}
	}
	return p
}

// View is what the presentation layer renders for the board.
type View struct {
	Open     bool   `json:"open"`
	Notice   string `json:"notice,omitempty"`
	Location string `json:"location,omitempty"`

	Session model.Session `json:"session"`
	Member  *string       `json:"member,omitempty"`

	Partition     *Partition `json:"tasks,omitempty"`
	ActiveMembers []string   `json:"active_members,omitempty"`

	Editing  *EditView `json:"editing,omitempty"`
	Dragging *int      `json:"dragging,omitempty"`
}

// EditView is the JSON form of EditState.
type EditView struct {
	Mode   string `json:"mode"`
	TaskID int    `json:"task_id,omitempty"`
	Draft  Draft  `json:"draft"`
}

// View applies the gate. A closed gate yields only the notice; no task,
// draft or drag state is exposed.
func (b *Board) View(g Gate, session model.Session, member *string) View {
	v := View{Session: session, Member: member}
	if !g.Open() {
		v.Notice = ClosedNotice
		return v
	}

	v.Open = true
	v.Location = g.Location.Code()
	p := b.Visible(session, member)
	v.Partition = &p
	v.ActiveMembers = b.ActiveMembers()

	if e := b.Editing(); e.Mode != EditNone {
		v.Editing = &EditView{Mode: e.Mode.String(), TaskID: e.TaskID, Draft: e.Draft}
	}
	if id, ok := b.Dragging(); ok {
		v.Dragging = &id
	}
	return v
}
