package tasklist

import (
	"dutycal/internal/model"
)

// Draft is a task's editable fields without an id.
type Draft struct {
	Label    string        `json:"label"`
	Members  []string      `json:"members"`
	Session  model.Session `json:"session"`
	Steps    []string      `json:"steps"`
	Roles    []model.Role  `json:"roles"`
	Everyday bool          `json:"everyday"`
}

func emptyDraft() Draft {
	return Draft{
		Members: []string{},
		Session: model.SessionMorning,
		Steps:   []string{},
		Roles:   []model.Role{},
	}
}

func draftOf(t model.Task) Draft {
	c := t.Clone()
	d := Draft{
		Label:    c.Label,
		Members:  c.Members,
		Session:  c.Session,
		Steps:    c.Steps,
		Roles:    c.Roles,
		Everyday: c.Everyday,
	}
	if d.Members == nil {
		d.Members = []string{}
	}
	if d.Steps == nil {
		d.Steps = []string{}
	}
	if d.Roles == nil {
		d.Roles = []model.Role{}
	}
	return d
}

func (d Draft) clone() Draft {
	return draftOf(model.Task{
		Label:    d.Label,
		Members:  d.Members,
		Session:  d.Session,
		Steps:    d.Steps,
		Roles:    d.Roles,
		Everyday: d.Everyday,
	})
}

// applyTo merges the draft into t, keeping t's id.
func (d Draft) applyTo(t model.Task) model.Task {
	c := d.clone()
	t.Label = c.Label
	t.Members = c.Members
	t.Session = c.Session
	t.Steps = c.Steps
	t.Roles = c.Roles
	t.Everyday = c.Everyday
	return t
}

// DraftPatch is a partial update; nil fields are left as they are.
type DraftPatch struct {
	Label    *string        `json:"label,omitempty"`
	Members  *[]string      `json:"members,omitempty"`
	Session  *model.Session `json:"session,omitempty"`
	Steps    *[]string      `json:"steps,omitempty"`
	Roles    *[]model.Role  `json:"roles,omitempty"`
	Everyday *bool          `json:"everyday,omitempty"`
}

// UpdateDraft merges p into the draft. Nothing is validated until Save.
func (b *Board) UpdateDraft(p DraftPatch) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	if p.Label != nil {
		b.draft.Label = *p.Label
	}
	if p.Members != nil {
		b.draft.Members = append([]string{}, (*p.Members)...)
	}
	if p.Session != nil {
		b.draft.Session = *p.Session
	}
	if p.Steps != nil {
		b.draft.Steps = append([]string{}, (*p.Steps)...)
	}
	if p.Roles != nil {
		b.draft.Roles = append([]model.Role{}, (*p.Roles)...)
	}
	if p.Everyday != nil {
		b.draft.Everyday = *p.Everyday
	}
	return nil
}

// EditState is a read-only view of the editing state.
type EditState struct {
	Mode   EditMode
	TaskID int
	Draft  Draft
}

// Editing reports the current mode, the edited task id (EditExisting only)
// and a copy of the draft.
func (b *Board) Editing() EditState {
	if b.mode == EditNone {
		return EditState{Mode: EditNone}
	}
	return EditState{Mode: b.mode, TaskID: b.editID, Draft: b.draft.clone()}
}

// Step and role sub-editors. Out-of-range indices and moves past either end
// leave the draft unchanged.

func (b *Board) AddStep(text string) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	b.draft.Steps = append(b.draft.Steps, text)
	return nil
}

func (b *Board) SetStep(i int, text string) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	replaceAt(b.draft.Steps, i, text)
	return nil
}

func (b *Board) RemoveStep(i int) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	b.draft.Steps = removeAt(b.draft.Steps, i)
	return nil
}

// MoveStep swaps step i with its neighbour in direction dir (-1 up, +1 down).
func (b *Board) MoveStep(i, dir int) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	swapAdjacent(b.draft.Steps, i, dir)
	return nil
}

func (b *Board) AddRole(r model.Role) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	b.draft.Roles = append(b.draft.Roles, r)
	return nil
}

// RenameRole changes the duty name of role i, keeping its member.
func (b *Board) RenameRole(i int, name string) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	if inRange(b.draft.Roles, i) {
		b.draft.Roles[i].Role = name
	}
	return nil
}

// AssignRole changes who carries out role i.
func (b *Board) AssignRole(i int, member string) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	if inRange(b.draft.Roles, i) {
		b.draft.Roles[i].Member = member
	}
	return nil
}

func (b *Board) RemoveRole(i int) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	b.draft.Roles = removeAt(b.draft.Roles, i)
	return nil
}

func (b *Board) MoveRole(i, dir int) error {
	if b.mode == EditNone {
		return ErrNoDraft
	}
	swapAdjacent(b.draft.Roles, i, dir)
	return nil
}

func inRange[T any](s []T, i int) bool {
	return i >= 0 && i < len(s)
}

func replaceAt[T any](s []T, i int, v T) {
	if inRange(s, i) {
		s[i] = v
	}
}

func removeAt[T any](s []T, i int) []T {
	if !inRange(s, i) {
		return s
	}
	return append(s[:i], s[i+1:]...)
}

func swapAdjacent[T any](s []T, i, dir int) {
	if dir != -1 && dir != 1 {
		return
	}
	j := i + dir
	if !inRange(s, i) || !inRange(s, j) {
		return
	}
	s[i], s[j] = s[j], s[i]
}
