package tasklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutycal/internal/model"
)

var (
	ginza     = model.LocationOf("銀座")
	shinjuku  = model.LocationOf("新宿")
	vacation  = model.LocationOf("休暇")
	morning   = model.SessionMorning
	evening   = model.SessionEvening
	everybody *string
)

func templates() map[string][]model.Task {
	return map[string][]model.Task{
		"銀座": {
			{ID: 1, Label: "受付カウンター開錠", Members: []string{"Alice"}, Session: morning, Everyday: true},
			{
				ID: 2, Label: "プロジェクター準備", Members: []string{"Bob"}, Session: morning,
				Steps: []string{"スクリーンを下ろす", "電源 ON", "入力を HDMI1 に"}, Everyday: true,
			},
		},
		"新宿": {
			{
				ID: 1, Label: "会議室 A セットアップ", Members: []string{"Charlie"}, Session: morning,
				Steps: []string{"椅子を並べる", "ホワイトボード清掃"}, Everyday: true,
			},
		},
	}
}

func ids(ts []model.Task) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func loaded(loc model.Location) *Board {
	b := NewBoard(templates())
	b.LoadForLocation(loc)
	return b
}

func strp(s string) *string { return &s }

func TestGinzaScenario(t *testing.T) {
	b := loaded(ginza)

	p := b.Visible(morning, everybody)
	assert.Equal(t, []int{1, 2}, ids(p.Incomplete))
	assert.Equal(t, "受付カウンター開錠", p.Incomplete[0].Label)
	assert.Equal(t, "プロジェクター準備", p.Incomplete[1].Label)
	assert.Empty(t, p.Complete)

	b.SetDone(1, true)
	p = b.Visible(morning, everybody)
	assert.Equal(t, []int{2}, ids(p.Incomplete))
	assert.Equal(t, []int{1}, ids(p.Complete))

	require.True(t, b.SetLocation(shinjuku))
	p = b.Visible(morning, everybody)
	assert.Equal(t, []int{1}, ids(p.Incomplete))
	assert.Equal(t, "会議室 A セットアップ", p.Incomplete[0].Label)
	assert.Empty(t, p.Complete, "completion must not carry over even though id 1 exists again")
}

func TestLocationSwitchMatchesFreshLoad(t *testing.T) {
	b := loaded(ginza)
	b.SetDone(2, true)
	b.StartCreate()
	require.NoError(t, b.UpdateDraft(DraftPatch{Label: strp("extra")}))
	require.True(t, b.BeginDrag("1"))

	b.SetLocation(shinjuku)

	assert.Equal(t, loaded(shinjuku), b)
	assert.Equal(t, EditNone, b.Editing().Mode)
	_, dragging := b.Dragging()
	assert.False(t, dragging)
}

func TestSetLocationReloadsOnlyOnChange(t *testing.T) {
	b := loaded(ginza)
	b.SetDone(1, true)

	assert.False(t, b.SetLocation(model.LocationOf("銀座")))
	assert.True(t, b.IsDone(1))

	assert.True(t, b.SetLocation(model.Unregistered()))
	assert.Empty(t, b.Tasks())
}

func TestLocationWithoutTemplateIsEmpty(t *testing.T) {
	b := loaded(vacation)
	assert.NotNil(t, b.Tasks())
	assert.Empty(t, b.Tasks())
	assert.Empty(t, b.ActiveMembers())
}

func TestLoadDoesNotAliasTemplates(t *testing.T) {
	tpl := templates()
	b := NewBoard(tpl)
	b.LoadForLocation(ginza)

	require.NoError(t, b.StartEdit(2))
	require.NoError(t, b.SetStep(0, "changed"))
	_, err := b.Save()
	require.NoError(t, err)

	assert.Equal(t, "スクリーンを下ろす", tpl["銀座"][1].Steps[0])
	b.LoadForLocation(ginza)
	task, ok := b.Task(2)
	require.True(t, ok)
	assert.Equal(t, "スクリーンを下ろす", task.Steps[0])
}

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	b := loaded(ginza)

	b.StartCreate()
	require.NoError(t, b.UpdateDraft(DraftPatch{Label: strp("ゴミ出し")}))
	first, err := b.Save()
	require.NoError(t, err)

	b.StartCreate()
	require.NoError(t, b.UpdateDraft(DraftPatch{Label: strp("施錠")}))
	second, err := b.Save()
	require.NoError(t, err)

	assert.Equal(t, 3, first.ID)
	assert.Equal(t, 4, second.ID)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(b.Tasks()))
	assert.Equal(t, EditNone, b.Editing().Mode)
}

func TestCreateOnEmptyListStartsAtOne(t *testing.T) {
	b := loaded(vacation)
	b.StartCreate()
	require.NoError(t, b.UpdateDraft(DraftPatch{Label: strp("x")}))
	saved, err := b.Save()
	require.NoError(t, err)
	assert.Equal(t, 1, saved.ID)
	assert.Equal(t, morning, saved.Session)
}

func TestSaveWithBlankLabelIsRefused(t *testing.T) {
	for _, label := range []string{"", "   ", "\t\n"} {
		b := loaded(ginza)
		before := b.Tasks()

		b.StartCreate()
		require.NoError(t, b.UpdateDraft(DraftPatch{Label: strp(label)}))
		_, err := b.Save()

		assert.ErrorIs(t, err, ErrEmptyLabel)
		assert.Equal(t, before, b.Tasks())
		assert.Equal(t, EditNew, b.Editing().Mode, "draft stays open so the message can be fixed")
	}
}

func TestSaveEditMergesIntoExisting(t *testing.T) {
	b := loaded(ginza)
	require.NoError(t, b.StartEdit(2))
	require.NoError(t, b.UpdateDraft(DraftPatch{
		Label:   strp("プロジェクター片付け"),
		Session: func() *model.Session { s := evening; return &s }(),
	}))

	// the committed task is untouched until save
	task, _ := b.Task(2)
	assert.Equal(t, "プロジェクター準備", task.Label)

	saved, err := b.Save()
	require.NoError(t, err)
	assert.Equal(t, 2, saved.ID)
	assert.Equal(t, "プロジェクター片付け", saved.Label)
	assert.Equal(t, evening, saved.Session)
	assert.Equal(t, []string{"Bob"}, saved.Members)
	assert.Len(t, saved.Steps, 3)
	assert.True(t, saved.Everyday)
	assert.Len(t, b.Tasks(), 2)
}

func TestSaveEditOfRemovedTask(t *testing.T) {
	b := loaded(ginza)
	require.NoError(t, b.StartEdit(1))
	require.True(t, b.Remove(1))

	_, err := b.Save()
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, EditNone, b.Editing().Mode)
	assert.Equal(t, []int{2}, ids(b.Tasks()))
}

func TestSaveWithoutDraft(t *testing.T) {
	_, err := loaded(ginza).Save()
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestStartEditUnknownTask(t *testing.T) {
	b := loaded(ginza)
	assert.ErrorIs(t, b.StartEdit(42), ErrTaskNotFound)
	assert.Equal(t, EditNone, b.Editing().Mode)
}

func TestStartCreateOverwritesDraft(t *testing.T) {
	b := loaded(ginza)
	require.NoError(t, b.StartEdit(1))
	b.StartCreate()

	e := b.Editing()
	assert.Equal(t, EditNew, e.Mode)
	assert.Equal(t, "", e.Draft.Label)
	assert.Equal(t, morning, e.Draft.Session)
}

func TestCancelEdit(t *testing.T) {
	b := loaded(ginza)
	before := b.Tasks()
	require.NoError(t, b.StartEdit(1))
	require.NoError(t, b.UpdateDraft(DraftPatch{Label: strp("changed")}))
	b.CancelEdit()

	assert.Equal(t, EditNone, b.Editing().Mode)
	assert.Equal(t, before, b.Tasks())
	assert.ErrorIs(t, b.UpdateDraft(DraftPatch{}), ErrNoDraft)
}

func TestRemoveLeavesStaleCompletionUnobservable(t *testing.T) {
	b := loaded(ginza)
	b.SetDone(1, true)
	require.True(t, b.Remove(1))
	assert.False(t, b.Remove(1))

	p := b.Visible(morning, everybody)
	assert.Equal(t, []int{2}, ids(p.Incomplete))
	assert.Empty(t, p.Complete)
}

func TestNewTaskDoesNotInheritRemovedTaskCompletion(t *testing.T) {
	b := loaded(ginza)
	b.SetDone(2, true)
	require.True(t, b.Remove(2))

	b.StartCreate()
	require.NoError(t, b.UpdateDraft(DraftPatch{Label: strp("ゴミ出し"), Members: &[]string{"Alice"}}))
	saved, err := b.Save()
	require.NoError(t, err)
	require.Equal(t, 2, saved.ID)

	assert.False(t, b.IsDone(2))
	p := b.Visible(morning, everybody)
	assert.Equal(t, []int{1, 2}, ids(p.Incomplete))
	assert.Empty(t, p.Complete)
}

func TestToggleDoneIsItsOwnInverse(t *testing.T) {
	b := loaded(ginza)
	for _, id := range []int{1, 2, 99} {
		for _, start := range []bool{false, true} {
			b.SetDone(id, start)
			b.ToggleDone(id)
			assert.NotEqual(t, start, b.IsDone(id))
			b.ToggleDone(id)
			assert.Equal(t, start, b.IsDone(id))
		}
	}
}

func TestSetDoneIsIdempotent(t *testing.T) {
	b := loaded(ginza)
	b.SetDone(1, true)
	b.SetDone(1, true)
	assert.True(t, b.IsDone(1))
	b.SetDone(1, false)
	b.SetDone(1, false)
	assert.False(t, b.IsDone(1))
}

func TestActiveMembers(t *testing.T) {
	b := loaded(ginza)
	b.StartCreate()
	require.NoError(t, b.UpdateDraft(DraftPatch{Label: strp("x"), Members: &[]string{"Bob", "Aaron"}}))
	_, err := b.Save()
	require.NoError(t, err)

	assert.Equal(t, []string{"Aaron", "Alice", "Bob"}, b.ActiveMembers())
}
