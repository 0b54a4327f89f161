package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	appLog "dutycal/internal/log"
	"dutycal/internal/model"
	"dutycal/internal/tasklist"
)

// boardResponse is the JSON response shape of every /api/board endpoint.
type boardResponse struct {
	Date        string `json:"date"`
	BusinessDay bool   `json:"business_day"`
	// Accepted is set by the drag endpoints: false means the payload or
	// drop was ignored.
	Accepted *bool `json:"accepted,omitempty"`
	tasklist.View
}

var errBadRequest = errors.New("bad request")

// selectDay points the board at d under the lock.
func (s *Server) selectDay(ctx context.Context, d time.Time) {
	gate := s.gateFor(ctx, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyDayLocked(d, gate)
}

// SelectToday points the board at the engine's current day, keeping the
// session and member filters. Called after the engine rolls over.
func (s *Server) SelectToday(ctx context.Context) {
	s.selectDay(ctx, s.engine.Today())
}

// gateFor looks up the gate inputs of d. It may hit the holiday provider,
// so it runs before the lock is taken.
func (s *Server) gateFor(ctx context.Context, d time.Time) tasklist.Gate {
	return tasklist.Gate{
		BusinessDay: s.engine.IsBusinessDay(ctx, d),
		Location:    s.roster.LocationOn(d),
	}
}

// applyDayLocked loads the location of d (only if it changed) and stores
// the gate; s.mu must be held.
func (s *Server) applyDayLocked(d time.Time, gate tasklist.Gate) {
	s.day = d
	s.gate = gate
	if s.board.SetLocation(gate.Location) {
		appLog.Info("board location changed", "date", model.DateKey(d), "location", gate.Location.String())
	}
}

// viewLocked renders the board; s.mu must be held.
func (s *Server) viewLocked() boardResponse {
	return boardResponse{
		Date:        model.DateKey(s.day),
		BusinessDay: s.gate.BusinessDay,
		View:        s.board.View(s.gate, s.session, s.member),
	}
}

// handleBoard selects a day and filters and returns the gated board.
//
// GET /api/board?date=2025-05-19&session=morning&member=Alice
//   - date:    defaults to today
//   - session: morning (default) or evening
//   - member:  empty means everyone
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	d, ok := s.parseDay(w, q.Get("date"), true)
	if !ok {
		return
	}
	session := model.SessionMorning
	if v := q.Get("session"); v != "" {
		var err error
		if session, err = model.ParseSession(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	var member *string
	if v := strings.TrimSpace(q.Get("member")); v != "" {
		member = &v
	}

	gate := s.gateFor(r.Context(), d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyDayLocked(d, gate)
	s.session = session
	s.member = member
	writeJSON(w, http.StatusOK, s.viewLocked())
}

// mutate runs fn against the board when the gate is open and answers with
// the updated view. Sentinel errors map to status codes.
func (s *Server) mutate(w http.ResponseWriter, fn func(b *tasklist.Board) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.Open() {
		writeError(w, http.StatusConflict, tasklist.ClosedNotice)
		return
	}
	if err := fn(s.board); err != nil {
		switch {
		case errors.Is(err, tasklist.ErrEmptyLabel):
			writeError(w, http.StatusUnprocessableEntity, "ラベルを入力してください")
		case errors.Is(err, tasklist.ErrNoDraft):
			writeError(w, http.StatusConflict, "no draft in progress")
		case errors.Is(err, tasklist.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "task not found")
		case errors.Is(err, errBadRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			appLog.Error("board update failed", err)
			writeError(w, http.StatusInternalServerError, "board update failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, s.viewLocked())
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func taskIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil && id > 0
}

type draftStartRequest struct {
	TaskID *int `json:"task_id"`
}

// POST /api/board/draft: {"task_id": 2} edits a task, an empty body creates.
func (s *Server) handleDraftStart(w http.ResponseWriter, r *http.Request) {
	var req draftStartRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.mutate(w, func(b *tasklist.Board) error {
		if req.TaskID == nil {
			b.StartCreate()
			return nil
		}
		return b.StartEdit(*req.TaskID)
	})
}

// PATCH /api/board/draft: merges the given fields into the draft.
func (s *Server) handleDraftUpdate(w http.ResponseWriter, r *http.Request) {
	var patch tasklist.DraftPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if patch.Session != nil {
		session, err := model.ParseSession(string(*patch.Session))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Session = &session
	}
	s.mutate(w, func(b *tasklist.Board) error {
		return b.UpdateDraft(patch)
	})
}

func (s *Server) handleDraftCancel(w http.ResponseWriter, _ *http.Request) {
	s.mutate(w, func(b *tasklist.Board) error {
		b.CancelEdit()
		return nil
	})
}

func (s *Server) handleDraftSave(w http.ResponseWriter, _ *http.Request) {
	s.mutate(w, func(b *tasklist.Board) error {
		saved, err := b.Save()
		if err != nil {
			return err
		}
		appLog.Info("task saved", "task_id", saved.ID, "location", b.Location().String())
		return nil
	})
}

// listOpRequest drives the step and role sub-editors.
type listOpRequest struct {
	Op     string  `json:"op"`
	Index  int     `json:"index"`
	Value  *string `json:"value"`
	Member *string `json:"member"`
	Dir    int     `json:"dir"`
}

func (req listOpRequest) value() string {
	if req.Value == nil {
		return ""
	}
	return *req.Value
}

// POST /api/board/draft/steps: {"op": "add"|"set"|"remove"|"move", ...}
func (s *Server) handleDraftSteps(w http.ResponseWriter, r *http.Request) {
	var req listOpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.mutate(w, func(b *tasklist.Board) error {
		switch req.Op {
		case "add":
			return b.AddStep(req.value())
		case "set":
			return b.SetStep(req.Index, req.value())
		case "remove":
			return b.RemoveStep(req.Index)
		case "move":
			return b.MoveStep(req.Index, req.Dir)
		}
		return fmt.Errorf("%w: unknown op %q", errBadRequest, req.Op)
	})
}

// POST /api/board/draft/roles: like steps; "set" renames with value and
// reassigns with member, either may be omitted.
func (s *Server) handleDraftRoles(w http.ResponseWriter, r *http.Request) {
	var req listOpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.mutate(w, func(b *tasklist.Board) error {
		switch req.Op {
		case "add":
			role := model.Role{Role: req.value()}
			if req.Member != nil {
				role.Member = *req.Member
			}
			return b.AddRole(role)
		case "set":
			if req.Value != nil {
				if err := b.RenameRole(req.Index, *req.Value); err != nil {
					return err
				}
			}
			if req.Member != nil {
				return b.AssignRole(req.Index, *req.Member)
			}
			return nil
		case "remove":
			return b.RemoveRole(req.Index)
		case "move":
			return b.MoveRole(req.Index, req.Dir)
		}
		return fmt.Errorf("%w: unknown op %q", errBadRequest, req.Op)
	})
}

func (s *Server) handleTaskRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	s.mutate(w, func(b *tasklist.Board) error {
		if !b.Remove(id) {
			return tasklist.ErrTaskNotFound
		}
		appLog.Info("task removed", "task_id", id, "location", b.Location().String())
		return nil
	})
}

func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	s.mutate(w, func(b *tasklist.Board) error {
		if _, ok := b.Task(id); !ok {
			return tasklist.ErrTaskNotFound
		}
		b.ToggleDone(id)
		return nil
	})
}

type doneRequest struct {
	Done *bool `json:"done"`
}

func (s *Server) handleTaskDone(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req doneRequest
	if err := decodeBody(r, &req); err != nil || req.Done == nil {
		writeError(w, http.StatusBadRequest, `body must be {"done": true|false}`)
		return
	}
	s.mutate(w, func(b *tasklist.Board) error {
		if _, ok := b.Task(id); !ok {
			return tasklist.ErrTaskNotFound
		}
		b.SetDone(id, *req.Done)
		return nil
	})
}

type dragRequest struct {
	Payload string `json:"payload"`
}

type dropRequest struct {
	Zone string `json:"zone"`
}

// POST /api/board/drag: {"payload": "2"}. An unusable payload is not an
// error; the response says accepted=false.
func (s *Server) handleDragBegin(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.mutateAccepted(w, func(b *tasklist.Board) bool {
		return b.BeginDrag(req.Payload)
	})
}

func (s *Server) handleDragCancel(w http.ResponseWriter, _ *http.Request) {
	s.mutate(w, func(b *tasklist.Board) error {
		b.CancelDrag()
		return nil
	})
}

// POST /api/board/drop: {"zone": "complete"|"incomplete"} consumes the
// pending payload.
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.mutateAccepted(w, func(b *tasklist.Board) bool {
		zone, err := tasklist.ParseZone(req.Zone)
		if err != nil {
			b.CancelDrag()
			return false
		}
		return b.Drop(zone)
	})
}

func (s *Server) mutateAccepted(w http.ResponseWriter, fn func(b *tasklist.Board) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.Open() {
		writeError(w, http.StatusConflict, tasklist.ClosedNotice)
		return
	}
	accepted := fn(s.board)
	resp := s.viewLocked()
	resp.Accepted = &accepted
	writeJSON(w, http.StatusOK, resp)
}
