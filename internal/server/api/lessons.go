package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/store"
)

// LessonHandler handles HTTP requests for lesson resources. Without a store
// only the built-in lessons are listed and custom lessons cannot be created.
type LessonHandler struct {
	store *store.Store
	ctrl  Controller
}

// NewLessonHandler creates a new LessonHandler. Either argument may be nil.
func NewLessonHandler(s *store.Store, c Controller) *LessonHandler {
	return &LessonHandler{store: s, ctrl: c}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *LessonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/lessons, /api/lessons/{name}, /api/lessons/{name}/select
	path := strings.TrimPrefix(r.URL.Path, "/api/lessons")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	name := parts[0]

	if len(parts) == 2 && parts[1] == "select" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.selectLesson(w, r, name)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, name)
	case http.MethodDelete:
		h.delete(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type gestureBody struct {
	Name   string       `json:"name"`
	Rule   gesture.Rule `json:"rule"`
	HoldMS *int64       `json:"hold_ms,omitempty"`
}

type createLessonRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Trigger     *gesture.Rule `json:"trigger,omitempty"`
	HoldMS      int64         `json:"hold_ms"`
	FeedbackMS  int64         `json:"feedback_ms"`
	Gestures    []gestureBody `json:"gestures"`
}

type lessonResponse struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Builtin     bool          `json:"builtin"`
	Current     bool          `json:"current"`
	Trigger     *gesture.Rule `json:"trigger,omitempty"`
	HoldMS      int64         `json:"hold_ms"`
	FeedbackMS  int64         `json:"feedback_ms"`
	Gestures    []gestureBody `json:"gestures,omitempty"`
	Duplicates  [][]string    `json:"duplicates,omitempty"`
	CreatedAt   string        `json:"created_at,omitempty"`
	UpdatedAt   string        `json:"updated_at,omitempty"`
}

type listLessonsResponse struct {
	Lessons []lessonResponse `json:"lessons"`
}

func (req createLessonRequest) plan() gesture.Plan {
	p := gesture.Plan{
		Name:        req.Name,
		Description: req.Description,
		Trigger:     req.Trigger,
		Gestures:    make([]gesture.Gesture, len(req.Gestures)),
		Timing: gesture.Timing{
			Hold:     time.Duration(req.HoldMS) * time.Millisecond,
			Feedback: time.Duration(req.FeedbackMS) * time.Millisecond,
		},
	}
	for i, g := range req.Gestures {
		p.Gestures[i] = gesture.Gesture{Name: g.Name, Rule: g.Rule}
		if g.HoldMS != nil {
			if p.Timing.Overrides == nil {
				p.Timing.Overrides = make(map[string]time.Duration)
			}
			p.Timing.Overrides[g.Name] = time.Duration(*g.HoldMS) * time.Millisecond
		}
	}
	return p
}

// toLessonResponse renders a plan. Gestures are included only when detail is set.
func (h *LessonHandler) toLessonResponse(p gesture.Plan, detail bool) lessonResponse {
	resp := lessonResponse{
		Name:        p.Name,
		Description: p.Description,
		Trigger:     p.Trigger,
		HoldMS:      p.Timing.Hold.Milliseconds(),
		FeedbackMS:  p.Timing.Feedback.Milliseconds(),
	}
	if h.ctrl != nil {
		resp.Current = h.ctrl.Snapshot().Lesson == p.Name
	}
	if !detail {
		return resp
	}

	resp.Gestures = make([]gestureBody, len(p.Gestures))
	for i, g := range p.Gestures {
		resp.Gestures[i] = gestureBody{Name: g.Name, Rule: g.Rule}
		if d, ok := p.Timing.Overrides[g.Name]; ok {
			ms := d.Milliseconds()
			resp.Gestures[i].HoldMS = &ms
		}
	}
	if bank, err := gesture.NewBank(p, gesture.DefaultParams()); err == nil {
		resp.Duplicates = bank.Duplicates()
	}
	return resp
}

func withRecord(resp lessonResponse, l *store.Lesson) lessonResponse {
	resp.ID = l.ID
	resp.Builtin = l.Builtin
	resp.CreatedAt = l.CreatedAt.Format(timeFormat)
	resp.UpdatedAt = l.UpdatedAt.Format(timeFormat)
	return resp
}

// list handles GET /api/lessons and returns all lessons.
func (h *LessonHandler) list(w http.ResponseWriter, r *http.Request) {
	response := listLessonsResponse{Lessons: []lessonResponse{}}

	if h.store == nil {
		for _, p := range gesture.Plans() {
			resp := h.toLessonResponse(p, false)
			resp.Builtin = true
			response.Lessons = append(response.Lessons, resp)
		}
		writeJSON(w, http.StatusOK, response)
		return
	}

	lessons, err := h.store.Lessons().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lessons")
		return
	}
	for _, l := range lessons {
		p := gesture.Plan{
			Name:        l.Name,
			Description: l.Description,
			Trigger:     l.Trigger,
			Timing:      gesture.Timing{Hold: l.Hold, Feedback: l.Feedback},
		}
		response.Lessons = append(response.Lessons, withRecord(h.toLessonResponse(p, false), l))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/lessons/{name} and returns a lesson with its gestures.
func (h *LessonHandler) get(w http.ResponseWriter, r *http.Request, name string) {
	if h.store == nil {
		p, err := gesture.Lookup(name)
		if err != nil {
			writeError(w, http.StatusNotFound, "Lesson not found")
			return
		}
		resp := h.toLessonResponse(p, true)
		resp.Builtin = true
		writeJSON(w, http.StatusOK, resp)
		return
	}

	l, err := h.store.Lessons().GetByName(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lesson not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get lesson")
		return
	}
	p, err := h.store.Lessons().Plan(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get lesson gestures")
		return
	}

	writeJSON(w, http.StatusOK, withRecord(h.toLessonResponse(p, true), l))
}

// create handles POST /api/lessons and stores a custom lesson.
func (h *LessonHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No lesson store configured")
		return
	}

	var req createLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	plan := req.plan()
	if err := plan.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Check for duplicate name
	_, err := h.store.Lessons().GetByName(plan.Name)
	if err == nil {
		writeError(w, http.StatusConflict, "Lesson already exists")
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check existing lesson")
		return
	}

	l, err := h.store.Lessons().Save(plan, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create lesson")
		return
	}

	writeJSON(w, http.StatusCreated, withRecord(h.toLessonResponse(plan, true), l))
}

// delete handles DELETE /api/lessons/{name} and removes a custom lesson.
func (h *LessonHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No lesson store configured")
		return
	}

	l, err := h.store.Lessons().GetByName(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lesson not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get lesson")
		return
	}
	if l.Builtin {
		writeError(w, http.StatusForbidden, "Built-in lessons cannot be deleted")
		return
	}
	if h.ctrl != nil && h.ctrl.Snapshot().Lesson == name {
		writeError(w, http.StatusConflict, "Lesson is in use")
		return
	}

	if err := h.store.Lessons().Delete(l.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete lesson")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// selectLesson handles POST /api/lessons/{name}/select and switches the
// running session to the lesson.
func (h *LessonHandler) selectLesson(w http.ResponseWriter, r *http.Request, name string) {
	if h.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "Recognizer not running")
		return
	}

	if err := h.ctrl.SelectLesson(name); err != nil {
		switch {
		case errors.Is(err, gesture.ErrUnknownPlan):
			writeError(w, http.StatusNotFound, "Lesson not found")
		case errors.Is(err, gesture.ErrInvalidRule), errors.Is(err, gesture.ErrUnknownGesture):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to select lesson")
		}
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Snapshot: h.ctrl.Snapshot(), Enabled: h.ctrl.IsEnabled()})
}
