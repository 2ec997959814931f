package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/remoteflow/remoteflow/internal/engine"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/schema"
)

type jobView struct {
	RuleID  string    `json:"ruleId"`
	NextRun time.Time `json:"nextRun"`
}

type statusView struct {
	Running bool      `json:"running"`
	Rules   int       `json:"rules"`
	Enabled int       `json:"enabled"`
	Jobs    []jobView `json:"jobs"`
	Clients int       `json:"clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	list, err := s.rules.ListRules()
	if err != nil {
		writeError(w, err)
		return
	}
	view := statusView{Running: s.rules.Running(), Rules: len(list), Jobs: []jobView{}, Clients: s.hub.Clients()}
	for _, r := range list {
		if r.Enabled {
			view.Enabled++
		}
	}
	for _, id := range s.rules.Jobs() {
		if next, ok := s.rules.NextRun(id); ok {
			view.Jobs = append(view.Jobs, jobView{RuleID: id, NextRun: next})
		}
	}
	writeJSON(w, http.StatusOK, view)
}

// ─── Rules ─────────────────────────────────────────────────────────────────

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	list, err := s.rules.ListRules()
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []rules.Rule{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.rules.GetRule(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	added, err := s.rules.AddRule(rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleRemoveRule(w http.ResponseWriter, r *http.Request) {
	removed, err := s.rules.RemoveRule(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, rules.ErrRuleNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnableRule(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, chi.URLParam(r, "id"), s.rules.EnableRule)
}

func (s *Server) handleDisableRule(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, chi.URLParam(r, "id"), s.rules.DisableRule)
}

func (s *Server) setEnabled(w http.ResponseWriter, id string, op func(string) (rules.Rule, bool, error)) {
	rule, ok, err := op(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, rules.ErrRuleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleRunRule(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	report, err := s.rules.RunRule(r.Context(), chi.URLParam(r, "id"), force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ─── Time tracking ─────────────────────────────────────────────────────────

type dayView struct {
	Date         string             `json:"date,omitempty"`
	Entries      []schema.TimeEntry `json:"entries"`
	TotalMinutes float64            `json:"totalMinutes"`
}

func (s *Server) handleCurrentEntry(w http.ResponseWriter, _ *http.Request) {
	entry, err := s.timer.CurrentEntry()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	entries, err := s.timer.Entries(date)
	if err != nil {
		writeError(w, err)
		return
	}
	view := dayView{Date: date, Entries: entries}
	for _, e := range entries {
		view.TotalMinutes += e.Duration
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleWeek(w http.ResponseWriter, _ *http.Request) {
	total, err := s.timer.TotalThisWeek()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"totalMinutes": total})
}

type startRequest struct {
	Activity string `json:"activity"`
	Project  string `json:"project,omitempty"`
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Activity == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "activity is required"})
		return
	}
	entry, err := s.timer.StartTimer(r.Context(), req.Activity, req.Project)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	entry, err := s.timer.StopTimer(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

// ─── Analytics ─────────────────────────────────────────────────────────────

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	weekly, err := s.analytics.Generate(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, weekly)
}

// ─── Responses ─────────────────────────────────────────────────────────────

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, rules.ErrInvalidRule), errors.Is(err, rules.ErrUnsupportedTrigger):
		return http.StatusBadRequest
	case errors.Is(err, rules.ErrDuplicateRule), errors.Is(err, engine.ErrRuleDisabled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
