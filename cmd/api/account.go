package main

import (
	"net/http"
	"time"

	"github.com/mcclellann/fredBooks/pkg/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"user":       user,
	})
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.storage.GetUser(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	settings, err := s.ledger.GetSettings(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*models.User
		Settings *models.UserSettings `json:"settings"`
	}{user, settings})
}

func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ledger.GetSettings(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	// Start from the current settings so omitted fields keep their value.
	current, err := s.ledger.GetSettings(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	next := *current
	if err := decode(r, &next); err != nil {
		writeError(w, err)
		return
	}
	settings, err := s.ledger.UpdateSettings(r.Context(), currentUser(r), next)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	d, err := s.ledger.Dashboard(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) daywiseHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := s.ledger.Daywise(r.Context(), currentUser(r), r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) datewiseHandler(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, err)
		return
	}
	var f, t time.Time
	if from != nil {
		f = *from
	}
	if to != nil {
		t = *to
	}
	report, err := s.ledger.Datewise(r.Context(), currentUser(r), f, t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
