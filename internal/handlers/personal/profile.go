package personal

import (
	"net/http"
	"strconv"

	"github.com/s/campus/internal/handlers"
	"github.com/s/campus/internal/models"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

type Service struct {
	handlers.Handler
}

// HandleUpdateProfile applies the self-editable profile fields and returns the fresh entry.
func (s *Service) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := handlers.ProfileFrom(r.Context())
	if !ok {
		handlers.JSONError(w, "not signed in", http.StatusUnauthorized)
		return
	}
	var update models.ProfileUpdate
	if err := s.DecodeJSON(r, &update); err != nil {
		s.WriteError(w, err)
		return
	}
	if err := s.App.Directory.UpdateProfileFields(r.Context(), p.UID, update); err != nil {
		s.WriteError(w, err)
		return
	}
	fresh, err := s.App.Directory.ResolveByUID(r.Context(), p.UID)
	if err != nil {
		s.WriteError(w, err)
		return
	}
	if fresh == nil {
		handlers.JSONError(w, "user not found", http.StatusNotFound)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, fresh.User)
}

// HandleActivity lists recently completed lessons, newest first.
func (s *Service) HandleActivity(w http.ResponseWriter, r *http.Request) {
	p, ok := handlers.ProfileFrom(r.Context())
	if !ok {
		handlers.JSONError(w, "not signed in", http.StatusUnauthorized)
		return
	}
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			handlers.JSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxActivityLimit)
	}
	items, err := s.App.Ledger.RecentActivity(r.Context(), p.UID, limit)
	if err != nil {
		s.WriteError(w, err)
		return
	}
	if items == nil {
		items = []models.Activity{}
	}
	handlers.WriteJSON(w, http.StatusOK, items)
}
