package admin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/campus/internal/handlers"
	"github.com/s/campus/internal/models"
)

type Service struct {
	handlers.Handler
}

type userRow struct {
	models.User
	Shard string `json:"shard"`
	Slot  string `json:"slot"`
}

// HandleListUsers returns the roster, optionally filtered with ?role=.
func (s *Service) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	var role models.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := models.ParseRole(raw)
		if err != nil {
			s.WriteError(w, err)
			return
		}
		role = parsed
	}
	profiles, err := s.App.Directory.List(r.Context(), role)
	if err != nil {
		s.WriteError(w, err)
		return
	}
	rows := make([]userRow, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, userRow{User: p.User, Shard: p.Location.ShardID, Slot: p.Location.SlotKey})
	}
	handlers.WriteJSON(w, http.StatusOK, rows)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=alumno profesor admin"`
}

func (s *Service) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := s.DecodeJSON(r, &req); err != nil {
		s.WriteError(w, err)
		return
	}
	uid := mux.Vars(r)["uid"]
	if err := s.App.Directory.UpdateRole(r.Context(), uid, models.Role(req.Role)); err != nil {
		s.WriteError(w, err)
		return
	}
	s.Log.Info("role changed", "uid", uid, "role", req.Role)
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRequest struct {
	Disabled *bool `json:"desactivado" validate:"required"`
}

// HandleSetStatus soft-disables or re-enables an account.
func (s *Service) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := s.DecodeJSON(r, &req); err != nil {
		s.WriteError(w, err)
		return
	}
	uid := mux.Vars(r)["uid"]
	if self, ok := handlers.ProfileFrom(r.Context()); ok && self.UID == uid && *req.Disabled {
		handlers.JSONError(w, "cannot disable your own account", http.StatusBadRequest)
		return
	}
	if err := s.App.Directory.SetDisabled(r.Context(), uid, *req.Disabled); err != nil {
		s.WriteError(w, err)
		return
	}
	s.Log.Info("account status changed", "uid", uid, "disabled", *req.Disabled)
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
