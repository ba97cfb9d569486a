package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/campus/internal/models"
)

func (h *Handler) HandleCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.App.Catalog.ListAll(r.Context())
	if err != nil {
		h.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *Handler) HandleCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.App.Catalog.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.WriteError(w, err)
		return
	}
	if course == nil {
		jsonError(w, "course not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// HandleStudentDashboard lists acquired courses with progress and the lesson to continue with.
func (h *Handler) HandleStudentDashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := ProfileFrom(r.Context())
	if !ok {
		jsonError(w, "not signed in", http.StatusUnauthorized)
		return
	}
	rows, err := h.App.Dashboard(r.Context(), p.UID)
	if err != nil {
		h.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) HandleCourseProgress(w http.ResponseWriter, r *http.Request) {
	p, ok := ProfileFrom(r.Context())
	if !ok {
		jsonError(w, "not signed in", http.StatusUnauthorized)
		return
	}
	view, err := h.App.CourseProgress(r.Context(), p.UID, mux.Vars(r)["id"])
	if err != nil {
		h.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type lessonStateRequest struct {
	LessonKey string `json:"lessonKey" validate:"required"`
	models.LessonPatch
}

// HandleRecordProgress merges one lesson's flags. Flags sent as false never clear a stored true.
func (h *Handler) HandleRecordProgress(w http.ResponseWriter, r *http.Request) {
	p, ok := ProfileFrom(r.Context())
	if !ok {
		jsonError(w, "not signed in", http.StatusUnauthorized)
		return
	}
	var req lessonStateRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, err)
		return
	}
	view, err := h.App.RecordLesson(r.Context(), p.UID, mux.Vars(r)["id"], req.LessonKey, req.LessonPatch)
	if err != nil {
		h.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
