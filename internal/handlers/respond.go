package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/models"
	"github.com/s/campus/internal/storage"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// WriteJSON and JSONError are the response helpers shared with the admin and personal services.
func WriteJSON(w http.ResponseWriter, code int, v any) { writeJSON(w, code, v) }

func JSONError(w http.ResponseWriter, message string, code int) { jsonError(w, message, code) }

// DecodeJSON reads a JSON body and validates it when dst has validate tags.
func (h *Handler) DecodeJSON(r *http.Request, dst any) error {
	if err := DecodeBody(r, dst); err != nil {
		return err
	}
	return h.Validate.Struct(dst)
}

// DecodeBody reads a JSON body without validating it.
func DecodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

var errBadBody = errors.New("malformed body")

// WriteError maps domain errors onto status codes. Unexpected errors are logged
// and reported without detail.
func (h *Handler) WriteError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		jsonError(w, "user not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrCourseNotFound):
		jsonError(w, "course not found", http.StatusNotFound)
	case errors.Is(err, docstore.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidLessonKey),
		errors.Is(err, models.ErrInvalidRole),
		errors.Is(err, docstore.ErrInvalidPath),
		errors.Is(err, errBadBody):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &verrs):
		jsonError(w, verrs.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrCapacityExceeded):
		jsonError(w, "no capacity left for new users", http.StatusConflict)
	case errors.Is(err, storage.ErrAllocationConflict):
		jsonError(w, "too many concurrent sign-ups, retry", http.StatusConflict)
	default:
		h.Log.Error("request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
