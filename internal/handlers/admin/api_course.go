package admin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/campus/internal/handlers"
	"github.com/s/campus/internal/models"
)

// HandleGrantEnrollment grants a course to a user given by uid or by email.
func (s *Service) HandleGrantEnrollment(w http.ResponseWriter, r *http.Request) {
	var req models.EnrollmentRequest
	if err := s.DecodeJSON(r, &req); err != nil {
		s.WriteError(w, err)
		return
	}

	uid := req.UID
	if uid != "" {
		if err := s.App.Enrollment.GrantCourseAccess(r.Context(), uid, req.CourseID); err != nil {
			s.WriteError(w, err)
			return
		}
	} else {
		p, err := s.App.Enrollment.GrantByEmail(r.Context(), req.Email, req.CourseID)
		if err != nil {
			s.WriteError(w, err)
			return
		}
		uid = p.UID
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"uid": uid, "courseId": req.CourseID})
}

// HandleSaveCourse creates or replaces a catalog course. The id in the path wins over the body.
func (s *Service) HandleSaveCourse(w http.ResponseWriter, r *http.Request) {
	var course models.Course
	if err := handlers.DecodeBody(r, &course); err != nil {
		s.WriteError(w, err)
		return
	}
	course.ID = mux.Vars(r)["id"]
	if err := s.Validate.Struct(course); err != nil {
		s.WriteError(w, err)
		return
	}
	if err := s.App.Catalog.Save(r.Context(), course); err != nil {
		s.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, course)
}
