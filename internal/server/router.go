package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/campus/internal/handlers"
	"github.com/s/campus/internal/handlers/admin"
	"github.com/s/campus/internal/handlers/personal"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/middleware"
	"github.com/s/campus/internal/models"
)

// NewRouter builds the HTTP surface. CORS and request logging wrap the whole
// router so that preflight requests and unmatched routes are covered too.
func NewRouter(h *handlers.Handler, log *logger.Logger, allowedOrigin string) http.Handler {
	adminService := &admin.Service{Handler: *h}
	personalService := &personal.Service{Handler: *h}

	signedIn := middleware.RequiredRole(h)
	staff := middleware.RequiredRole(h, models.RoleTeacher, models.RoleAdmin)
	adminOnly := middleware.RequiredRole(h, models.RoleAdmin)

	r := mux.NewRouter()

	// Публичные маршруты
	r.HandleFunc("/auth/google/login", h.HandleGoogleLogin).Methods("GET")
	r.HandleFunc("/auth/google/callback", h.HandleGoogleCallback).Methods("GET")
	r.HandleFunc("/logout", h.HandleLogout).Methods("POST")
	r.HandleFunc("/api/account-status", h.HandleAccountStatus).Methods("GET")
	r.HandleFunc("/api/courses", h.HandleCourses).Methods("GET")
	r.HandleFunc("/api/courses/{id}", h.HandleCourse).Methods("GET")

	// Для вошедших пользователей
	r.HandleFunc("/api/me", signedIn(h.HandleMe)).Methods("GET")
	r.HandleFunc("/api/me", signedIn(personalService.HandleUpdateProfile)).Methods("PATCH")
	r.HandleFunc("/api/me/dashboard", signedIn(h.HandleStudentDashboard)).Methods("GET")
	r.HandleFunc("/api/me/activity", signedIn(personalService.HandleActivity)).Methods("GET")
	r.HandleFunc("/api/courses/{id}/progress", signedIn(h.HandleCourseProgress)).Methods("GET")
	r.HandleFunc("/api/courses/{id}/progress", signedIn(h.HandleRecordProgress)).Methods("POST")

	// Преподаватели и администраторы
	r.HandleFunc("/api/admin/users", staff(adminService.HandleListUsers)).Methods("GET")

	// Только администратор
	r.HandleFunc("/api/admin/users/{uid}/role", adminOnly(adminService.HandleUpdateRole)).Methods("PUT")
	r.HandleFunc("/api/admin/users/{uid}/status", adminOnly(adminService.HandleSetStatus)).Methods("PUT")
	r.HandleFunc("/api/admin/enrollments", adminOnly(adminService.HandleGrantEnrollment)).Methods("POST")
	r.HandleFunc("/api/admin/courses/{id}", adminOnly(adminService.HandleSaveCourse)).Methods("PUT")

	return middleware.CORS(allowedOrigin)(middleware.Logging(log)(r))
}
