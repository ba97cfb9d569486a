package models

// EnrollmentRequest grants a course to a user identified by uid or email.
type EnrollmentRequest struct {
	UID      string `json:"uid" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	CourseID string `json:"courseId" validate:"required"`
}
