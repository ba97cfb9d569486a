package models

import (
	"strings"
	"time"
)

// User is the value stored at a shard's user_N field.
type User struct {
	UID              string                    `json:"uid"`
	Email            string                    `json:"email"`
	Role             Role                      `json:"role"`
	BatchID          string                    `json:"batchId"`
	CreatedAt        time.Time                 `json:"createdAt"`
	Disabled         bool                      `json:"desactivado,omitempty"`
	AcquiredCourses  []string                  `json:"cursosAdquiridos"`
	Progress         map[string]CourseProgress `json:"progreso"`
	Name             string                    `json:"nombre,omitempty"`
	LearningLanguage string                    `json:"idiomaAprendizaje,omitempty"`
	LearningLevel    string                    `json:"nivel,omitempty"`
	TaughtLanguages  []string                  `json:"idiomasEnsenados,omitempty"`
}

// HasCourse reports whether courseID is among the acquired courses.
func (u *User) HasCourse(courseID string) bool {
	for _, c := range u.AcquiredCourses {
		if c == courseID {
			return true
		}
	}
	return false
}

// Identity is what the identity provider hands over at sign-in.
type Identity struct {
	UID     string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ProfileUpdate carries the self-editable profile fields. Nil means untouched.
type ProfileUpdate struct {
	Name             *string  `json:"nombre" validate:"omitempty,max=120"`
	LearningLanguage *string  `json:"idiomaAprendizaje" validate:"omitempty,max=40"`
	LearningLevel    *string  `json:"nivel" validate:"omitempty,max=20"`
	TaughtLanguages  []string `json:"idiomasEnsenados" validate:"omitempty,max=20,dive,max=40"`
}

// Fields returns the update as user-entry field names to values.
func (p ProfileUpdate) Fields() map[string]any {
	out := map[string]any{}
	if p.Name != nil {
		out["nombre"] = strings.TrimSpace(*p.Name)
	}
	if p.LearningLanguage != nil {
		out["idiomaAprendizaje"] = strings.TrimSpace(*p.LearningLanguage)
	}
	if p.LearningLevel != nil {
		out["nivel"] = strings.TrimSpace(*p.LearningLevel)
	}
	if p.TaughtLanguages != nil {
		langs := make([]any, 0, len(p.TaughtLanguages))
		for _, l := range p.TaughtLanguages {
			langs = append(langs, strings.TrimSpace(l))
		}
		out["idiomasEnsenados"] = langs
	}
	return out
}

// NormalizeEmail is the comparison form used for email lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountStatus is reported to the pre-login check.
type AccountStatus string

const (
	AccountUnknown  AccountStatus = "unknown"
	AccountActive   AccountStatus = "active"
	AccountDisabled AccountStatus = "disabled"
)
