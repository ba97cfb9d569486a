package models

import (
	"time"
)

// Activity is one completed lesson in a user's activity feed.
type Activity struct {
	CourseID    string    `json:"courseId"`
	LessonKey   string    `json:"lessonKey"`
	CompletedAt time.Time `json:"completedAt"`
}
