package storage

import "errors"

var (
	ErrCapacityExceeded   = errors.New("all shards are full")
	ErrAllocationConflict = errors.New("could not claim a free slot")
	ErrUserNotFound       = errors.New("user not found")
	ErrCourseNotFound     = errors.New("course not found")
)

const (
	CollectionUsers   = "alumnos"
	CollectionCourses = "cursos"
)
