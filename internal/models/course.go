package models

import (
	"encoding/json"
)

// Course is one document of the cursos collection.
type Course struct {
	ID       string `json:"id" validate:"required,max=64,excludesall=.$"`
	Title    string `json:"titulo" validate:"required,max=200"`
	Category string `json:"categoria,omitempty"`
	Language string `json:"idioma,omitempty"`
	Level    string `json:"nivel,omitempty"`
	Units    []Unit `json:"unidades" validate:"dive"`
}

// Unit holds an ordered list of lessons.
type Unit struct {
	Title    string   `json:"titulo,omitempty"`
	Lessons  []Lesson `json:"lecciones"`
	Duration string   `json:"duracion,omitempty"`
}

// Lesson is one entry of a unit's lesson list.
type Lesson struct {
	Title string `json:"titulo"`
	Kind  string `json:"tipo,omitempty"`
}

// UnmarshalJSON accepts the older plain-string lesson form as well as the object form.
func (l *Lesson) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		*l = Lesson{Title: title}
		return nil
	}
	type plain Lesson
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Lesson(p)
	return nil
}

// TotalLessons sums every unit's lesson list.
func (c *Course) TotalLessons() int {
	total := 0
	for _, u := range c.Units {
		total += len(u.Lessons)
	}
	return total
}
