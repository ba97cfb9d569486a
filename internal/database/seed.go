package database

import (
	"context"
	"fmt"

	"github.com/s/campus/internal/models"
	"github.com/s/campus/internal/storage"
)

// DemoCourses is the catalog written on first boot.
func DemoCourses() []models.Course {
	lessons := func(titles ...string) []models.Lesson {
		out := make([]models.Lesson, 0, len(titles))
		for _, t := range titles {
			out = append(out, models.Lesson{Title: t, Kind: "video"})
		}
		return out
	}
	return []models.Course{
		{
			ID: "ingles-a1", Title: "Inglés A1", Category: "idiomas", Language: "inglés", Level: "A1",
			Units: []models.Unit{
				{Title: "Saludos", Lessons: lessons("Hello", "Introductions", "Numbers")},
				{Title: "Rutina", Lessons: lessons("Daily routine", "Telling the time")},
			},
		},
		{
			ID: "frances-a1", Title: "Francés A1", Category: "idiomas", Language: "francés", Level: "A1",
			Units: []models.Unit{
				{Title: "Bonjour", Lessons: lessons("Salutations", "L'alphabet")},
				{Title: "La famille", Lessons: lessons("Les membres", "Les adjectifs possessifs")},
			},
		},
	}
}

// Seed writes the demo courses when the catalog is empty. An existing catalog is never touched.
func Seed(ctx context.Context, catalog *storage.Catalog) (int, error) {
	existing, err := catalog.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	courses := DemoCourses()
	for _, c := range courses {
		if err := catalog.Save(ctx, c); err != nil {
			return 0, fmt.Errorf("seed %s: %w", c.ID, err)
		}
	}
	return len(courses), nil
}
