// Package contactsource reads contact rows from external sheets.
package contactsource

import (
	"context"
	"strings"

	"github.com/unclebandit/coldmail-backend/internal/model"
)

// Source yields contact rows in sheet order. Rows are not validated; the
// contact importer reports missing and duplicate emails per row.
type Source interface {
	Rows(ctx context.Context) ([]model.ContactInput, error)
}

// StaticSource serves a fixed set of rows
type StaticSource struct {
	rows []model.ContactInput
}

// NewStaticSource returns a Source over rows
func NewStaticSource(rows []model.ContactInput) *StaticSource {
	return &StaticSource{rows: rows}
}

func (s *StaticSource) Rows(ctx context.Context) ([]model.ContactInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.ContactInput, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// SampleSheet is the demo contact list loaded by the seeder
func SampleSheet() *StaticSource {
	return NewStaticSource([]model.ContactInput{
		{FirstName: "John", LastName: "Doe", Email: "john.doe@example.com", Company: "Acme Inc", Position: "CEO", Tags: []string{"lead", "tech"}},
		{FirstName: "Jane", LastName: "Smith", Email: "jane.smith@example.com", Company: "Tech Solutions", Position: "CTO", Tags: []string{"prospect", "enterprise"}},
		{FirstName: "Robert", LastName: "Johnson", Email: "robert.johnson@example.com", Company: "Global Services", Position: "Marketing Director", Tags: []string{"lead", "marketing"}},
		{FirstName: "Emily", LastName: "Brown", Email: "emily.brown@example.com", Company: "Creative Design", Position: "Head of Design", Tags: []string{"prospect", "design"}},
		{FirstName: "Michael", LastName: "Wilson", Email: "michael.wilson@example.com", Company: "Data Analytics", Position: "Data Scientist", Tags: []string{"lead", "data"}},
	})
}

// splitTags turns "a, b,,c" into [a b c]
func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
