package forms

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/formwise/pkg/query"
	"github.com/JaimeStill/formwise/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "form_templates", "f").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("fields", "Fields").
	Project("status", "Status").
	Project("file_url", "FileURL").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Name"}

// Filters contains optional filtering criteria for template queries.
// Status uses exact matching; Name uses case-insensitive contains matching.
type Filters struct {
	Status *Status `json:"status,omitempty"`
	Name   *string `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder. A nil Status restricts
// results to published templates.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	status := StatusPublished
	if f.Status != nil {
		status = *f.Status
	}
	return b.
		WhereEquals("Status", string(status)).
		WhereContains("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	return f
}

func scanTemplate(s repository.Scanner) (Template, error) {
	var (
		t      Template
		fields []byte
	)
	err := s.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&fields,
		&t.Status,
		&t.FileURL,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}

	if err := json.Unmarshal(fields, &t.Fields); err != nil {
		return t, fmt.Errorf("decode fields for template %s: %w", t.ID, err)
	}
	if t.Fields == nil {
		t.Fields = []Field{}
	}
	return t, nil
}
