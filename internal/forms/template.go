// Package forms implements read-only access to the form template catalog
// and validation of submitted data against a template's field rules.
package forms

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a form template.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// FieldType is the input type of a template field.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldFile   FieldType = "file"
	FieldSelect FieldType = "select"
)

// DateLayout is the accepted format for date field values.
const DateLayout = "2006-01-02"

// Field describes one input of a form template.
type Field struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Pattern  string    `json:"pattern,omitempty"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// Template is a reusable form definition. Only published templates are
// eligible for matching or submission.
type Template struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Fields      []Field   `json:"fields"`
	Status      Status    `json:"status"`
	FileURL     string    `json:"fileUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Published reports whether the template accepts matching and submissions.
func (t *Template) Published() bool {
	return t.Status == StatusPublished
}
