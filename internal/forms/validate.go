package forms

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/formwise/pkg/fieldmap"
)

// FieldError describes why a single field value was rejected.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field rule violated by submitted data.
// It matches ErrInvalidData with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", ErrInvalidData, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidData
}

// Validate checks data against the template's field rules. Keys that do not
// name a template field are rejected unless their value is empty. Empty
// optional values skip type and pattern checks. Pattern rules must match the whole value.
func (t *Template) Validate(data fieldmap.Map) error {
	var violations []FieldError
	add := func(field, format string, args ...any) {
		violations = append(violations, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	known := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		known[f.ID] = true
	}
	for _, key := range data.Keys() {
		if !known[key] && strings.TrimSpace(data.Value(key)) != "" {
			add(key, "unknown field")
		}
	}

	for _, f := range t.Fields {
		value := strings.TrimSpace(data.Value(f.ID))
		if value == "" {
			if f.Required {
				add(f.ID, "is required")
			}
			continue
		}

		if msg := checkType(f, value); msg != "" {
			add(f.ID, "%s", msg)
			continue
		}

		if f.Pattern != "" {
			re, err := regexp.Compile(`^(?:` + f.Pattern + `)$`)
			if err != nil {
				add(f.ID, "template pattern is invalid")
				continue
			}
			if !re.MatchString(value) {
				add(f.ID, "does not match pattern %s", f.Pattern)
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Fields: violations}
	}
	return nil
}

func checkType(f Field, value string) string {
	switch f.Type {
	case FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "must be a number"
		}
	case FieldDate:
		if _, err := time.Parse(DateLayout, value); err != nil {
			return "must be a date in YYYY-MM-DD format"
		}
	case FieldSelect:
		if !slices.Contains(f.Options, value) {
			return fmt.Sprintf("must be one of %s", strings.Join(f.Options, ", "))
		}
	}
	return ""
}
