package forms_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/formwise/internal/forms"
	"github.com/JaimeStill/formwise/pkg/fieldmap"
)

func residencyTemplate() *forms.Template {
	return &forms.Template{
		Name:   "Residency Application",
		Status: forms.StatusPublished,
		Fields: []forms.Field{
			{ID: "name", Label: "Full name", Type: forms.FieldText, Required: true},
			{ID: "email", Label: "Email", Type: forms.FieldText, Pattern: `[^@\s]+@[^@\s]+`},
			{ID: "age", Label: "Age", Type: forms.FieldNumber},
			{ID: "arrival", Label: "Arrival date", Type: forms.FieldDate},
			{ID: "permit", Label: "Permit type", Type: forms.FieldSelect, Options: []string{"work", "study"}},
			{ID: "passport", Label: "Passport scan", Type: forms.FieldFile},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	data := fieldmap.New(
		fieldmap.Pair{Key: "name", Value: "Jane Doe"},
		fieldmap.Pair{Key: "email", Value: "jane@example.com"},
		fieldmap.Pair{Key: "age", Value: "34"},
		fieldmap.Pair{Key: "arrival", Value: "2026-03-01"},
		fieldmap.Pair{Key: "permit", Value: "work"},
		fieldmap.Pair{Key: "passport", Value: "uploads/passport.png"},
	)

	if err := residencyTemplate().Validate(data); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateOptionalEmpty(t *testing.T) {
	data := fieldmap.New(
		fieldmap.Pair{Key: "name", Value: "Jane Doe"},
		fieldmap.Pair{Key: "age", Value: ""},
	)

	if err := residencyTemplate().Validate(data); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateIgnoresEmptyUnknownKeys(t *testing.T) {
	data := fieldmap.New(
		fieldmap.Pair{Key: "name", Value: "Jane Doe"},
		fieldmap.Pair{Key: "email", Value: "jane@example.com"},
		fieldmap.Pair{Key: "phone", Value: ""},
		fieldmap.Pair{Key: "fax", Value: "  "},
	)

	if err := residencyTemplate().Validate(data); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []fieldmap.Pair
		field   string
		message string
	}{
		{"missing required", nil, "name", "is required"},
		{"blank required", []fieldmap.Pair{{Key: "name", Value: "   "}}, "name", "is required"},
		{"pattern", []fieldmap.Pair{{Key: "name", Value: "J"}, {Key: "email", Value: "not-an-email"}}, "email", "does not match pattern"},
		{"pattern anchored", []fieldmap.Pair{{Key: "name", Value: "J"}, {Key: "email", Value: "a@b c"}}, "email", "does not match pattern"},
		{"number", []fieldmap.Pair{{Key: "name", Value: "J"}, {Key: "age", Value: "thirty"}}, "age", "must be a number"},
		{"date", []fieldmap.Pair{{Key: "name", Value: "J"}, {Key: "arrival", Value: "01/03/2026"}}, "arrival", "must be a date"},
		{"select", []fieldmap.Pair{{Key: "name", Value: "J"}, {Key: "permit", Value: "tourism"}}, "permit", "must be one of work, study"},
		{"unknown", []fieldmap.Pair{{Key: "name", Value: "J"}, {Key: "shoe", Value: "42"}}, "shoe", "unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := residencyTemplate().Validate(fieldmap.New(tt.pairs...))
			if !errors.Is(err, forms.ErrInvalidData) {
				t.Fatalf("Validate() error = %v, want ErrInvalidData", err)
			}

			var verr *forms.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %T is not *ValidationError", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("violations = %+v, want exactly one", verr.Fields)
			}
			if verr.Fields[0].Field != tt.field || !strings.Contains(verr.Fields[0].Message, tt.message) {
				t.Errorf("violation = %+v, want %s: %s", verr.Fields[0], tt.field, tt.message)
			}
		})
	}
}

func TestValidateInvalidPattern(t *testing.T) {
	tmpl := &forms.Template{
		Fields: []forms.Field{{ID: "code", Type: forms.FieldText, Pattern: "[unclosed"}},
	}

	err := tmpl.Validate(fieldmap.New(fieldmap.Pair{Key: "code", Value: "x"}))
	if err == nil || !strings.Contains(err.Error(), "template pattern is invalid") {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidationErrorListsAllViolations(t *testing.T) {
	data := fieldmap.New(fieldmap.Pair{Key: "age", Value: "x"})

	err := residencyTemplate().Validate(data)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "name: is required") || !strings.Contains(msg, "age: must be a number") {
		t.Errorf("Error() = %q", msg)
	}
}
