package submissions

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/pkg/query"
	"github.com/JaimeStill/formwise/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "submissions", "s").
	Project("id", "ID").
	Project("form_id", "FormID").
	Project("data", "Data").
	Project("status", "Status").
	Project("execution_id", "ExecutionID").
	Project("result", "Result").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "CreatedAt", Descending: true}

var eventProjection = query.
	NewProjectionMap("public", "submission_events", "e").
	Project("id", "ID").
	Project("seq", "Sequence").
	Project("submission_id", "SubmissionID").
	Project("from_status", "FromStatus").
	Project("to_status", "ToStatus").
	Project("execution_id", "ExecutionID").
	Project("detail", "Detail").
	Project("occurred_at", "OccurredAt")

var eventSort = query.SortField{Field: "Sequence"}

// Filters contains optional filtering criteria for submission queries.
// CreatedAfter is inclusive and CreatedBefore is exclusive.
type Filters struct {
	FormID        *uuid.UUID `json:"formId,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	CreatedAfter  *time.Time `json:"createdAfter,omitempty"`
	CreatedBefore *time.Time `json:"createdBefore,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}
	return b.
		WhereEquals("FormID", f.FormID).
		WhereEquals("Status", status).
		WhereAfter("CreatedAt", f.CreatedAfter).
		WhereBefore("CreatedAt", f.CreatedBefore)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Malformed values are reported as ErrInvalidRequest.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if v := values.Get("formId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, fmt.Errorf("%w: formId: %v", ErrInvalidRequest, err)
		}
		f.FormID = &id
	}

	if v := values.Get("status"); v != "" {
		status := Status(v)
		if !status.Valid() {
			return f, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, v)
		}
		f.Status = &status
	}

	for key, dst := range map[string]**time.Time{
		"createdAfter":  &f.CreatedAfter,
		"createdBefore": &f.CreatedBefore,
	} {
		v := values.Get(key)
		if v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, key, err)
		}
		*dst = &ts
	}

	return f, nil
}

func scanSubmission(s repository.Scanner) (Submission, error) {
	var (
		sub    Submission
		data   []byte
		result []byte
	)
	err := s.Scan(
		&sub.ID,
		&sub.FormID,
		&data,
		&sub.Status,
		&sub.ExecutionID,
		&result,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return sub, err
	}

	if err := json.Unmarshal(data, &sub.Data); err != nil {
		return sub, fmt.Errorf("decode data for submission %s: %w", sub.ID, err)
	}
	if len(result) > 0 {
		sub.Result = json.RawMessage(result)
	}
	return sub, nil
}

func scanEvent(s repository.Scanner) (Event, error) {
	var (
		e      Event
		from   *string
		detail []byte
	)
	err := s.Scan(
		&e.ID,
		&e.Sequence,
		&e.SubmissionID,
		&from,
		&e.ToStatus,
		&e.ExecutionID,
		&detail,
		&e.OccurredAt,
	)
	if err != nil {
		return e, err
	}

	if from != nil {
		e.FromStatus = Status(*from)
	}
	if len(detail) > 0 {
		e.Detail = json.RawMessage(detail)
	}
	return e, nil
}

// jsonArg converts raw JSON to a query argument, mapping empty to NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func textArg(s string) any {
	if s == "" {
		return nil
	}
	return s
}
