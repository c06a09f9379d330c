package submissions_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/internal/forms"
	"github.com/JaimeStill/formwise/internal/submissions"
	"github.com/JaimeStill/formwise/internal/testdb"
	"github.com/JaimeStill/formwise/pkg/cache"
	"github.com/JaimeStill/formwise/pkg/fieldmap"
	"github.com/JaimeStill/formwise/pkg/pagination"
)

var contactFields = []testdb.Field{
	{ID: "name", Label: "Full Name", Type: "text", Required: true},
	{ID: "email", Label: "Email", Type: "text", Pattern: `[^@\s]+@[^@\s]+`},
}

func newStore(t *testing.T) (submissions.System, *sql.DB) {
	t.Helper()
	db := testdb.Open(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	page := pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

	catalog := forms.New(db, cache.New(&cache.Config{}, logger), 0, logger, page)
	return submissions.New(db, catalog, logger, page), db
}

func janeDoe() fieldmap.Map {
	return fieldmap.New(
		fieldmap.Pair{Key: "name", Value: "Jane Doe"},
		fieldmap.Pair{Key: "email", Value: "jane@example.com"},
	)
}

func TestStoreCreate(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	formID := testdb.InsertTemplate(t, db, "Contact", "published", contactFields...)

	sub, err := store.Create(ctx, submissions.CreateCommand{FormID: formID, Data: janeDoe()})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sub.Status != submissions.StatusPending {
		t.Errorf("Status = %s, want pending", sub.Status)
	}
	if !sub.Data.Equal(janeDoe()) {
		t.Errorf("Data = %v, want ordered round trip", sub.Data.Pairs())
	}

	found, err := store.Find(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got := found.Data.Keys(); len(got) != 2 || got[0] != "name" {
		t.Errorf("stored key order = %v", got)
	}

	events, err := store.History(ctx, sub.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 1 || events[0].FromStatus != "" || events[0].ToStatus != submissions.StatusPending {
		t.Errorf("creation history = %+v", events)
	}
}

func TestStoreCreateRejected(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	published := testdb.InsertTemplate(t, db, "Contact", "published", contactFields...)
	draft := testdb.InsertTemplate(t, db, "Draft", "draft", contactFields...)

	tests := []struct {
		name   string
		formID uuid.UUID
		data   fieldmap.Map
	}{
		{"missing form", uuid.New(), janeDoe()},
		{"draft form", draft, janeDoe()},
		{"missing required", published, fieldmap.New(fieldmap.Pair{Key: "email", Value: "jane@example.com"})},
		{"pattern mismatch", published, fieldmap.New(
			fieldmap.Pair{Key: "name", Value: "Jane"},
			fieldmap.Pair{Key: "email", Value: "not an email"},
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, submissions.CreateCommand{FormID: tt.formID, Data: tt.data})
			if !errors.Is(err, submissions.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM submissions WHERE form_id = $1`, published).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rejected submissions persisted: %d", count)
	}
}

func TestStoreTransitionOnce(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	formID := testdb.InsertTemplate(t, db, "Contact", "published", contactFields...)

	sub, err := store.Create(ctx, submissions.CreateCommand{FormID: formID, Data: janeDoe()})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	errored, err := store.Transition(ctx, sub.ID, submissions.TransitionCommand{
		Status:      submissions.StatusError,
		ExecutionID: "exec-1",
		Result:      json.RawMessage(`{"code":"WORKFLOW_FAILED"}`),
	})
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if errored.ExecutionID == nil || *errored.ExecutionID != "exec-1" {
		t.Errorf("ExecutionID = %v, want exec-1", errored.ExecutionID)
	}

	_, err = store.Transition(ctx, sub.ID, submissions.TransitionCommand{Status: submissions.StatusProcessed})
	if !errors.Is(err, submissions.ErrInvalidTransition) {
		t.Fatalf("second Transition() error = %v, want ErrInvalidTransition", err)
	}

	recovered, err := store.Recover(ctx, sub.ID, submissions.TransitionCommand{
		Status: submissions.StatusProcessed,
		Result: json.RawMessage(`{"status":"success"}`),
	})
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if recovered.Status != submissions.StatusProcessed {
		t.Errorf("Status = %s, want processed", recovered.Status)
	}
	if recovered.ExecutionID == nil || *recovered.ExecutionID != "exec-1" {
		t.Errorf("Recover should keep execution id, got %v", recovered.ExecutionID)
	}

	if _, err := store.Recover(ctx, sub.ID, submissions.TransitionCommand{Status: submissions.StatusProcessed}); !errors.Is(err, submissions.ErrInvalidTransition) {
		t.Errorf("Recover() on processed error = %v, want ErrInvalidTransition", err)
	}

	events, err := store.History(ctx, sub.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	want := []submissions.Status{submissions.StatusPending, submissions.StatusError, submissions.StatusProcessed}
	if len(events) != len(want) {
		t.Fatalf("history length = %d, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.ToStatus != want[i] {
			t.Errorf("event %d ToStatus = %s, want %s", i, e.ToStatus, want[i])
		}
	}
}

func TestStoreTransitionConcurrent(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	formID := testdb.InsertTemplate(t, db, "Contact", "published", contactFields...)

	sub, err := store.Create(ctx, submissions.CreateCommand{FormID: formID, Data: janeDoe()})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := submissions.StatusProcessed
			if i%2 == 0 {
				status = submissions.StatusError
			}
			if _, err := store.Transition(ctx, sub.ID, submissions.TransitionCommand{Status: status}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, submissions.ErrInvalidTransition) {
				t.Errorf("Transition() unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("successful transitions = %d, want 1", succeeded)
	}
}

func TestStoreNotFound(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	id := uuid.New()

	if _, err := store.Find(ctx, id); !errors.Is(err, submissions.ErrNotFound) {
		t.Errorf("Find() error = %v, want ErrNotFound", err)
	}
	if _, err := store.History(ctx, id); !errors.Is(err, submissions.ErrNotFound) {
		t.Errorf("History() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Transition(ctx, id, submissions.TransitionCommand{Status: submissions.StatusProcessed}); !errors.Is(err, submissions.ErrNotFound) {
		t.Errorf("Transition() error = %v, want ErrNotFound", err)
	}
}

func TestStoreList(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	formID := testdb.InsertTemplate(t, db, "Contact", "published", contactFields...)

	for range 3 {
		if _, err := store.Create(ctx, submissions.CreateCommand{FormID: formID, Data: janeDoe()}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := store.List(ctx, pagination.PageRequest{Page: 1, PageSize: 2}, submissions.Filters{FormID: &formID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 3 || len(result.Data) != 2 || result.TotalPages != 2 {
		t.Errorf("List() total=%d len=%d pages=%d", result.Total, len(result.Data), result.TotalPages)
	}
}
