package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type mockMigrator struct {
	calls   []string
	err     error
	version uint
	dirty   bool
}

func (m *mockMigrator) Up() error {
	m.calls = append(m.calls, "up")
	return m.err
}

func (m *mockMigrator) Down() error {
	m.calls = append(m.calls, "down")
	return m.err
}

func (m *mockMigrator) Steps(n int) error {
	m.calls = append(m.calls, "steps")
	return m.err
}

func (m *mockMigrator) Version() (uint, bool, error) {
	m.calls = append(m.calls, "version")
	return m.version, m.dirty, m.err
}

func (m *mockMigrator) Force(v int) error {
	m.calls = append(m.calls, "force")
	return m.err
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(*options) bool
	}{
		{"up", []string{"-up"}, false, func(o *options) bool { return o.up }},
		{"steps", []string{"-steps", "-1"}, false, func(o *options) bool { return o.steps == -1 }},
		{"force zero", []string{"-force", "0"}, false, func(o *options) bool { return o.forceSet && o.force == 0 }},
		{"dsn", []string{"-dsn", "postgres://x", "-version"}, false, func(o *options) bool { return o.dsn == "postgres://x" }},
		{"no action", nil, true, nil},
		{"unknown flag", []string{"-sideways"}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseFlags() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}
			if !tt.check(opts) {
				t.Errorf("options = %+v", opts)
			}
		})
	}
}

func TestResolveDSN(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env")
		got, err := resolveDSN("postgres://flag")
		if err != nil || got != "postgres://flag" {
			t.Errorf("resolveDSN() = %q, %v", got, err)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env")
		got, err := resolveDSN("")
		if err != nil || got != "postgres://env" {
			t.Errorf("resolveDSN() = %q, %v", got, err)
		}
	})

	t.Run("service config", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv(envDSN, "")
		t.Setenv("FORMWISE_DB_NAME", "intake")
		t.Setenv("FORMWISE_DB_USER", "svc")
		t.Setenv("FORMWISE_DB_HOST", "db")

		got, err := resolveDSN("")
		if err != nil {
			t.Fatalf("resolveDSN() error = %v", err)
		}
		if !strings.HasPrefix(got, "postgres://svc") || !strings.Contains(got, "@db:5432/intake") {
			t.Errorf("resolveDSN() = %q", got)
		}
	})
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		opts     options
		err      error
		wantCall string
		wantOut  string
		wantErr  bool
	}{
		{"up", options{up: true}, nil, "up", "migrations applied", false},
		{"up no change", options{up: true}, migrate.ErrNoChange, "up", "migrations applied", false},
		{"down", options{down: true}, nil, "down", "migrations reverted", false},
		{"steps", options{steps: 2}, nil, "steps", "applied 2 migration steps", false},
		{"force", options{forceSet: true, force: 1}, nil, "force", "forced to version 1", false},
		{"no version", options{version: true}, migrate.ErrNilVersion, "version", "version: none", false},
		{"up failure", options{up: true}, errors.New("boom"), "up", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockMigrator{err: tt.err}
			var out bytes.Buffer

			err := apply(m, &tt.opts, &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(m.calls) != 1 || m.calls[0] != tt.wantCall {
				t.Errorf("calls = %v, want [%s]", m.calls, tt.wantCall)
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestApplyVersion(t *testing.T) {
	m := &mockMigrator{version: 2, dirty: true}
	var out bytes.Buffer

	if err := apply(m, &options{version: true}, &out); err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if got := out.String(); got != "version: 2, dirty: true\n" {
		t.Errorf("output = %q", got)
	}
}
