package database_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/formwise/pkg/database"
	"github.com/JaimeStill/formwise/pkg/lifecycle"
)

func TestFinalize(t *testing.T) {
	t.Setenv("TEST_DB_PORT", "6543")

	cfg := database.Config{Name: "formwise", User: "formwise"}
	if err := cfg.Finalize(&database.Env{Port: "TEST_DB_PORT"}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Port != 6543 {
		t.Errorf("port = %d, want 6543", cfg.Port)
	}
	if cfg.ConnTimeoutDuration() != 5*time.Second {
		t.Errorf("conn_timeout = %v, want 5s", cfg.ConnTimeoutDuration())
	}
	if !strings.Contains(cfg.Dsn(), "dbname=formwise") {
		t.Errorf("dsn = %s", cfg.Dsn())
	}
}

func TestURL(t *testing.T) {
	cfg := database.Config{
		Host:     "db",
		Port:     5432,
		Name:     "formwise",
		User:     "svc",
		Password: "p@ss word",
		SSLMode:  "disable",
	}

	want := "postgres://svc:p%40ss%20word@db:5432/formwise?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Errorf("URL() = %s, want %s", got, want)
	}
}

func TestFinalizeRequiresName(t *testing.T) {
	cfg := database.Config{User: "formwise"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestNewDefersConnection(t *testing.T) {
	cfg := &database.Config{Name: "formwise", User: "formwise"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := database.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys.Connection() == nil {
		t.Error("Connection() returned nil")
	}
}

func TestReadyFalseBeforeStart(t *testing.T) {
	cfg := &database.Config{Name: "formwise", User: "formwise"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := database.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys.Ready() {
		t.Error("database should not report ready before the startup ping")
	}
}

func TestFinalizeConnectAttempts(t *testing.T) {
	t.Setenv("TEST_DB_CONNECT_ATTEMPTS", "0")

	cfg := database.Config{Name: "formwise", User: "formwise"}
	err := cfg.Finalize(&database.Env{ConnectAttempts: "TEST_DB_CONNECT_ATTEMPTS"})
	if err == nil || !strings.Contains(err.Error(), "connect_attempts") {
		t.Errorf("Finalize() error = %v, want connect_attempts error", err)
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Host: "localhost", Name: "formwise", ConnectAttempts: 5}
	base.Merge(&database.Config{Host: "db", ConnectAttempts: 2})

	if base.Host != "db" || base.Name != "formwise" || base.ConnectAttempts != 2 {
		t.Errorf("Merge() = %+v", base)
	}
}

func TestStartUnreachable(t *testing.T) {
	cfg := &database.Config{
		Host:            "127.0.0.1",
		Port:            1,
		Name:            "formwise",
		User:            "formwise",
		ConnTimeout:     "200ms",
		ConnectAttempts: 1,
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := database.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.WaitForStartup()

	if sys.Ready() || lc.Ready() {
		t.Error("unreachable database should not be ready")
	}
	if status, ok := lc.Readiness()["database"]; !ok || status {
		t.Errorf("Readiness() = %v, want tracked database=false", lc.Readiness())
	}

	if err := lc.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
