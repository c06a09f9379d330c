// Command migrate applies the embedded schema migrations. The database is
// taken from -dsn, then FORMWISE_DB_DSN, then the FORMWISE_DB_* settings
// used by the server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/JaimeStill/formwise/internal/config"
	"github.com/JaimeStill/formwise/migrations"
)

const envDSN = "FORMWISE_DB_DSN"

var errUsage = errors.New("usage: migrate [-dsn url] -up|-down|-steps N|-version|-force N")

type options struct {
	dsn      string
	up       bool
	down     bool
	steps    int
	version  bool
	force    int
	forceSet bool
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, logger *slog.Logger) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	dsn, err := resolveDSN(opts.dsn)
	if err != nil {
		return err
	}

	m, err := migrations.New(dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	m.Log = &migrateLogger{logger: logger.With("system", "migrate")}

	return apply(m, opts, out)
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.dsn, "dsn", "", "Database URL (postgres://...)")
	fs.BoolVar(&opts.up, "up", false, "Run all up migrations")
	fs.BoolVar(&opts.down, "down", false, "Run all down migrations")
	fs.IntVar(&opts.steps, "steps", 0, "Number of migrations (positive=up, negative=down)")
	fs.BoolVar(&opts.version, "version", false, "Print current migration version")
	fs.IntVar(&opts.force, "force", -1, "Force set version (use with caution)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			opts.forceSet = true
		}
	})

	if !opts.up && !opts.down && opts.steps == 0 && !opts.version && !opts.forceSet {
		return nil, errUsage
	}
	return opts, nil
}

func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if dsn := os.Getenv(envDSN); dsn != "" {
		return dsn, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("resolve database: %w", err)
	}
	return cfg.Database.URL(), nil
}

type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(v int) error
}

func apply(m migrator, opts *options, out io.Writer) error {
	switch {
	case opts.version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "version: none")
			return nil
		}
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		fmt.Fprintf(out, "version: %d, dirty: %v\n", v, dirty)
	case opts.forceSet:
		if err := m.Force(opts.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		fmt.Fprintf(out, "forced to version %d\n", opts.force)
	case opts.up:
		if err := ignoreNoChange(m.Up()); err != nil {
			return fmt.Errorf("up migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations applied")
	case opts.down:
		if err := ignoreNoChange(m.Down()); err != nil {
			return fmt.Errorf("down migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations reverted")
	default:
		if err := ignoreNoChange(m.Steps(opts.steps)); err != nil {
			return fmt.Errorf("step migrations: %w", err)
		}
		fmt.Fprintf(out, "applied %d migration steps\n", opts.steps)
	}
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
