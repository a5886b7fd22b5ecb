package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/angelmondragon/pos-ledger/pkg/db"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/angelmondragon/pos-ledger/pkg/logger"
	"github.com/pressly/goose/v3"
)

// DefaultRoot holds one migrations directory per dialect. DefaultDir is the
// one the CLI validates when no -dir is given.
const (
	DefaultRoot = "pkg/migrate/migrations"
	DefaultDir  = DefaultRoot + "/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedded embed.FS

// goose keeps its dialect, base FS and logger in package globals.
var gooseMu sync.Mutex

var stdoutLogger = log.New(os.Stdout, "", 0)

// Dialect pairs a goose dialect with the embedded directory holding its migrations.
type Dialect struct {
	Goose string
	Dir   string
}

// DialectFor maps a GORM dialector name to its goose settings.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return Dialect{Goose: "sqlite3", Dir: "migrations/sqlite"}, nil
	case "postgres", "pgx":
		return Dialect{Goose: "postgres", Dir: "migrations/postgres"}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported migration dialect %q", name)
	}
}

// Run executes a standard goose command against the embedded migrations.
// Progress is printed to stdout.
func Run(ctx context.Context, sqlDB *sql.DB, dialect string, command string, args ...string) error {
	return run(ctx, sqlDB, dialect, stdoutLogger, command, args...)
}

func run(ctx context.Context, sqlDB *sql.DB, dialect string, l goose.Logger, command string, args ...string) error {
	if sqlDB == nil {
		return fmt.Errorf("db is required")
	}
	d, err := DialectFor(dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configure(ctx, d, l); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, sqlDB, d.Dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, sqlDB *sql.DB, dialect string, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	d, err := DialectFor(dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configure(ctx, d, stdoutLogger); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, sqlDB, d.Dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil
	default:
		if err := goose.DownToContext(ctx, sqlDB, d.Dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}

// Version reports the latest applied migration version.
func Version(ctx context.Context, client *db.Client) (int64, error) {
	sqlDB, err := client.SQL()
	if err != nil {
		return 0, err
	}
	d, err := DialectFor(client.Dialect())
	if err != nil {
		return 0, err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configure(ctx, d, goose.NopLogger()); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}

// Initialize brings the schema up to date. It is safe to call on every start;
// already applied migrations are skipped.
func Initialize(ctx context.Context, client *db.Client, logg *logger.Logger) error {
	if client == nil {
		return pkgerrors.New(pkgerrors.CodeStorageInit, "database client is required")
	}
	if err := client.Ping(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageInit, err, "database unreachable")
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageInit, err, "extracting sql.DB")
	}

	var gl goose.Logger = goose.NopLogger()
	if logg != nil {
		ctx = logg.WithField(ctx, "db_dialect", client.Dialect())
		gl = gooseLogger{ctx: ctx, logg: logg}
	}

	if err := run(ctx, sqlDB, client.Dialect(), gl, "up"); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageInit, err, "applying schema migrations")
	}

	if logg != nil {
		logg.Info(ctx, "schema is up to date")
	}
	return nil
}

func configure(ctx context.Context, d Dialect, l goose.Logger) error {
	goose.SetLogger(l)
	goose.SetBaseFS(embedded)
	if err := goose.SetDialect(d.Goose); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return ctx.Err()
}

// gooseLogger routes goose progress output through the structured logger.
type gooseLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logg.Debug(l.ctx, fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logg.Error(l.ctx, "goose migration failed", fmt.Errorf(format, v...))
}
