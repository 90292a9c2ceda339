// Package mysql bulk-loads tables into MySQL. Rows are staged in local text
// files and every statement (procedures, DDL, LOAD DATA) is queued in a
// batch that Commit executes in order over a single connection.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/core/failure"
	"github.com/ruslano69/symexport/pkg/core/textenc"
	"github.com/ruslano69/symexport/pkg/retry"
)

// BackendType identifies the MySQL backend in the registry.
const BackendType = "mysql"

// Defaults applied by New.
const (
	DefaultPort               = 3306
	DefaultEngine             = "MyISAM"
	DefaultProcedureSeparator = "#then_execute"
	DefaultStagingDir         = "temp"
	DefaultTimeout            = 10 * time.Second

	// PasswordEnv is read when no password is configured.
	PasswordEnv = "SYMEXPORT_MYSQL_PASSWORD"
)

var engineName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func init() {
	adapters.Register(BackendType, func(cfg adapters.Config) (adapters.Backend, error) {
		return New(cfg.MySQL)
	})
}

// Backend implements adapters.Backend, adapters.ProcedureLoader,
// adapters.SchemaEmitter and adapters.Committer for MySQL.
type Backend struct {
	settings adapters.MySQLSettings
	enc      *textenc.Encoder

	db     *sql.DB
	ownsDB bool
	retry  *retry.Retryer

	scripts fs.FS
	out     io.Writer

	// per-run state, reset by Begin
	batch            []string
	manifestDeclared bool
	registered       []string
}

// Option customizes a Backend.
type Option func(*Backend)

// WithDB makes Commit use db instead of opening its own connection.
func WithDB(db *sql.DB) Option {
	return func(b *Backend) { b.db = db }
}

// WithScripts resolves procedure script paths inside fsys instead of the
// local filesystem.
func WithScripts(fsys fs.FS) Option {
	return func(b *Backend) { b.scripts = fsys }
}

// WithOutput sets where a dry run prints the batch.
func WithOutput(w io.Writer) Option {
	return func(b *Backend) { b.out = w }
}

// New applies defaults, validates the settings and creates the backend.
// Invalid settings yield a *failure.ConfigError and nothing is created.
func New(s adapters.MySQLSettings, opts ...Option) (*Backend, error) {
	s, err := withDefaults(s)
	if err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}

	rc := s.ConnectRetry
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn().Err(err).Str("backend", BackendType).Int("attempt", attempt).Dur("delay", delay).Msg("connect failed, retrying")
	}
	r, err := retry.New(rc)
	if err != nil {
		return nil, failure.Configf(BackendType, "connect_retry", "%v", err)
	}

	b := &Backend{
		settings: s,
		retry:    r,
		enc:      textenc.New(textenc.Options{Separator: ',', Bools: textenc.BoolBits}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func withDefaults(s adapters.MySQLSettings) (adapters.MySQLSettings, error) {
	if s.Password == "" {
		s.Password = os.Getenv(PasswordEnv)
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.Engine == "" {
		s.Engine = DefaultEngine
	}
	if s.ProcedureSeparator == "" {
		s.ProcedureSeparator = DefaultProcedureSeparator
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}
	if s.StagingDir == "" {
		s.StagingDir = DefaultStagingDir
	}
	dir, err := filepath.Abs(s.StagingDir)
	if err != nil {
		return s, failure.Configf(BackendType, "staging_dir", "%v", err)
	}
	s.StagingDir = dir
	return s, nil
}

// Validate checks the mandatory settings.
func Validate(s adapters.MySQLSettings) error {
	switch {
	case s.Host == "":
		return failure.Configf(BackendType, "host", "is required")
	case s.User == "":
		return failure.Configf(BackendType, "user", "is required")
	case s.Database == "":
		return failure.Configf(BackendType, "database", "is required")
	case s.Port < 1 || s.Port > 65535:
		return failure.Configf(BackendType, "port", "must be between 1 and 65535, got %d", s.Port)
	case !engineName.MatchString(s.Engine):
		return failure.Configf(BackendType, "engine", "invalid storage engine %q", s.Engine)
	case s.Timeout < 0:
		return failure.Configf(BackendType, "timeout", "must not be negative")
	}
	return nil
}

// Name returns BackendType.
func (b *Backend) Name() string { return BackendType }

// Settings returns the effective settings after defaults.
func (b *Backend) Settings() adapters.MySQLSettings { return b.settings }

// Begin starts a fresh batch for run.
func (b *Backend) Begin(_ context.Context, run adapters.Run) error {
	b.batch = nil
	b.manifestDeclared = false
	b.deregister()

	if b.settings.DryRun {
		return nil
	}
	if err := os.MkdirAll(b.settings.StagingDir, 0o755); err != nil {
		return failure.IO("mkdir", b.settings.StagingDir, err)
	}
	log.Debug().Uint32("source_id", run.SourceID).Str("staging_dir", b.settings.StagingDir).Msg("mysql run started")
	return nil
}

// BeginRun is Begin followed, on the first run, by LoadProcedures and
// EmitSchema.
func (b *Backend) BeginRun(ctx context.Context, run adapters.Run) error {
	if err := b.Begin(ctx, run); err != nil {
		return err
	}
	if !run.First() {
		return nil
	}
	if err := b.LoadProcedures(ctx); err != nil {
		return err
	}
	return b.EmitSchema(ctx, run.Schema)
}

// Close releases the connection if the backend opened it.
func (b *Backend) Close() error {
	b.deregister()
	if b.db == nil || !b.ownsDB {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// connect opens a pool limited to one connection, so the batch runs on a
// single session and database/sql replaces it if the server drops it. The
// first ping follows the connect_retry settings.
func (b *Backend) connect(ctx context.Context) (*sql.DB, error) {
	if b.db != nil {
		return b.db, nil
	}

	cfg := mysql.NewConfig()
	cfg.User = b.settings.User
	cfg.Passwd = b.settings.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(b.settings.Host, strconv.Itoa(b.settings.Port))
	cfg.DBName = b.settings.Database
	cfg.Timeout = b.settings.Timeout

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := b.retry.Do(ctx, db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	b.db = db
	b.ownsDB = true
	return db, nil
}

func (b *Backend) deregister() {
	for _, path := range b.registered {
		mysql.DeregisterLocalFile(path)
	}
	b.registered = nil
}
