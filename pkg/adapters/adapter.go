package adapters

import (
	"context"
	"time"

	"github.com/ruslano69/symexport/pkg/core/schema"
	"github.com/ruslano69/symexport/pkg/retry"
)

// Run describes one export pass over the schema for a single source.
type Run struct {
	// SourceID is appended to every row. Zero marks the first run, which
	// creates outputs instead of extending them.
	SourceID uint32

	// Schema carries the tables and their rows for this source.
	Schema *schema.Schema

	// Sources is the full ordered list of source names. Only the first run
	// uses it, to build the manifest.
	Sources []string
}

// First reports whether this run creates the outputs.
func (r Run) First() bool { return r.SourceID == 0 }

// FileStat describes one output produced for a table. Checksum is the xxh3
// of the bytes written by this run for file backends; the workbook backend
// hashes the row values instead, since it serializes only at Commit.
type FileStat struct {
	Table    string `json:"table"`
	Path     string `json:"path"`
	Rows     int    `json:"rows"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum,omitempty"`
}

// Backend persists tables for one output format. Calls arrive in order:
// Begin, the optional steps, WriteManifest (first run only), WriteTable for
// every table, then Commit if implemented. Close is always called.
type Backend interface {
	// Name identifies the backend in logs and outcomes.
	Name() string

	// Begin prepares per-run state. It must not produce output that a later
	// failure would leave half-written.
	Begin(ctx context.Context, run Run) error

	// WriteManifest persists the source manifest.
	WriteManifest(ctx context.Context, sources []string) (FileStat, error)

	// WriteTable persists one table's rows tagged with run.SourceID.
	WriteTable(ctx context.Context, table schema.Table, run Run) (FileStat, error)

	// Close releases resources. It is safe to call more than once.
	Close() error
}

// ProcedureLoader is implemented by backends that queue stored-procedure
// scripts on the first run.
type ProcedureLoader interface {
	LoadProcedures(ctx context.Context) error
}

// SchemaEmitter is implemented by backends that declare every table up
// front on the first run.
type SchemaEmitter interface {
	EmitSchema(ctx context.Context, s *schema.Schema) error
}

// Committer is implemented by backends that defer work to the end of a run.
type Committer interface {
	Commit(ctx context.Context) error
}

// Config selects a backend and carries the settings of every backend type.
// Only the section matching Type is read.
type Config struct {
	Type  string
	Text  TextSettings
	MySQL MySQLSettings
	XLSX  XLSXSettings
}

// TextSettings configures the delimited-text backend.
type TextSettings struct {
	OutputDir          string `yaml:"output_dir"`
	SuppressHeaders    bool   `yaml:"suppress_headers"`
	Delimiter          string `yaml:"delimiter"`
	UseLocaleDelimiter bool   `yaml:"use_locale_delimiter"`
	BoolEncoding       string `yaml:"bool_encoding"` // words | bits
	Extension          string `yaml:"extension"`
	Compress           bool   `yaml:"compress"`
	CompressionLevel   int    `yaml:"compression_level"`
}

// MySQLSettings configures the relational bulk backend.
type MySQLSettings struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Database           string        `yaml:"database"`
	StagingDir         string        `yaml:"staging_dir"`
	Procedures         []string      `yaml:"procedures"`
	ProcedureSeparator string        `yaml:"procedure_separator"`
	Engine             string        `yaml:"engine"`
	Timeout            time.Duration `yaml:"timeout"`
	ConnectRetry       retry.Config  `yaml:"connect_retry"`
	DryRun             bool          `yaml:"dry_run"`
}

// XLSXSettings configures the workbook backend.
type XLSXSettings struct {
	OutputDir string `yaml:"output_dir"`
	Workbook  string `yaml:"workbook"`
}
