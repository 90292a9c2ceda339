// Package csv writes each table to its own delimited text file. The first
// run creates the files, later runs append rows tagged with their source id.
package csv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/core/failure"
	"github.com/ruslano69/symexport/pkg/core/schema"
	"github.com/ruslano69/symexport/pkg/core/textenc"
	"github.com/ruslano69/symexport/pkg/processors"
)

// BackendType identifies the delimited-text backend in the registry.
const BackendType = "csv"

// DefaultExtension is appended to the table name when none is configured.
const DefaultExtension = "csv"

const compressedSuffix = ".zst"

func init() {
	adapters.Register(BackendType, func(cfg adapters.Config) (adapters.Backend, error) {
		return New(cfg.Text)
	})
}

// Backend implements adapters.Backend for delimited text files.
type Backend struct {
	dir        string
	ext        string
	headers    bool
	enc        *textenc.Encoder
	compressor *processors.Compressor
}

// New validates the settings and creates the backend. Nothing is written
// until the first table arrives.
func New(s adapters.TextSettings) (*Backend, error) {
	bools, err := textenc.ParseBoolMode(s.BoolEncoding)
	if err != nil {
		return nil, failure.Configf(BackendType, "bool_encoding", "%v", err)
	}
	if s.CompressionLevel < 0 || s.CompressionLevel > 22 {
		return nil, failure.Configf(BackendType, "compression_level", "must be between 0 (default) and 22, got %d", s.CompressionLevel)
	}

	b := &Backend{
		dir:     s.OutputDir,
		ext:     strings.TrimPrefix(s.Extension, "."),
		headers: !s.SuppressHeaders,
		enc: textenc.New(textenc.Options{
			Separator: textenc.ResolveSeparator(s.Delimiter, s.UseLocaleDelimiter),
			Bools:     bools,
		}),
	}
	if b.dir == "" {
		b.dir = "."
	}
	if b.ext == "" {
		b.ext = DefaultExtension
	}
	if s.Compress {
		if b.compressor, err = processors.NewCompressor(s.CompressionLevel); err != nil {
			return nil, failure.Configf(BackendType, "compress", "%v", err)
		}
	}
	return b, nil
}

// Name returns BackendType.
func (b *Backend) Name() string { return BackendType }

// Separator returns the field separator in use.
func (b *Backend) Separator() byte { return b.enc.Separator() }

// Path returns the file a table is written to.
func (b *Backend) Path(table string) string {
	p := filepath.Join(b.dir, table+"."+b.ext)
	if b.compressor != nil {
		p += compressedSuffix
	}
	return p
}

// Begin makes sure the output directory exists.
func (b *Backend) Begin(_ context.Context, _ adapters.Run) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return failure.IO("mkdir", b.dir, err)
	}
	return nil
}

// WriteManifest writes the source manifest, replacing any previous one.
func (b *Backend) WriteManifest(ctx context.Context, sources []string) (adapters.FileStat, error) {
	if err := ctx.Err(); err != nil {
		return adapters.FileStat{}, err
	}
	m := schema.Manifest(sources)
	path := b.Path(m.Name)

	var buf []byte
	if b.headers {
		buf = append(buf, schema.SourceColumn...)
		buf = append(buf, b.enc.Separator())
		buf = append(buf, schema.SourceNameColumn...)
		buf = append(buf, '\n')
	}
	err := m.EachRow(func(rec schema.Record) error {
		var err error
		if buf, err = b.enc.AppendJoined(buf, m.Fields, rec); err != nil {
			return err
		}
		buf = append(buf, '\n')
		return nil
	})
	if err != nil {
		return adapters.FileStat{}, err
	}

	return b.persist(m.Name, path, buf, len(sources), false)
}

// WriteTable writes the rows of one table. On the first run the file is
// recreated with a header, on later runs the rows are appended after
// checking that the existing file was produced with the same layout.
func (b *Backend) WriteTable(ctx context.Context, table schema.Table, run adapters.Run) (adapters.FileStat, error) {
	if err := ctx.Err(); err != nil {
		return adapters.FileStat{}, err
	}
	path := b.Path(table.Name)
	header := b.header(table)

	var buf []byte
	if run.First() && b.headers {
		buf = append(buf, header...)
	}
	err := table.EachRow(func(rec schema.Record) error {
		var err error
		if buf, err = b.enc.AppendRecord(buf, table.Fields, rec); err != nil {
			return err
		}
		buf = strconv.AppendUint(buf, uint64(run.SourceID), 10)
		buf = append(buf, '\n')
		return nil
	})
	if err != nil {
		var mismatch *schema.MismatchError
		if errors.As(err, &mismatch) {
			mismatch.Table = table.Name
		}
		return adapters.FileStat{}, err
	}

	if !run.First() {
		if err := b.checkPrior(path, header); err != nil {
			return adapters.FileStat{}, err
		}
	}
	return b.persist(table.Name, path, buf, table.RowCount(), !run.First())
}

// Close releases the compressor.
func (b *Backend) Close() error {
	if b.compressor == nil {
		return nil
	}
	err := b.compressor.Close()
	b.compressor = nil
	return err
}

// header is every field name followed by the separator, then the source
// id column and the line terminator.
func (b *Backend) header(t schema.Table) []byte {
	var buf []byte
	for _, f := range t.Fields {
		buf = append(buf, f.Name...)
		buf = append(buf, b.enc.Separator())
	}
	buf = append(buf, schema.SourceColumn...)
	return append(buf, '\n')
}

func (b *Backend) persist(table, path string, payload []byte, rows int, appendMode bool) (adapters.FileStat, error) {
	data := payload
	if b.compressor != nil {
		data = b.compressor.Frame(payload)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_APPEND
	}
	if err := writeFile(path, flags, data); err != nil {
		return adapters.FileStat{}, err
	}

	log.Debug().
		Str("backend", BackendType).
		Str("table", table).
		Str("path", path).
		Int("rows", rows).
		Bool("append", appendMode).
		Msg("table written")

	return adapters.FileStat{
		Table:    table,
		Path:     path,
		Rows:     rows,
		Bytes:    int64(len(data)),
		Checksum: processors.ComputeChecksum(payload),
	}, nil
}

func writeFile(path string, flags int, data []byte) error {
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return failure.IO("open", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return failure.IO("write", path, err)
	}
	return failure.IO("close", path, f.Close())
}

// checkPrior refuses to append to a file that is missing, truncated
// mid-line, or was written with a different header.
func (b *Backend) checkPrior(path string, header []byte) error {
	if b.compressor != nil {
		raw, err := os.ReadFile(path)
		if err != nil {
			return failure.IO("open", path, err)
		}
		if len(raw) > 0 && !processors.IsCompressed(raw) {
			return failure.IO("verify", path, errors.New("file is not a zstd stream"))
		}
		content, err := processors.Decompress(raw)
		if err != nil {
			return failure.IO("verify", path, err)
		}
		return b.checkContent(path, content, header)
	}

	f, err := os.Open(path)
	if err != nil {
		return failure.IO("open", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return failure.IO("stat", path, err)
	}
	if info.Size() == 0 {
		return b.checkContent(path, nil, header)
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return failure.IO("read", path, err)
	}
	if last[0] != '\n' {
		return failure.IO("verify", path, errors.New("file does not end with a line terminator"))
	}
	if !b.headers {
		return nil
	}

	head := make([]byte, len(header))
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return failure.IO("read", path, err)
	}
	return b.compareHeader(path, head[:n], header)
}

func (b *Backend) checkContent(path string, content, header []byte) error {
	if len(content) > 0 && content[len(content)-1] != '\n' {
		return failure.IO("verify", path, errors.New("file does not end with a line terminator"))
	}
	if !b.headers {
		return nil
	}
	return b.compareHeader(path, content[:min(len(content), len(header))], header)
}

func (b *Backend) compareHeader(path string, got, want []byte) error {
	if bytes.Equal(got, want) {
		return nil
	}
	line, _, _ := bytes.Cut(got, []byte{'\n'})
	expected := strings.TrimSuffix(string(want), "\n")
	if cols, err := textenc.SplitRecord(string(line), b.enc.Separator()); err == nil {
		return failure.IO("verify", path, fmt.Errorf("header columns %q do not match expected %q", cols, expected))
	}
	return failure.IO("verify", path, fmt.Errorf("header %q does not match expected %q", line, expected))
}
