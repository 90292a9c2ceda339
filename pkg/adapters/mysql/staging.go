package mysql

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/core/failure"
	"github.com/ruslano69/symexport/pkg/core/schema"
	"github.com/ruslano69/symexport/pkg/processors"
)

// StagingPath returns the staging file of a table.
func (b *Backend) StagingPath(table string) string {
	return filepath.Join(b.settings.StagingDir, table+"_values.txt")
}

// WriteTable stages the rows of an ordinary table, each followed by the
// run's source id, and queues their LOAD DATA.
func (b *Backend) WriteTable(ctx context.Context, table schema.Table, run adapters.Run) (adapters.FileStat, error) {
	if err := ctx.Err(); err != nil {
		return adapters.FileStat{}, err
	}

	var buf []byte
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

	return b.stage(table, buf, table.RowCount())
}

// WriteManifest declares the manifest table once per run, stages its rows
// (id first, no trailing source id) and queues their LOAD DATA.
func (b *Backend) WriteManifest(ctx context.Context, sources []string) (adapters.FileStat, error) {
	if err := ctx.Err(); err != nil {
		return adapters.FileStat{}, err
	}
	m := schema.Manifest(sources)
	b.declareManifest(m)

	var buf []byte
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

	return b.stage(m, buf, len(sources))
}

// stage writes the staging file and queues the bulk load. In dry-run mode
// only the statement is queued.
func (b *Backend) stage(t schema.Table, payload []byte, rows int) (adapters.FileStat, error) {
	path := b.StagingPath(t.Name)
	stat := adapters.FileStat{
		Table:    t.Name,
		Path:     path,
		Rows:     rows,
		Bytes:    int64(len(payload)),
		Checksum: processors.ComputeChecksum(payload),
	}

	if !b.settings.DryRun {
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return adapters.FileStat{}, failure.IO("write", path, err)
		}
		local := filepath.ToSlash(path)
		mysql.RegisterLocalFile(local)
		b.registered = append(b.registered, local)
	}

	b.batch = append(b.batch, LoadStatement(path, t))

	log.Debug().
		Str("backend", BackendType).
		Str("table", t.Name).
		Str("path", path).
		Int("rows", rows).
		Msg("rows staged")
	return stat, nil
}
