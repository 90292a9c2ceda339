// Package xlsx writes the exported tables into one Excel workbook, one sheet
// per table, for manual inspection.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"github.com/zeebo/xxh3"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/core/failure"
	"github.com/ruslano69/symexport/pkg/core/schema"
	"github.com/ruslano69/symexport/pkg/processors"
)

// BackendType identifies the workbook backend in the registry.
const BackendType = "xlsx"

// DefaultWorkbook is the file name used when none is configured.
const DefaultWorkbook = "export.xlsx"

const (
	maxSheetName = 31
	defaultSheet = "Sheet1"
	columnWidth  = 15
)

func init() {
	adapters.Register(BackendType, func(cfg adapters.Config) (adapters.Backend, error) {
		return New(cfg.XLSX)
	})
}

// Backend implements adapters.Backend and adapters.Committer. The workbook
// is held in memory during a run and saved by Commit.
type Backend struct {
	path        string
	file        *excelize.File
	headerStyle int
	first       bool

	// sheet name (lower-cased) to the table that claimed it in this run
	owners map[string]string
}

// New creates the backend. The workbook is not touched until Begin.
func New(s adapters.XLSXSettings) (*Backend, error) {
	name := s.Workbook
	if name == "" {
		name = DefaultWorkbook
	}
	if filepath.Ext(name) != ".xlsx" {
		return nil, failure.Configf(BackendType, "workbook", "must have the .xlsx extension, got %q", name)
	}
	dir := s.OutputDir
	if dir == "" {
		dir = "."
	}
	return &Backend{path: filepath.Join(dir, name)}, nil
}

// Name returns BackendType.
func (b *Backend) Name() string { return BackendType }

// Path returns the workbook location.
func (b *Backend) Path() string { return b.path }

// Begin creates a fresh workbook on the first run and opens the existing
// one on later runs.
func (b *Backend) Begin(_ context.Context, run adapters.Run) error {
	b.closeFile()
	b.first = run.First()
	b.owners = make(map[string]string)

	if b.first {
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			return failure.IO("mkdir", filepath.Dir(b.path), err)
		}
		b.file = excelize.NewFile()
	} else {
		f, err := excelize.OpenFile(b.path)
		if err != nil {
			return failure.IO("open", b.path, err)
		}
		b.file = f
	}

	style, err := b.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	b.headerStyle = style
	return nil
}

// WriteManifest fills the manifest sheet.
func (b *Backend) WriteManifest(ctx context.Context, sources []string) (adapters.FileStat, error) {
	return b.WriteTable(ctx, schema.Manifest(sources), adapters.Run{})
}

// WriteTable appends the rows of table to its sheet. Ordinary tables get
// the source id as their last column.
func (b *Backend) WriteTable(ctx context.Context, table schema.Table, run adapters.Run) (adapters.FileStat, error) {
	if err := ctx.Err(); err != nil {
		return adapters.FileStat{}, err
	}
	if b.file == nil {
		return adapters.FileStat{}, errors.New("xlsx: WriteTable called before Begin")
	}

	sheet, err := b.claimSheet(table.Name)
	if err != nil {
		return adapters.FileStat{}, err
	}
	header := Header(table)
	next, err := b.prepareSheet(sheet, header, table.IsManifest() || b.first)
	if err != nil {
		return adapters.FileStat{}, err
	}

	sum := processors.NewChecksum()
	row := next
	err = table.EachRow(func(rec schema.Record) error {
		values := make([]any, 0, len(rec)+1)
		for i, v := range rec {
			values = append(values, cellValue(table.Fields[i], v))
		}
		if !table.IsManifest() {
			values = append(values, run.SourceID)
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := b.file.SetSheetRow(sheet, cell, &values); err != nil {
			return failure.IO("write", b.path, fmt.Errorf("sheet %s row %d: %w", sheet, row, err))
		}
		// The workbook is serialized only at Commit, so the checksum covers
		// the row values in their fmt.Fprintln text form.
		_, _ = fmt.Fprintln(sum, values...)
		row++
		return nil
	})
	if err != nil {
		return adapters.FileStat{}, err
	}

	rows := row - next
	log.Debug().Str("backend", BackendType).Str("sheet", sheet).Int("rows", rows).Msg("sheet written")
	return adapters.FileStat{Table: table.Name, Path: b.path, Rows: rows, Checksum: sum.Sum()}, nil
}

// Commit saves the workbook.
func (b *Backend) Commit(_ context.Context) error {
	if b.file == nil {
		return nil
	}
	if b.first {
		if idx, err := b.file.GetSheetIndex(defaultSheet); err == nil && idx >= 0 && len(b.file.GetSheetList()) > 1 {
			if err := b.file.DeleteSheet(defaultSheet); err != nil {
				return fmt.Errorf("failed to drop default sheet: %w", err)
			}
		}
	}
	if err := b.file.SaveAs(b.path); err != nil {
		return failure.IO("write", b.path, err)
	}
	log.Info().Str("path", b.path).Int("sheets", len(b.file.GetSheetList())).Msg("workbook saved")
	return nil
}

// Close discards any unsaved workbook.
func (b *Backend) Close() error {
	return b.closeFile()
}

func (b *Backend) closeFile() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}

// claimSheet maps table to its sheet and refuses a sheet another table of
// this run already wrote. Excel compares sheet names case-insensitively.
func (b *Backend) claimSheet(table string) (string, error) {
	sheet := SheetName(table)
	key := strings.ToLower(sheet)
	if owner, ok := b.owners[key]; ok && owner != table {
		return "", failure.Configf(BackendType, "sheet",
			"tables %q and %q both map to sheet %q", owner, table, sheet)
	}
	b.owners[key] = table
	return sheet, nil
}

// prepareSheet returns the first free row. A fresh sheet gets the header;
// an existing one must carry the same header.
func (b *Backend) prepareSheet(sheet string, header []string, fresh bool) (int, error) {
	idx, err := b.file.GetSheetIndex(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to look up sheet %s: %w", sheet, err)
	}

	if fresh {
		if idx >= 0 {
			if err := b.file.DeleteSheet(sheet); err != nil {
				return 0, fmt.Errorf("failed to reset sheet %s: %w", sheet, err)
			}
		}
		if _, err := b.file.NewSheet(sheet); err != nil {
			return 0, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		if err := b.file.SetSheetRow(sheet, "A1", &header); err != nil {
			return 0, failure.IO("write", b.path, err)
		}
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := b.file.SetCellStyle(sheet, "A1", last, b.headerStyle); err != nil {
			return 0, fmt.Errorf("failed to style header: %w", err)
		}
		lastCol, _, _ := excelize.SplitCellName(last)
		if err := b.file.SetColWidth(sheet, "A", lastCol, columnWidth); err != nil {
			return 0, fmt.Errorf("failed to size columns: %w", err)
		}
		return 2, nil
	}

	if idx < 0 {
		return 0, failure.IO("verify", b.path, fmt.Errorf("sheet %s not found", sheet))
	}
	rows, err := b.file.GetRows(sheet)
	if err != nil {
		return 0, failure.IO("read", b.path, err)
	}
	if len(rows) == 0 || !slices.Equal(rows[0], header) {
		return 0, failure.IO("verify", b.path, fmt.Errorf("sheet %s header does not match", sheet))
	}
	return len(rows) + 1, nil
}

// Header returns the column titles of a sheet: field name and kind, keys
// marked with *, then the source id column for ordinary tables.
func Header(t schema.Table) []string {
	header := make([]string, 0, len(t.Fields)+1)
	for _, f := range t.Fields {
		h := fmt.Sprintf("%s (%s)", f.Name, f.Kind)
		if f.Key {
			h += " *"
		}
		header = append(header, h)
	}
	if !t.IsManifest() {
		header = append(header, schema.SourceColumn)
	}
	return header
}

// SheetName maps a table name to a valid sheet name. Names over the sheet
// name limit are cut and end in "~" plus a hash of the full table name, so
// tables sharing a long prefix stay apart and every run picks the same sheet.
func SheetName(table string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, table)
	if r := []rune(name); len(r) > maxSheetName {
		suffix := fmt.Sprintf("~%08x", uint32(xxh3.HashString(table)))
		name = string(r[:maxSheetName-len(suffix)]) + suffix
	}
	return name
}

func cellValue(f schema.Field, v any) any {
	switch f.Kind {
	case schema.KindEnum:
		if s, ok := schema.SymbolOf(v); ok {
			return s
		}
	case schema.KindAddress:
		if a, ok := v.(schema.Address); ok {
			return a.RV
		}
	}
	return v
}
