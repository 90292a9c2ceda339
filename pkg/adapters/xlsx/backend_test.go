package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/core/failure"
	"github.com/ruslano69/symexport/pkg/core/schema"
)

func functions(rows ...schema.Record) schema.Table {
	return schema.Table{
		Name: "Functions",
		Fields: []schema.Field{
			{Name: "name", Kind: schema.KindString},
			{Name: "size", Kind: schema.KindUint32, Key: true},
			{Name: "inlined", Kind: schema.KindBool},
			{Name: "addr", Kind: schema.KindAddress},
		},
		Rows: schema.Records(rows),
	}
}

func readSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestWorkbookAcrossRuns(t *testing.T) {
	ctx := context.Background()
	b, err := New(adapters.XLSXSettings{OutputDir: t.TempDir()})
	require.NoError(t, err)
	defer b.Close()

	first := adapters.Run{SourceID: 0}
	require.NoError(t, b.Begin(ctx, first))
	_, err = b.WriteManifest(ctx, []string{"a.pdb", "b.pdb"})
	require.NoError(t, err)
	stat, err := b.WriteTable(ctx, functions(
		schema.Record{"main", uint32(12), false, schema.Address{RV: 4096}},
	), first)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Rows)
	assert.NotEmpty(t, stat.Checksum)
	require.NoError(t, b.Commit(ctx))

	second := adapters.Run{SourceID: 1}
	require.NoError(t, b.Begin(ctx, second))
	_, err = b.WriteTable(ctx, functions(
		schema.Record{"helper", uint32(4), true, schema.Address{RV: 8192}},
	), second)
	require.NoError(t, err)
	require.NoError(t, b.Commit(ctx))

	rows := readSheet(t, b.Path(), "Functions")
	assert.Equal(t, [][]string{
		{"name (string)", "size (uint32) *", "inlined (bool)", "addr (address)", "pdbid"},
		{"main", "12", "FALSE", "4096", "0"},
		{"helper", "4", "TRUE", "8192", "1"},
	}, rows)

	manifest := readSheet(t, b.Path(), schema.ManifestTable)
	assert.Equal(t, [][]string{
		{"pdbid (uint32)", "filename (string)"},
		{"1", "a.pdb"},
		{"2", "b.pdb"},
	}, manifest)

	f, err := excelize.OpenFile(b.Path())
	require.NoError(t, err)
	defer f.Close()
	assert.NotContains(t, f.GetSheetList(), "Sheet1")
}

func TestLaterRunWithoutWorkbook(t *testing.T) {
	b, err := New(adapters.XLSXSettings{OutputDir: t.TempDir(), Workbook: "symbols.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "symbols.xlsx", filepath.Base(b.Path()))

	err = b.Begin(context.Background(), adapters.Run{SourceID: 2})
	var ioErr *failure.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, b.Path(), ioErr.Path)
}

func TestLaterRunMissingSheet(t *testing.T) {
	ctx := context.Background()
	b, err := New(adapters.XLSXSettings{OutputDir: t.TempDir()})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Begin(ctx, adapters.Run{}))
	_, err = b.WriteManifest(ctx, []string{"a.pdb"})
	require.NoError(t, err)
	require.NoError(t, b.Commit(ctx))

	run := adapters.Run{SourceID: 1}
	require.NoError(t, b.Begin(ctx, run))
	_, err = b.WriteTable(ctx, functions(), run)

	var ioErr *failure.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "verify", ioErr.Op)
}

func TestNewRejectsWrongExtension(t *testing.T) {
	_, err := New(adapters.XLSXSettings{Workbook: "export.csv"})
	var cfgErr *failure.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "workbook", cfgErr.Setting)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b_c", SheetName("a/b:c"))
	assert.Equal(t, "Functions", SheetName("Functions"))

	long := SheetName("ThisTableNameIsDefinitelyLongerThanExcelAllows")
	assert.Len(t, []rune(long), 31)
	assert.Equal(t, long, SheetName("ThisTableNameIsDefinitelyLongerThanExcelAllows"))
	assert.NotEqual(t, SheetName("SymbolTableForCompilandDetails_A"), SheetName("SymbolTableForCompilandDetails_B"))
}

func TestLongTableNamesKeepSeparateSheets(t *testing.T) {
	ctx := context.Background()
	b, err := New(adapters.XLSXSettings{OutputDir: t.TempDir()})
	require.NoError(t, err)
	defer b.Close()

	table := func(name, value string) schema.Table {
		return schema.Table{
			Name:   name,
			Fields: []schema.Field{{Name: "v", Kind: schema.KindString}},
			Rows:   schema.Records([]schema.Record{{value}}),
		}
	}
	a := table("SymbolTableForCompilandDetails_A", "x")
	bt := table("SymbolTableForCompilandDetails_B", "y")

	for _, run := range []adapters.Run{{SourceID: 0}, {SourceID: 1}} {
		require.NoError(t, b.Begin(ctx, run))
		_, err = b.WriteTable(ctx, a, run)
		require.NoError(t, err)
		_, err = b.WriteTable(ctx, bt, run)
		require.NoError(t, err)
		require.NoError(t, b.Commit(ctx))
	}

	assert.Equal(t, [][]string{{"v (string)", "pdbid"}, {"x", "0"}, {"x", "1"}}, readSheet(t, b.Path(), SheetName(a.Name)))
	assert.Equal(t, [][]string{{"v (string)", "pdbid"}, {"y", "0"}, {"y", "1"}}, readSheet(t, b.Path(), SheetName(bt.Name)))
}

func TestCollidingSheetNamesRejected(t *testing.T) {
	ctx := context.Background()
	b, err := New(adapters.XLSXSettings{OutputDir: t.TempDir()})
	require.NoError(t, err)
	defer b.Close()

	fields := []schema.Field{{Name: "v", Kind: schema.KindString}}
	run := adapters.Run{}
	require.NoError(t, b.Begin(ctx, run))
	_, err = b.WriteTable(ctx, schema.Table{Name: "a:b", Fields: fields}, run)
	require.NoError(t, err)

	_, err = b.WriteTable(ctx, schema.Table{Name: "A?b", Fields: fields}, run)
	var cfgErr *failure.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sheet", cfgErr.Setting)
}
