package csv

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/core/failure"
	"github.com/ruslano69/symexport/pkg/core/schema"
	"github.com/ruslano69/symexport/pkg/processors"
)

var countNameFields = []schema.Field{
	{Name: "count", Kind: schema.KindUint32},
	{Name: "name", Kind: schema.KindString},
}

func tableT(rows ...schema.Record) schema.Table {
	return schema.Table{Name: "T", Fields: countNameFields, Rows: schema.Records(rows)}
}

func newBackend(t *testing.T, s adapters.TextSettings) *Backend {
	t.Helper()
	if s.OutputDir == "" {
		s.OutputDir = t.TempDir()
	}
	b, err := New(s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, b.Begin(context.Background(), adapters.Run{}))
	return b
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestTwoRunsAppendWithSingleHeader(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, adapters.TextSettings{})

	stat, err := b.WriteTable(ctx, tableT(schema.Record{uint32(5), "a,b"}), adapters.Run{SourceID: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Rows)
	assert.Equal(t, "T", stat.Table)

	_, err = b.WriteTable(ctx, tableT(schema.Record{uint32(7), "x"}), adapters.Run{SourceID: 1})
	require.NoError(t, err)

	assert.Equal(t, "count,name,pdbid\n5,\"a\\,b\",0\n7,\"x\",1\n", readFile(t, b.Path("T")))
}

func TestSuppressedHeaders(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, adapters.TextSettings{SuppressHeaders: true, Delimiter: ";"})

	_, err := b.WriteTable(ctx, tableT(schema.Record{uint32(1), "a;b"}), adapters.Run{SourceID: 0})
	require.NoError(t, err)
	_, err = b.WriteTable(ctx, tableT(schema.Record{uint32(2), "c,d"}), adapters.Run{SourceID: 1})
	require.NoError(t, err)

	assert.Equal(t, "1;\"a\\;b\";0\n2;\"c,d\";1\n", readFile(t, b.Path("T")))
}

func TestFirstRunTruncates(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, adapters.TextSettings{})

	require.NoError(t, os.WriteFile(b.Path("T"), []byte("stale content\n"), 0o644))

	_, err := b.WriteTable(ctx, tableT(), adapters.Run{SourceID: 0})
	require.NoError(t, err)
	assert.Equal(t, "count,name,pdbid\n", readFile(t, b.Path("T")))
}

func TestBoolsAndRowOrder(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, adapters.TextSettings{BoolEncoding: "bits"})

	table := schema.Table{
		Name: "Flags",
		Fields: []schema.Field{
			{Name: "id", Kind: schema.KindInt64},
			{Name: "on", Kind: schema.KindBool},
			{Name: "ratio", Kind: schema.KindFloat64},
		},
		Rows: schema.Records{
			{int64(2), true, 0.5},
			{int64(1), false, 1e-7},
		},
	}

	_, err := b.WriteTable(ctx, table, adapters.Run{SourceID: 0})
	require.NoError(t, err)
	assert.Equal(t, "id,on,ratio,pdbid\n2,1,0.5,0\n1,0,1e-07,0\n", readFile(t, b.Path("Flags")))
}

func TestWriteManifest(t *testing.T) {
	b := newBackend(t, adapters.TextSettings{})

	stat, err := b.WriteManifest(context.Background(), []string{"a.pdb", "b,c.pdb"})
	require.NoError(t, err)
	assert.Equal(t, 2, stat.Rows)
	assert.Equal(t, schema.ManifestTable, stat.Table)

	assert.Equal(t, "pdbid,filename\n1,\"a.pdb\"\n2,\"b\\,c.pdb\"\n", readFile(t, b.Path(schema.ManifestTable)))
}

func TestLaterRunWithoutPriorFile(t *testing.T) {
	b := newBackend(t, adapters.TextSettings{})

	_, err := b.WriteTable(context.Background(), tableT(schema.Record{uint32(1), "x"}), adapters.Run{SourceID: 3})

	var ioErr *failure.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, b.Path("T"), ioErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, statErr := os.Stat(b.Path("T"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist), "file must not be created")
}

func TestLaterRunRejectsInconsistentFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"different header", "count,label,pdbid\n5,\"a\",0\n"},
		{"missing terminator", "count,name,pdbid\n5,\"a\",0"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t, adapters.TextSettings{})
			require.NoError(t, os.WriteFile(b.Path("T"), []byte(tt.content), 0o644))

			_, err := b.WriteTable(context.Background(), tableT(schema.Record{uint32(1), "x"}), adapters.Run{SourceID: 1})

			var ioErr *failure.IOError
			require.ErrorAs(t, err, &ioErr)
			assert.Equal(t, "verify", ioErr.Op)
			assert.Equal(t, tt.content, readFile(t, b.Path("T")), "file must be left untouched")
		})
	}
}

func TestCompressedAppend(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, adapters.TextSettings{Compress: true})
	assert.Equal(t, "T.csv.zst", filepath.Base(b.Path("T")))

	first, err := b.WriteTable(ctx, tableT(schema.Record{uint32(5), "a,b"}), adapters.Run{SourceID: 0})
	require.NoError(t, err)
	_, err = b.WriteTable(ctx, tableT(schema.Record{uint32(7), "x"}), adapters.Run{SourceID: 1})
	require.NoError(t, err)

	raw, err := os.ReadFile(b.Path("T"))
	require.NoError(t, err)
	require.True(t, processors.IsCompressed(raw))

	plain, err := processors.Decompress(raw)
	require.NoError(t, err)
	assert.Equal(t, "count,name,pdbid\n5,\"a\\,b\",0\n7,\"x\",1\n", string(plain))
	assert.Equal(t, processors.ComputeChecksum([]byte("count,name,pdbid\n5,\"a\\,b\",0\n")), first.Checksum)
}

func TestCompressedAppendRejectsPlainFile(t *testing.T) {
	b := newBackend(t, adapters.TextSettings{Compress: true})
	content := "count,name,pdbid\n5,\"a\",0\n"
	require.NoError(t, os.WriteFile(b.Path("T"), []byte(content), 0o644))

	_, err := b.WriteTable(context.Background(), tableT(schema.Record{uint32(1), "x"}), adapters.Run{SourceID: 1})

	var ioErr *failure.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "verify", ioErr.Op)
	assert.ErrorContains(t, err, "not a zstd stream")
	assert.Equal(t, content, readFile(t, b.Path("T")), "file must be left untouched")
}

func TestDeterministicOutput(t *testing.T) {
	ctx := context.Background()
	table := tableT(schema.Record{uint32(5), "a\nb"}, schema.Record{uint32(6), `q"`})

	a := newBackend(t, adapters.TextSettings{})
	b := newBackend(t, adapters.TextSettings{})

	statA, err := a.WriteTable(ctx, table, adapters.Run{})
	require.NoError(t, err)
	statB, err := b.WriteTable(ctx, table, adapters.Run{})
	require.NoError(t, err)

	assert.Equal(t, readFile(t, a.Path("T")), readFile(t, b.Path("T")))
	assert.Equal(t, statA.Checksum, statB.Checksum)
	assert.Equal(t, statA.Bytes, statB.Bytes)
}

func TestNewRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name    string
		setting adapters.TextSettings
	}{
		{"bool encoding", adapters.TextSettings{BoolEncoding: "yes/no"}},
		{"compression level", adapters.TextSettings{Compress: true, CompressionLevel: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.setting)
			var cfgErr *failure.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.True(t, failure.IsFatal(err))
		})
	}
}

func TestRegisteredInFactory(t *testing.T) {
	b, err := adapters.New(adapters.Config{Type: BackendType, Text: adapters.TextSettings{OutputDir: t.TempDir()}})
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, BackendType, b.Name())
}
