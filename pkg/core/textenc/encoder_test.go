package textenc

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/symexport/pkg/core/schema"
)

func TestAppendScalar(t *testing.T) {
	tag := schema.NewEnum("SymTag", "Null", "Function")

	tests := []struct {
		name  string
		field schema.Field
		value any
		opts  Options
		want  string
	}{
		{"int8", schema.Field{Kind: schema.KindInt8}, int8(-128), Options{}, "-128"},
		{"int64", schema.Field{Kind: schema.KindInt64}, int64(math.MinInt64), Options{}, "-9223372036854775808"},
		{"uint64", schema.Field{Kind: schema.KindUint64}, uint64(math.MaxUint64), Options{}, "18446744073709551615"},
		{"uint32", schema.Field{Kind: schema.KindUint32}, uint32(5), Options{}, "5"},
		{"float32 shortest", schema.Field{Kind: schema.KindFloat32}, float32(0.1), Options{}, "0.1"},
		{"float64 shortest", schema.Field{Kind: schema.KindFloat64}, 0.1, Options{}, "0.1"},
		{"float64 large", schema.Field{Kind: schema.KindFloat64}, 1e21, Options{}, "1e+21"},
		{"bool words", schema.Field{Kind: schema.KindBool}, true, Options{}, "TRUE"},
		{"bool words false", schema.Field{Kind: schema.KindBool}, false, Options{}, "FALSE"},
		{"bool bits", schema.Field{Kind: schema.KindBool}, true, Options{Bools: BoolBits}, "1"},
		{"bool bits false", schema.Field{Kind: schema.KindBool}, false, Options{Bools: BoolBits}, "0"},
		{"string", schema.Field{Kind: schema.KindString}, "main", Options{}, `"main"`},
		{"string with separator", schema.Field{Kind: schema.KindString}, "a,b", Options{}, `"a\,b"`},
		{"string with other separator", schema.Field{Kind: schema.KindString}, "a,b;c", Options{Separator: ';'}, `"a,b\;c"`},
		{"string with quote and backslash", schema.Field{Kind: schema.KindString}, `say "hi" \o/`, Options{}, `"say \"hi\" \\o/"`},
		{"string with controls", schema.Field{Kind: schema.KindString}, "a\nb\rc\x00", Options{}, `"a\nb\rc\0"`},
		{"empty string", schema.Field{Kind: schema.KindString}, "", Options{}, `""`},
		{"enum symbol", schema.Field{Kind: schema.KindEnum, Enum: tag}, schema.Symbol("Function"), Options{}, `"Function"`},
		{"address", schema.Field{Kind: schema.KindAddress}, schema.Address{Section: 2, Offset: 16, RV: 4096}, Options{}, "4096"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.opts).AppendScalar(nil, tt.field, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestAppendValueAddsSeparator(t *testing.T) {
	enc := New(Options{Separator: ';'})
	got, err := enc.AppendValue([]byte("x"), schema.Field{Kind: schema.KindInt32}, int32(7))
	require.NoError(t, err)
	assert.Equal(t, "x7;", string(got))
}

func TestAppendScalarTypeMismatch(t *testing.T) {
	enc := New(Options{})

	tests := []struct {
		name  string
		field schema.Field
		value any
	}{
		{"enum given int", schema.Field{Name: "tag", Kind: schema.KindEnum}, 3},
		{"address given uint32", schema.Field{Name: "addr", Kind: schema.KindAddress}, uint32(1)},
		{"unsupported type", schema.Field{Name: "x", Kind: schema.KindInt32}, []byte("x")},
		{"NaN", schema.Field{Name: "ratio", Kind: schema.KindFloat64}, math.NaN()},
		{"positive infinity", schema.Field{Name: "ratio", Kind: schema.KindFloat64}, math.Inf(1)},
		{"negative infinity float32", schema.Field{Name: "ratio", Kind: schema.KindFloat32}, float32(math.Inf(-1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.AppendScalar(nil, tt.field, tt.value)
			var mismatch *schema.MismatchError
			require.True(t, errors.As(err, &mismatch), "error = %v", err)
			assert.Equal(t, tt.field.Name, mismatch.Field)
		})
	}
}

func TestAppendRecord(t *testing.T) {
	fields := []schema.Field{
		{Name: "count", Kind: schema.KindUint32},
		{Name: "name", Kind: schema.KindString},
	}
	enc := New(Options{})

	got, err := enc.AppendRecord(nil, fields, schema.Record{uint32(5), "a,b"})
	require.NoError(t, err)
	got = strconv.AppendUint(got, 0, 10)
	assert.Equal(t, `5,"a\,b",0`, string(got))

	joined, err := enc.AppendJoined(nil, fields, schema.Record{uint32(7), "x"})
	require.NoError(t, err)
	assert.Equal(t, `7,"x"`, string(joined))

	_, err = enc.AppendRecord(nil, fields, schema.Record{uint32(5)})
	assert.Error(t, err)
}

func TestEscapingRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"a,b",
		"a;b",
		`"quoted"`,
		`back\slash`,
		`trailing\`,
		"line\nbreak",
		"cr\rlf\n",
		"nul\x00byte",
		`\n literally`,
		`mixed ,;"\` + "\n\r\x00",
		"юникод,строка",
	}

	for _, sep := range []byte{',', ';', '\t', '|'} {
		enc := New(Options{Separator: sep})
		for _, in := range inputs {
			line := enc.AppendString(nil, in)
			line = append(line, sep)
			line = enc.AppendString(line, in)

			values, err := SplitRecord(string(line), sep)
			require.NoError(t, err, "sep %q input %q", sep, in)
			require.Len(t, values, 2, "sep %q input %q line %q", sep, in, line)
			assert.Equal(t, in, values[0])
			assert.Equal(t, in, values[1])
		}
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.1, 1.0 / 3, math.Pi, -2.5e-300, math.MaxFloat64, 123456789.125} {
		got, err := New(Options{}).AppendScalar(nil, schema.Field{Kind: schema.KindFloat64}, v)
		require.NoError(t, err)
		back, err := strconv.ParseFloat(string(got), 64)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}

	for _, v := range []float32{0.1, 1.0 / 3, math.MaxFloat32, 16777217} {
		got, err := New(Options{}).AppendScalar(nil, schema.Field{Kind: schema.KindFloat32}, v)
		require.NoError(t, err)
		back, err := strconv.ParseFloat(string(got), 32)
		require.NoError(t, err)
		assert.Equal(t, v, float32(back))
	}
}

func TestParseBoolMode(t *testing.T) {
	tests := []struct {
		in      string
		want    BoolMode
		wantErr bool
	}{
		{"", BoolWords, false},
		{"words", BoolWords, false},
		{"bits", BoolBits, false},
		{"0/1", BoolBits, false},
		{"yes", BoolWords, true},
	}

	for _, tt := range tests {
		got, err := ParseBoolMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewDefaultsSeparator(t *testing.T) {
	assert.Equal(t, byte(','), New(Options{}).Separator())
	assert.Equal(t, byte(';'), New(Options{Separator: ';'}).Separator())
}
