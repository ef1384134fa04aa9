package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"text", Text("hello"), `"hello"`},
		{"empty text", Text(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"decimal", Decimal(2.5), "2.5"},
		{"integral decimal", Decimal(3), "3"},
		{"bool true", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"absent", nil, "null"},
		{"date", Date{Year: 2024, Month: 3, Day: 9}, `"2024-03-09"`},
		{"empty row", Row{}, "{}"},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRowSortedKeys(t *testing.T) {
	row := Row{
		"name": Text("Ana"),
		"age":  Int(22),
		"id":   Int(1),
	}

	result, err := MarshalCanonical(row)
	require.NoError(t, err)
	assert.Equal(t, `{"age":22,"id":1,"name":"Ana"}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts
	// before U+E000 in UTF-16 but after it in UTF-8.
	row := Row{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
	}

	result, err := MarshalCanonical(row)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
	assert.Equal(t, []string{"\U00010000", "\uE000"}, row.SortedKeys())
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(Text("a < b && c > d"))
	require.NoError(t, err)
	assert.Equal(t, `"a < b && c > d"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" plus a combining acute accent normalizes to the precomposed form.
	decomposed, err := MarshalCanonical(Text("cafe\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(Text("caf\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(Text("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(Text(`a\u2028b`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(result))
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(Decimal(math.NaN()))
	require.Error(t, err)

	_, err = MarshalCanonical(Row{"x": Decimal(math.Inf(1))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestMarshalCanonicalUnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestUnmarshalValue(t *testing.T) {
	tests := []struct {
		input    string
		expected Value
	}{
		{`"Ana"`, Text("Ana")},
		{`22`, Int(22)},
		{`2.5`, Decimal(2.5)},
		{`true`, Bool(true)},
		{`null`, Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := UnmarshalValue([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestUnmarshalValueRejectsCompound(t *testing.T) {
	_, err := UnmarshalValue([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = UnmarshalValue([]byte(`{"a":1}`))
	require.Error(t, err)
}

func TestRowUnmarshalJSON(t *testing.T) {
	var row Row
	require.NoError(t, row.UnmarshalJSON([]byte(`{"id":1,"name":"Ana","age":null}`)))

	assert.Equal(t, Row{"id": Int(1), "name": Text("Ana"), "age": Null{}}, row)
}
