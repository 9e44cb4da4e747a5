package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"b": int64(2), "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2,"c":true}`, string(data))
}

func TestMarshalCanonical_Triple(t *testing.T) {
	data, err := MarshalCanonical([]Triple{{Entity: "e1", Attribute: "name", Value: "Alice"}})
	require.NoError(t, err)
	assert.Equal(t, `[{"attribute":"name","entity":"e1","value":"Alice"}]`, string(data))
}

func TestMarshalCanonical_Fact(t *testing.T) {
	data, err := MarshalCanonical(Fact{Entity: "e1", Attribute: "phone", Value: "555-1", Live: false, Seq: 4})
	require.NoError(t, err)
	assert.Equal(t, `{"attribute":"phone","entity":"e1","live":false,"seq":4,"value":"555-1"}`, string(data))
}

func TestMarshalCanonical_Attribute(t *testing.T) {
	data, err := MarshalCanonical([]Attribute{{Name: "phone", Cardinality: Many}})
	require.NoError(t, err)
	assert.Equal(t, `[{"cardinality":"many","name":"phone"}]`, string(data))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(data))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	data, err := MarshalCanonical("Jose\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"Jos\u00e9\"", string(data))
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	data, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data))

	// A literal backslash followed by the text u2028 stays escaped.
	data, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestLessUTF16(t *testing.T) {
	assert.True(t, lessUTF16("a", "b"))
	assert.True(t, lessUTF16("a", "ab"))
	assert.False(t, lessUTF16("b", "a"))
	// U+FF61 sorts after a surrogate pair in UTF-16, unlike in UTF-8.
	assert.True(t, lessUTF16("\U0001F600", "\uff61"))
}
