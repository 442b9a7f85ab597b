package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, in := range []string{"", "  ", "null", "{}"} {
		obj, err := Parse([]byte(in))
		require.NoError(t, err, "input %q", in)
		assert.Empty(t, obj)
	}

	for _, in := range []string{"[1]", `"x"`, "{", "42"} {
		_, err := Parse([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestTakeAndRest(t *testing.T) {
	obj, err := Parse([]byte(`{"caseId":"CASE-1","fileSize":12,"custom":{"a":1},"note":null}`))
	require.NoError(t, err)

	var caseID, note string
	var size int64
	require.NoError(t, obj.Take("caseId", &caseID))
	require.NoError(t, obj.Take("fileSize", &size))
	require.NoError(t, obj.Take("note", &note))
	require.NoError(t, obj.Take("missing", &note))

	assert.Equal(t, "CASE-1", caseID)
	assert.Equal(t, int64(12), size)
	assert.Empty(t, note)

	rest := obj.Rest()
	require.Len(t, rest, 1)
	assert.JSONEq(t, `{"a":1}`, string(rest["custom"]))
}

func TestTakeTypeMismatch(t *testing.T) {
	obj, err := Parse([]byte(`{"fileSize":"big"}`))
	require.NoError(t, err)

	var size int64
	err = obj.Take("fileSize", &size)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field fileSize")
}

func TestMarshalMergesSorted(t *testing.T) {
	obj, err := Parse([]byte(`{"zeta":true,"caseId":"shadowed"}`))
	require.NoError(t, err)

	out, err := Marshal(obj.Rest(),
		Field{Key: "caseId", Value: "CASE-1"},
		Field{Key: "fileSize", Value: 0, Omit: true},
		Field{Key: "algorithm", Value: "sha256"},
	)
	require.NoError(t, err)
	assert.Equal(t, `{"algorithm":"sha256","caseId":"CASE-1","zeta":true}`, string(out))
}
