package nlsjson

import (
	"encoding/json"
	"testing"

	"github.com/minios-linux/xlfkit/xliff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Shapes(t *testing.T) {
	t.Run("bundle", func(t *testing.T) {
		data := `{
			"keys": {"vs/base/common/errors": ["a", {"key": "b", "comment": ["note"]}]},
			"messages": {"vs/base/common/errors": ["A", "B"]},
			"bundles": {"vs/base/common/errors": ["vs/base/common/errors"]}
		}`
		shape, err := Decode([]byte(data))
		require.NoError(t, err)
		b, ok := shape.(*Bundle)
		require.True(t, ok, "got %T", shape)
		assert.Equal(t, []string{"vs/base/common/errors"}, b.Sources())
		assert.Equal(t, []xliff.Key{{Key: "a"}, {Key: "b", Comment: []string{"note"}}}, b.Keys["vs/base/common/errors"])
		assert.Equal(t, []string{"A", "B"}, b.Messages["vs/base/common/errors"])
	})

	t.Run("bundle keeps document order", func(t *testing.T) {
		data := `{
			"keys": {"vs/base/zeta": ["z"], "vs/base/alpha": ["a"], "vs/base/mid": ["m"]},
			"messages": {"vs/base/zeta": ["Z"], "vs/base/alpha": ["A"], "vs/base/mid": ["M"]},
			"bundles": {"vs/base/main": ["vs/base/zeta", "vs/base/alpha", "vs/base/mid"]}
		}`
		shape, err := Decode([]byte(data))
		require.NoError(t, err)
		b, ok := shape.(*Bundle)
		require.True(t, ok, "got %T", shape)
		assert.Equal(t, []string{"vs/base/zeta", "vs/base/alpha", "vs/base/mid"}, b.Sources())
	})

	t.Run("bundle with extra fields", func(t *testing.T) {
		data := `{
			"version": 1,
			"keys": {"vs/base/common/errors": ["a"]},
			"messages": {"vs/base/common/errors": ["A"]},
			"bundles": {"vs/base/common/errors": ["vs/base/common/errors"]},
			"generatedBy": "gulp"
		}`
		shape, err := Decode([]byte(data))
		require.NoError(t, err)
		b, ok := shape.(*Bundle)
		require.True(t, ok, "got %T", shape)
		assert.Equal(t, []string{"vs/base/common/errors"}, b.Sources())
	})

	t.Run("module", func(t *testing.T) {
		shape, err := Decode([]byte(`{"keys": ["k1", "k2"], "messages": ["m1", "m2"]}`))
		require.NoError(t, err)
		m, ok := shape.(*Module)
		require.True(t, ok, "got %T", shape)
		assert.Equal(t, xliff.Keys("k1", "k2"), m.Keys)
		assert.Equal(t, []string{"m1", "m2"}, m.Messages)
	})

	t.Run("package preserves order and comments", func(t *testing.T) {
		data := `{"zeta": "Z", "alpha": {"message": "A", "comment": ["first"]}, "mid": "M"}`
		shape, err := Decode([]byte(data))
		require.NoError(t, err)
		p, ok := shape.(*Package)
		require.True(t, ok, "got %T", shape)
		assert.Equal(t, []xliff.Key{{Key: "zeta"}, {Key: "alpha", Comment: []string{"first"}}, {Key: "mid"}}, p.Keys)
		assert.Equal(t, []string{"Z", "A", "M"}, p.Messages)
	})

	t.Run("empty object is an empty package", func(t *testing.T) {
		shape, err := Decode([]byte(`{}`))
		require.NoError(t, err)
		p, ok := shape.(*Package)
		require.True(t, ok, "got %T", shape)
		assert.Empty(t, p.Keys)
	})
}

func TestDecode_Unrecognized(t *testing.T) {
	cases := map[string]string{
		"array":                     `["a", "b"]`,
		"number values":             `{"a": 1}`,
		"object without comment":    `{"a": {"message": "A"}}`,
		"module with numeric items": `{"keys": [1], "messages": ["x"]}`,
		"null value":                `{"a": null}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			shape, err := Decode([]byte(data))
			require.NoError(t, err)
			assert.IsType(t, &Unrecognized{}, shape)
		})
	}
}

func TestBundleSources_HandBuilt(t *testing.T) {
	b := &Bundle{
		Keys:  map[string][]xliff.Key{"b": nil, "a": nil, "c": nil},
		Order: []string{"c", "gone"},
	}
	assert.Equal(t, []string{"c", "a", "b"}, b.Sources())
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"broken":`))
	require.Error(t, err)
}

func TestMarshalI18n(t *testing.T) {
	out, err := MarshalI18n(map[string]string{"b": "<B>", "a": "A & a"})
	require.NoError(t, err)

	want := "{\n" +
		"\t\"\": [\n" +
		"\t\t\"" + Header[0] + "\",\n" +
		"\t\t\"" + Header[1] + "\",\n" +
		"\t\t\"" + Header[2] + "\",\n" +
		"\t\t\"" + Header[3] + "\",\n" +
		"\t\t\"" + Header[4] + "\"\n" +
		"\t],\n" +
		"\t\"a\": \"A & a\",\n" +
		"\t\"b\": \"<B>\"\n" +
		"}"
	assert.Equal(t, want, string(out))
}

func TestMarshalNls(t *testing.T) {
	out, err := MarshalNls(map[string]string{"displayName": "Git"})
	require.NoError(t, err)

	var back map[string]string
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, map[string]string{"displayName": "Git"}, back)
	assert.NotContains(t, string(out), "Copyright")
}
