package langmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "kor", want: "kor"},
		{in: "KOR", want: "kor"},
		{in: "ko", want: "kor"},
		{in: "zh-hans", want: "chs"},
		{in: "zh-CN", want: "chs"},
		{in: "zh_tw", want: "cht"},
		{in: "pt-br", want: "ptb"},
		{in: "pt", want: "ptg"},
		{in: "de-AT", want: "deu"},
		{in: " ru ", want: "rus"},
	}

	for _, tc := range cases {
		got, err := Lookup(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got.ID, "Lookup(%q)", tc.in)
	}
}

func TestLookup_Unknown(t *testing.T) {
	for _, in := range []string{"", "xx", "zz-ZZ", "klingon"} {
		_, err := Lookup(in)
		assert.ErrorIs(t, err, ErrUnknownLanguage, in)
	}
}

func TestRegistryConsistency(t *testing.T) {
	for id, l := range Registry {
		assert.Equal(t, id, l.ID)
		assert.NotEmpty(t, l.Name, id)
		assert.Regexp(t, `^\$[0-9A-F]{4}$`, l.LCID, id)
		assert.Regexp(t, `^CP\d+$`, l.CodePage, id)

		_, err := l.LanguageTag()
		assert.NoError(t, err, id)
	}

	for _, id := range append(append([]string{}, DefaultLanguages...), ExtraLanguages...) {
		_, ok := Registry[id]
		assert.True(t, ok, "shipping language %q missing from registry", id)
	}
}

func TestCodePageNumber(t *testing.T) {
	l, err := Lookup("kor")
	require.NoError(t, err)
	assert.Equal(t, "949", l.CodePageNumber())
	assert.Equal(t, "Korean", l.Name)
}
