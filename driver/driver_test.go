package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minios-linux/xlfkit/bundle"
	"github.com/minios-linux/xlfkit/langmeta"
	"github.com/minios-linux/xlfkit/xliff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

// xlfFile renders a translated <file> node; units alternate id, target.
func xlfFile(original, lang string, units ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<file original="%s" source-language="en" target-language="%s" datatype="plaintext"><body>`, original, lang)
	for i := 0; i+1 < len(units); i += 2 {
		fmt.Fprintf(&b, `<trans-unit id="%s"><source xml:lang="en">x</source><target>%s</target></trans-unit>`, units[i], units[i+1])
	}
	b.WriteString(`</body></file>`)
	return b.String()
}

func xlf(files ...string) []byte {
	return []byte(`<?xml version="1.0" encoding="utf-8"?><xliff version="1.2" xmlns="urn:oasis:names:tc:xliff:document:1.2">` +
		strings.Join(files, "") + `</xliff>`)
}

func newDriver(t *testing.T, counter bundle.Counter) (*Driver, *bundle.Collector) {
	t.Helper()
	c := &bundle.Collector{}
	agg := bundle.New(c, bundle.WithCounter(counter))
	return &Driver{Aggregator: agg, Root: t.TempDir()}, c
}

func TestAccepts(t *testing.T) {
	for name, want := range map[string]bool{
		"package.nls.json":    true,
		"main.nls.json":       true,
		"nls.metadata.json":   true,
		"Default.isl":         true,
		"messages.en.isl":     true,
		"package.nls.de.json": false,
		"package.json":        false,
		"Default.ko.isl":      false,
	} {
		assert.Equal(t, want, Accepts(name), name)
	}
}

func TestImport_Module(t *testing.T) {
	d, c := newDriver(t, bundle.StaticCounter{"git": 2})

	require.NoError(t, d.Import("extensions/git/package.nls.json", []byte(`{"displayName": "Git"}`), ""))
	require.NoError(t, d.Import(`extensions\git\out\main.nls.json`, []byte(`{"keys": ["ok"], "messages": ["OK"]}`), ""))

	arts := c.Artifacts()
	require.Len(t, arts, 1)
	assert.Equal(t, "vscode-extensions/git.xlf", arts[0].Path())
	doc := string(arts[0].Data)
	assert.Contains(t, doc, `original="extensions/git/package"`)
	assert.Contains(t, doc, `original="extensions/git/out/main"`)
}

func TestImport_ExternalExtension(t *testing.T) {
	d, c := newDriver(t, bundle.StaticCounter{"my-ext": 1})

	require.NoError(t, d.Import("package.nls.json", []byte(`{"description": "Mine"}`), "my-ext"))
	arts := c.Artifacts()
	require.Len(t, arts, 1)
	assert.Equal(t, "vscode-extensions/my-ext.xlf", arts[0].Path())
	assert.Contains(t, string(arts[0].Data), `original="package"`)
}

func TestImport_Bundle(t *testing.T) {
	d, c := newDriver(t, bundle.StaticCounter{})
	data := `{
		"keys": {"vs/code/electron-main/menus": ["mFile"]},
		"messages": {"vs/code/electron-main/menus": ["&File"]},
		"bundles": {"vs/code/electron-main/main": ["vs/code/electron-main/menus"]}
	}`
	require.NoError(t, d.Import("out-build/nls.metadata.json", []byte(data), ""))

	arts := c.Artifacts()
	require.Len(t, arts, 1)
	assert.Equal(t, "vscode-workbench/vs_code.xlf", arts[0].Path())
	assert.Contains(t, string(arts[0].Data), `<source xml:lang="en">&amp;File</source>`)
}

func TestImport_Isl(t *testing.T) {
	d, c := newDriver(t, bundle.StaticCounter{})

	require.NoError(t, d.Import("build/win32/i18n/Default.isl", []byte("[Messages]\r\nSetupAppTitle=Setup\r\n"), ""))
	require.NoError(t, d.Import("build/win32/i18n/Default.ko.isl", []byte("[Messages]\r\nX=Y\r\n"), ""))
	assert.Empty(t, c.Artifacts())
	require.NoError(t, d.Import("build/win32/i18n/messages.en.isl", []byte("[CustomMessages]\r\nRunAfter=Run %1\r\n"), ""))

	arts := c.Artifacts()
	require.Len(t, arts, 1)
	assert.Equal(t, "vscode-setup/setup.xlf", arts[0].Path())
}

func TestImport_Errors(t *testing.T) {
	d, _ := newDriver(t, bundle.StaticCounter{})

	err := d.Import("extensions/git/weird.nls.json", []byte(`[1, 2]`), "")
	require.ErrorIs(t, err, ErrUnknownShape)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "extensions/git/weird.nls.json", shapeErr.Path)

	err = d.Import("extensions/git/broken.nls.json", []byte(`{`), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownShape)

	require.NoError(t, d.Import("README.md", []byte("# hi"), ""))
}

func TestImportPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "extensions/git/package.nls.json", `{"displayName": "Git"}`)
	writeFile(t, root, "extensions/git/out/main.nls.json", `{"keys": ["ok"], "messages": ["OK"]}`)
	writeFile(t, root, "extensions/git/node_modules/x/package.nls.json", `{"ignored": "yes"}`)
	writeFile(t, root, "extensions/git/package.json", `{"name": "git"}`)
	writeFile(t, root, "extensions/nls.metadata.json", `{"unexpected": 1}`)

	c := &bundle.Collector{}
	d := &Driver{Aggregator: bundle.New(c, bundle.WithCounter(bundle.GlobCounter{Root: root})), Root: root}

	summary, err := d.ImportPaths([]string{"extensions"}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, []string{"extensions/nls.metadata.json"}, summary.Skipped)

	arts := c.Artifacts()
	require.Len(t, arts, 1)
	assert.Equal(t, "vscode-extensions/git.xlf", arts[0].Path())
	assert.Empty(t, d.Aggregator.Pending())

	_, err = d.ImportPaths([]string{"missing"}, "")
	require.Error(t, err)
}

func TestExport_I18nLayout(t *testing.T) {
	d, _ := newDriver(t, bundle.StaticCounter{})

	outs, err := d.Export(xlf(xlfFile("extensions/git/package", "de", "displayName", "Git &amp; mehr")))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "deu/extensions/git/package.i18n.json", outs[0].Path)
	assert.Equal(t, "deu", outs[0].Language)

	var back map[string]any
	require.NoError(t, json.Unmarshal(outs[0].Data, &back))
	assert.Equal(t, "Git & mehr", back["displayName"])
	assert.Contains(t, back, "")
}

func TestExport_NlsLayout(t *testing.T) {
	d, _ := newDriver(t, bundle.StaticCounter{})
	d.Layout = LayoutNls

	outs, err := d.Export(xlf(xlfFile("package", "zh-hans", "description", "描述")))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "package.nls.zh-cn.json", outs[0].Path)

	var back map[string]string
	require.NoError(t, json.Unmarshal(outs[0].Data, &back))
	assert.Equal(t, map[string]string{"description": "描述"}, back)
}

func TestExport_Isl(t *testing.T) {
	d, _ := newDriver(t, bundle.StaticCounter{})
	writeFile(t, d.Root, "build/win32/i18n/messages.en.isl",
		"[CustomMessages]\r\nRunAfter=Run %1 after installation\r\n")
	writeFile(t, d.Root, "build/win32/i18n/Default.isl",
		"[LangOptions]\r\nLanguageName=English\r\n[Messages]\r\nSetupAppTitle=Setup\r\n")

	payload := xlf(
		xlfFile("build/win32/i18n/messages", "de", "RunAfter", "%1 nach der Installation starten"),
		xlfFile("build/win32/i18n/Default", "de", "SetupAppTitle", "Setup"),
		xlfFile("build/win32/i18n/Default", "ko", "SetupAppTitle", "Setup"),
	)
	outs, err := d.Export(payload)
	require.NoError(t, err)

	var paths []string
	for _, o := range outs {
		paths = append(paths, o.Path)
	}
	assert.Equal(t, []string{"build/win32/i18n/messages.de.isl", "build/win32/i18n/Default.ko.isl"}, paths)
	assert.Equal(t, "[CustomMessages]\r\nRunAfter=%1 nach der Installation starten", string(outs[0].Data))
	assert.Contains(t, string(outs[1].Data), "LanguageName=Korean")
}

func TestExport_EmptyFile(t *testing.T) {
	d, _ := newDriver(t, bundle.StaticCounter{})

	outs, err := d.Export(xlf(
		xlfFile("extensions/git/package", "de", "a", "A"),
		xlfFile("extensions/git/out/main", "de"),
	))
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, "deu/extensions/git/out/main.i18n.json", outs[1].Path)

	var back map[string]any
	require.NoError(t, json.Unmarshal(outs[1].Data, &back))
	assert.Equal(t, []string{""}, fieldNames(back))
}

func fieldNames(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestExport_LanguageFilter(t *testing.T) {
	d, _ := newDriver(t, bundle.StaticCounter{})
	d.Languages = []string{"fra"}

	outs, err := d.Export(xlf(
		xlfFile("extensions/git/package", "de", "a", "A"),
		xlfFile("extensions/git/package", "fr", "a", "A"),
	))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "fra", outs[0].Language)
}

func TestExport_AllOrNothing(t *testing.T) {
	d, _ := newDriver(t, bundle.StaticCounter{})

	t.Run("unknown language", func(t *testing.T) {
		outs, err := d.Export(xlf(
			xlfFile("extensions/git/package", "de", "a", "A"),
			xlfFile("extensions/git/package", "tlh", "a", "A"),
		))
		require.ErrorIs(t, err, langmeta.ErrUnknownLanguage)
		assert.Nil(t, outs)
	})

	t.Run("missing template", func(t *testing.T) {
		outs, err := d.Export(xlf(
			xlfFile("extensions/git/package", "de", "a", "A"),
			xlfFile("build/win32/i18n/messages", "de", "a", "A"),
		))
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Nil(t, outs)
	})

	t.Run("parse error", func(t *testing.T) {
		outs, err := d.Export([]byte(`<xliff><file original="a"></file></xliff>`))
		require.ErrorIs(t, err, xliff.ErrMissingLanguage)
		assert.Nil(t, outs)
	})

	t.Run("original outside the tree", func(t *testing.T) {
		for _, original := range []string{"../../pwned", "build/../../win32/x", "/tmp/pwned"} {
			outs, err := d.Export(xlf(
				xlfFile("extensions/git/package", "de", "a", "A"),
				xlfFile(original, "de", "a", "A"),
			))
			require.ErrorIs(t, err, xliff.ErrUnsafeOriginal, original)
			assert.Nil(t, outs)
		}
	})

	t.Run("unknown layout", func(t *testing.T) {
		bad := *d
		bad.Layout = "yaml"
		_, err := bad.Export(xlf(xlfFile("package", "de", "a", "A")))
		require.ErrorIs(t, err, ErrUnknownLayout)
	})
}

func TestWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteOutputs(dir, []Output{{Path: "deu/a/b.i18n.json", Data: []byte("{}")}}))
	data, err := os.ReadFile(filepath.Join(dir, "deu", "a", "b.i18n.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
