// Package driver dispatches files between the on-disk formats and the
// aggregator.
//
// Import feeds source-side files (bundle metadata, extension .nls.json,
// installer messages) into a bundle.Aggregator, which emits XLIFF for the
// vendor. Export goes the other way: it takes a translated XLIFF payload and
// renders the per-language artifacts, either installer .isl files or
// translated JSON, depending on where the original file lives.
package driver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/minios-linux/xlfkit/bundle"
	"github.com/minios-linux/xlfkit/isl"
	"github.com/minios-linux/xlfkit/langmeta"
	"github.com/minios-linux/xlfkit/nlsjson"
	"github.com/minios-linux/xlfkit/xliff"
)

// JSON layouts for translated extension strings.
const (
	// LayoutI18n writes {id}/{original}.i18n.json with the generated header.
	LayoutI18n = "i18n"
	// LayoutNls writes {original}.nls.{tag}.json next to the source, as an
	// external extension expects.
	LayoutNls = "nls"
)

// MetadataFile is the combined bundle written by the core build.
const MetadataFile = "nls.metadata.json"

// ErrUnknownShape is matched by *ShapeError.
var ErrUnknownShape = errors.New("unrecognized JSON shape")

// ErrUnknownLayout is returned by Export for a Layout other than LayoutI18n
// or LayoutNls.
var ErrUnknownLayout = errors.New("unknown JSON layout")

// ShapeError names a JSON file that is none of the known shapes.
type ShapeError struct {
	Path string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, ErrUnknownShape)
}

func (e *ShapeError) Is(target error) bool { return target == ErrUnknownShape }

// Output is one file rendered by Export, relative to the output directory.
type Output struct {
	Path     string
	Language string
	Data     []byte
}

// defaultRegenerated lists the languages whose Inno Setup Default.isl is
// produced from translations. The others ship with Inno Setup.
var defaultRegenerated = map[string]bool{"chs": true, "cht": true, "kor": true}

// Driver connects the file formats to an Aggregator.
type Driver struct {
	Aggregator *bundle.Aggregator
	// Root is the repository root. Import resolves relative paths against
	// it and Export reads English .isl templates from below it.
	Root string
	// Layout selects the translated JSON layout. Empty means LayoutI18n.
	Layout string
	// Languages restricts Export to these folder codes. Empty means all.
	Languages []string
	Logger    *slog.Logger
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}

// ---------------------------------------------------------------------------
// Import
// ---------------------------------------------------------------------------

// Accepts reports whether a file found while walking a directory is a
// source file Import understands.
func Accepts(name string) bool {
	if strings.HasSuffix(name, ".nls.json") || name == MetadataFile {
		return true
	}
	return slices.Contains(isl.SourceFiles, name)
}

// Import routes one source file to the aggregator. relPath is relative to
// Root with forward or backward slashes. extension names the external
// extension the file belongs to; leave it empty for files of the product
// itself, in which case module files are expected under "extensions/".
//
// An unrecognized JSON document yields a *ShapeError and leaves the
// aggregator untouched.
func (d *Driver) Import(relPath string, data []byte, extension string) error {
	relPath = filepath.ToSlash(relPath)
	switch {
	case strings.HasSuffix(relPath, ".json"):
		return d.importJSON(relPath, data, extension)
	case strings.HasSuffix(relPath, ".isl"):
		if !slices.Contains(isl.SourceFiles, path.Base(relPath)) {
			d.logger().Debug("not an installer source file", "path", relPath)
			return nil
		}
		keys, messages, err := isl.ParseSource(data)
		if err != nil {
			return fmt.Errorf("%s: %w", relPath, err)
		}
		return d.Aggregator.AddIsl(relPath, keys, messages)
	default:
		d.logger().Debug("ignoring file", "path", relPath)
		return nil
	}
}

func (d *Driver) importJSON(relPath string, data []byte, extension string) error {
	shape, err := nlsjson.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", relPath, err)
	}

	moduleRel := relPath
	if extension == "" {
		moduleRel = strings.TrimPrefix(relPath, "extensions/")
	}

	switch s := shape.(type) {
	case *nlsjson.Bundle:
		return d.Aggregator.AddBundle(relPath, s)
	case *nlsjson.Module:
		return d.Aggregator.AddModule(moduleRel, s.Keys, s.Messages, extension)
	case *nlsjson.Package:
		return d.Aggregator.AddModule(moduleRel, s.Keys, s.Messages, extension)
	default:
		return &ShapeError{Path: relPath}
	}
}

// ImportFile reads relPath below Root and imports it.
func (d *Driver) ImportFile(relPath, extension string) error {
	data, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(relPath)))
	if err != nil {
		return fmt.Errorf("reading %s: %w", relPath, err)
	}
	return d.Import(relPath, data, extension)
}

// ImportSummary counts what ImportPaths did.
type ImportSummary struct {
	Imported int
	Skipped  []string
}

// ImportPaths imports every path, relative to Root. Directories are walked
// and filtered with Accepts; files named explicitly are always imported.
// Files of an unrecognized shape are skipped with a warning; any other
// error stops the run.
func (d *Driver) ImportPaths(paths []string, extension string) (ImportSummary, error) {
	var summary ImportSummary
	for _, p := range paths {
		files, err := d.collect(p)
		if err != nil {
			return summary, err
		}
		for _, rel := range files {
			err := d.ImportFile(rel, extension)
			if errors.Is(err, ErrUnknownShape) {
				d.logger().Warn("skipping file", "path", rel, "error", err)
				summary.Skipped = append(summary.Skipped, rel)
				continue
			}
			if err != nil {
				return summary, err
			}
			summary.Imported++
		}
	}
	return summary, nil
}

// collect expands p into the relative paths of the files to import.
func (d *Driver) collect(p string) ([]string, error) {
	full := filepath.Join(d.Root, filepath.FromSlash(p))
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if !info.IsDir() {
		return []string{filepath.ToSlash(p)}, nil
	}

	var files []string
	err = filepath.WalkDir(full, func(fp string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if fp != full && bundle.SkipDir(e.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !Accepts(e.Name()) {
			return nil
		}
		rel, err := filepath.Rel(d.Root, fp)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", p, err)
	}
	sort.Strings(files)
	return files, nil
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

// Export renders a translated XLIFF payload. Originals under build/ become
// installer .isl files; everything else becomes translated JSON in the
// configured layout. Either every output is returned or none.
func (d *Driver) Export(data []byte) ([]Output, error) {
	files, err := xliff.Parse(data)
	if err != nil {
		return nil, err
	}

	var outputs []Output
	for _, f := range files {
		lang, err := langmeta.Lookup(f.Language)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.OriginalFilePath, err)
		}
		if len(d.Languages) > 0 && !slices.Contains(d.Languages, lang.ID) {
			d.logger().Debug("language not selected", "original", f.OriginalFilePath, "language", lang.ID)
			continue
		}

		out, ok, err := d.render(f, lang)
		if err != nil {
			return nil, err
		}
		if ok {
			outputs = append(outputs, out)
		}
	}
	return outputs, nil
}

// ExportFile reads an XLIFF file and renders it.
func (d *Driver) ExportFile(path string) ([]Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return d.Export(data)
}

func (d *Driver) render(f xliff.ParsedFile, lang langmeta.Language) (Output, bool, error) {
	original := f.OriginalFilePath

	if strings.HasPrefix(original, "build/") {
		if path.Base(original) == isl.DefaultName && !defaultRegenerated[lang.ID] {
			d.logger().Debug("keeping stock Default.isl", "language", lang.ID)
			return Output{}, false, nil
		}
		res, err := isl.Build(d.Root, original, f.Messages, lang)
		if err != nil {
			return Output{}, false, err
		}
		return Output{Path: res.Path, Language: lang.ID, Data: res.Data}, true, nil
	}

	switch d.Layout {
	case "", LayoutI18n:
		out, err := nlsjson.MarshalI18n(f.Messages)
		if err != nil {
			return Output{}, false, fmt.Errorf("%s: %w", original, err)
		}
		return Output{Path: lang.ID + "/" + original + ".i18n.json", Language: lang.ID, Data: out}, true, nil
	case LayoutNls:
		out, err := nlsjson.MarshalNls(f.Messages)
		if err != nil {
			return Output{}, false, fmt.Errorf("%s: %w", original, err)
		}
		return Output{Path: original + ".nls." + lang.Tag + ".json", Language: lang.ID, Data: out}, true, nil
	default:
		return Output{}, false, fmt.Errorf("%w: %q", ErrUnknownLayout, d.Layout)
	}
}

// WriteOutputs writes outputs below dir.
func WriteOutputs(dir string, outputs []Output) error {
	for _, o := range outputs {
		target := filepath.Join(dir, filepath.FromSlash(o.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("mkdir %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, o.Data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}
	}
	return nil
}
