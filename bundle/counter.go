package bundle

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Counter reports how many .nls.json files an extension contributes.
type Counter interface {
	ExpectedInputs(extension string) (int, error)
}

// StaticCounter is a Counter backed by a fixed table. Unknown extensions
// expect zero inputs.
type StaticCounter map[string]int

// ExpectedInputs implements Counter.
func (c StaticCounter) ExpectedInputs(extension string) (int, error) {
	return c[extension], nil
}

// GlobCounter counts *.nls.json files on disk. For built-in extensions it
// scans {Root}/extensions/{name}; with External set the whole Root is the
// extension.
type GlobCounter struct {
	Root     string
	External bool
}

// skipDirs are never scanned.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
}

// SkipDir reports whether a directory is left out of every scan.
func SkipDir(name string) bool {
	return skipDirs[name]
}

// ExpectedInputs implements Counter.
func (c GlobCounter) ExpectedInputs(extension string) (int, error) {
	files, err := c.Find(extension)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// Find returns the .nls.json files of an extension in sorted order. It is
// the same walk ExpectedInputs counts, so feeding its result to the
// aggregator completes the extension's group.
func (c GlobCounter) Find(extension string) ([]string, error) {
	dir := c.Root
	if !c.External {
		dir = filepath.Join(c.Root, "extensions", extension)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".nls.json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}
