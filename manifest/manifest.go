// Package manifest implements xlfkit.lock, the ledger written next to the
// emitted XLIFF files. It records an MD5 checksum per artifact, so unchanged
// documents are not rewritten, and the groups that were still waiting for
// inputs when the run ended, so a stalled aggregation can be detected
// after the fact.
package manifest

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest file name inside the output directory.
const FileName = "xlfkit.lock"

// Version is the manifest format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Manifest represents the xlfkit.lock file structure.
type Manifest struct {
	Version   int                  `yaml:"version"`
	Artifacts map[string]*Artifact `yaml:"artifacts"` // {project}/{slug}.xlf -> artifact
	Pending   []Pending            `yaml:"pending,omitempty"`

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// Artifact is one emitted XLIFF document.
type Artifact struct {
	Key      string `yaml:"key"`
	Project  string `yaml:"project"`
	Slug     string `yaml:"slug"`
	Checksum string `yaml:"checksum"`
	Inputs   int    `yaml:"inputs"`
}

// Pending is a group that never received all of its inputs.
type Pending struct {
	Key      string `yaml:"key"`
	Project  string `yaml:"project"`
	Received int    `yaml:"received"`
	Expected int    `yaml:"expected"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the manifest from dir. A missing file yields an empty manifest.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	m := &Manifest{
		Version:   Version,
		Artifacts: make(map[string]*Artifact),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m.path = path

	if m.Artifacts == nil {
		m.Artifacts = make(map[string]*Artifact)
	}
	if m.Version > Version {
		return nil, fmt.Errorf("%s: unsupported manifest version %d", path, m.Version)
	}

	return m, nil
}

// Save writes the manifest to disk, creating the directory if needed.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return fmt.Errorf("manifest path not set")
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(m.path), err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return m.path
}

// ---------------------------------------------------------------------------
// Artifacts
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of data.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// Changed reports whether data differs from what was last recorded for path.
func (m *Manifest) Changed(path string, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.Artifacts[path]
	if !ok {
		return true
	}
	return a.Checksum != Hash(data)
}

// Record stores an artifact with the checksum of data and clears the
// pending entry with the same group key.
func (m *Manifest) Record(path string, a Artifact, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.Checksum = Hash(data)
	m.Artifacts[path] = &a

	kept := m.Pending[:0]
	for _, p := range m.Pending {
		if a.Key != "" && p.Key == a.Key {
			continue
		}
		kept = append(kept, p)
	}
	m.Pending = kept
}

// SetPending replaces the list of stalled groups.
func (m *Manifest) SetPending(pending []Pending) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Pending = append([]Pending(nil), pending...)
	sort.Slice(m.Pending, func(i, j int) bool { return m.Pending[i].Key < m.Pending[j].Key })
}

// Stalled returns a copy of the pending groups.
func (m *Manifest) Stalled() []Pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Pending(nil), m.Pending...)
}

// Paths returns the sorted artifact paths.
func (m *Manifest) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.Artifacts))
	for p := range m.Artifacts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Get returns the artifact recorded for path.
func (m *Manifest) Get(path string) (Artifact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.Artifacts[path]
	if !ok {
		return Artifact{}, false
	}
	return *a, true
}

// ---------------------------------------------------------------------------
// Human-readable summary
// ---------------------------------------------------------------------------

// Summary returns a one-line description of the manifest.
func (m *Manifest) Summary() string {
	paths := m.Paths()
	stalled := m.Stalled()
	if len(paths) == 0 && len(stalled) == 0 {
		return "empty"
	}

	projects := make(map[string]int)
	for _, p := range paths {
		a, _ := m.Get(p)
		projects[a.Project]++
	}
	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %d", name, projects[name]))
	}
	return fmt.Sprintf("%d artifacts, %d pending (%s)", len(paths), len(stalled), strings.Join(parts, ", "))
}
