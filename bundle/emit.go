package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/minios-linux/xlfkit/manifest"
)

// Collector keeps emitted artifacts in memory, in emission order.
type Collector struct {
	mu        sync.Mutex
	artifacts []Artifact
}

// Emit implements Emitter.
func (c *Collector) Emit(a Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts = append(c.artifacts, a)
	return nil
}

// Artifacts returns a copy of everything emitted so far.
func (c *Collector) Artifacts() []Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Artifact, len(c.artifacts))
	copy(out, c.artifacts)
	return out
}

// DirEmitter writes artifacts below Dir and records them in Manifest.
// An artifact whose content matches the manifest checksum is not rewritten.
type DirEmitter struct {
	Dir      string
	Manifest *manifest.Manifest
	// Written, when set, is called for every file actually written.
	Written func(path string, size int)
}

// Emit implements Emitter.
func (e *DirEmitter) Emit(a Artifact) error {
	rel := a.Path()
	target := filepath.Join(e.Dir, filepath.FromSlash(rel))

	unchanged := e.Manifest != nil && !e.Manifest.Changed(rel, a.Data)
	if unchanged {
		if _, err := os.Stat(target); err == nil {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, a.Data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if e.Manifest != nil {
		e.Manifest.Record(rel, manifest.Artifact{Key: a.Key, Project: a.Project, Slug: a.Slug, Inputs: a.Inputs}, a.Data)
	}
	if e.Written != nil {
		e.Written(rel, len(a.Data))
	}
	return nil
}
