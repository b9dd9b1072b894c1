// Package resource decides which vendor resource (bundle) a source file
// belongs to.
//
// Resources are identified by a logical, forward-slash path such as
// "vs/editor/contrib/find/findWidget". Every core source file must map to
// exactly one resource; an unknown path is a fatal error.
package resource

import (
	"errors"
	"fmt"
	"strings"
)

// Vendor projects.
const (
	EditorProject     = "vscode-editor"
	WorkbenchProject  = "vscode-workbench"
	ExtensionsProject = "vscode-extensions"
	SetupProject      = "vscode-setup"
)

// Resource is a vendor resource: a named bundle within a project.
type Resource struct {
	Name    string
	Project string
}

// Slug returns the vendor-facing resource identifier.
func (r Resource) Slug() string {
	return strings.ReplaceAll(r.Name, "/", "_")
}

// ErrUnknownResource is matched by *ClassifyError.
var ErrUnknownResource = errors.New("could not identify the XLF bundle")

// ClassifyError names a path that matched none of the routing rules.
type ClassifyError struct {
	Path string
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("could not identify the XLF bundle for %s", e.Path)
}

func (e *ClassifyError) Is(target error) bool { return target == ErrUnknownResource }

// rule routes every path under prefix to project. With depth > 0 the
// resource name is the first depth segments of the path, giving one
// resource per second-level module.
type rule struct {
	prefix  string
	project string
	depth   int
}

// rules are checked in order; more specific prefixes come first.
var rules = []rule{
	{prefix: "vs/platform", project: EditorProject},
	{prefix: "vs/editor/contrib", project: EditorProject},
	{prefix: "vs/editor", project: EditorProject},
	{prefix: "vs/base", project: EditorProject},
	{prefix: "vs/code", project: WorkbenchProject},
	{prefix: "vs/workbench/parts", project: WorkbenchProject, depth: 4},
	{prefix: "vs/workbench/services", project: WorkbenchProject, depth: 4},
	{prefix: "vs/workbench", project: WorkbenchProject},
}

// Classify returns the resource for a logical source path.
func Classify(path string) (Resource, error) {
	path = strings.ReplaceAll(path, `\`, "/")
	for _, r := range rules {
		if path != r.prefix && !strings.HasPrefix(path, r.prefix+"/") {
			continue
		}
		name := r.prefix
		if r.depth > 0 {
			segments := strings.SplitN(path, "/", r.depth+1)
			if len(segments) > r.depth {
				segments = segments[:r.depth]
			}
			name = strings.Join(segments, "/")
		}
		return Resource{Name: name, Project: r.project}, nil
	}
	return Resource{}, &ClassifyError{Path: path}
}
