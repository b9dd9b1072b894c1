// Package bundle groups extracted strings into vendor resources and emits
// each resource's XLIFF document once all of its inputs have arrived.
//
// Three kinds of group exist:
//
//   - core resources, filled from a combined bundle JSON in one call;
//   - one group per extension, filled one .nls.json file at a time and
//     emitted when the number of received files reaches the number counted
//     on disk;
//   - a single setup group collecting the installer message files.
//
// Completion is counted, never guessed: if fewer inputs arrive than were
// counted the group stays pending for the rest of the run and is reported
// by Pending.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/minios-linux/xlfkit/isl"
	"github.com/minios-linux/xlfkit/nlsjson"
	"github.com/minios-linux/xlfkit/resource"
	"github.com/minios-linux/xlfkit/xliff"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Artifact is a finished XLIFF document handed to an Emitter.
type Artifact struct {
	// Key is the group key, as reported in Status.
	Key     string
	Project string
	// Slug identifies the resource within the project: the resource name
	// with "/" replaced by "_", the extension name, or "setup".
	Slug string
	Data []byte
	// Inputs is the number of contributions the document was built from.
	Inputs int
}

// Path returns {project}/{slug}.xlf.
func (a Artifact) Path() string {
	return a.Project + "/" + a.Slug + ".xlf"
}

// Emitter receives finished documents.
type Emitter interface {
	Emit(Artifact) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Artifact) error

// Emit calls f.
func (f EmitterFunc) Emit(a Artifact) error { return f(a) }

// Status describes a group for reporting.
type Status struct {
	Key      string
	Project  string
	Slug     string
	Received int
	Expected int
	Emitted  bool
}

// ErrAlreadyEmitted is returned for a contribution to a group whose
// document was already emitted.
var ErrAlreadyEmitted = errors.New("resource already emitted")

// SetupSlug is the slug of the installer messages resource.
const SetupSlug = "setup"

type group struct {
	key      string
	project  string
	slug     string
	doc      *xliff.Document
	expected int
	received int
	emitted  bool
}

func (g *group) status() Status {
	return Status{
		Key:      g.key,
		Project:  g.project,
		Slug:     g.slug,
		Received: g.received,
		Expected: g.expected,
		Emitted:  g.emitted,
	}
}

// ---------------------------------------------------------------------------
// Aggregator
// ---------------------------------------------------------------------------

// Aggregator owns all groups of one build run. It is safe for concurrent
// use; contributions are serialized so each document keeps arrival order.
type Aggregator struct {
	mu     sync.Mutex
	groups map[string]*group

	emitter           Emitter
	counter           Counter
	logger            *slog.Logger
	extensionsProject string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCounter sets how many .nls.json files an extension is expected to
// contribute. Defaults to a GlobCounter rooted at the working directory.
func WithCounter(c Counter) Option {
	return func(a *Aggregator) { a.counter = c }
}

// WithLogger sets the logger for warnings and emission events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithExtensionsProject sets the vendor project of extension resources.
func WithExtensionsProject(project string) Option {
	return func(a *Aggregator) { a.extensionsProject = project }
}

// New returns an Aggregator handing finished documents to emitter.
func New(emitter Emitter, opts ...Option) *Aggregator {
	a := &Aggregator{
		groups:            make(map[string]*group),
		emitter:           emitter,
		counter:           GlobCounter{Root: "."},
		extensionsProject: resource.ExtensionsProject,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a
}

// Reset drops all groups.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.groups = make(map[string]*group)
}

// ---------------------------------------------------------------------------
// Contributions
// ---------------------------------------------------------------------------

// AddBundle routes every source of a combined bundle to its resource and
// emits the affected resources. A bundle carries all sources of its
// resources, so each resource is complete after one call. A source that
// cannot be classified aborts the call before anything is emitted.
func (a *Aggregator) AddBundle(relPath string, b *nlsjson.Bundle) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var order []*group
	local := make(map[string]*group)
	for _, source := range b.Sources() {
		res, err := resource.Classify(source)
		if err != nil {
			return fmt.Errorf("%s: %w", relPath, err)
		}

		key := res.Project + "/" + res.Name
		g, ok := local[key]
		if !ok {
			if existing, ok := a.groups[key]; ok && existing.emitted {
				return fmt.Errorf("%s: %s: %w", relPath, key, ErrAlreadyEmitted)
			}
			g = &group{key: key, project: res.Project, slug: res.Slug(), doc: xliff.New(res.Project), expected: 1}
			local[key] = g
			order = append(order, g)
		}

		if err := a.addFile(relPath, g.doc, "src/"+source, b.Keys[source], b.Messages[source]); err != nil {
			return err
		}
	}

	for _, g := range order {
		g.received = 1
		a.groups[g.key] = g
		if err := a.emit(g); err != nil {
			return err
		}
	}
	return nil
}

// AddModule contributes one extension .nls.json file. relPath is relative
// to the extensions folder for built-in extensions (extension == "") and
// relative to the extension root for an external extension.
//
// The expected number of files is counted once, on the first contribution.
// The document is emitted when the received count reaches it.
func (a *Aggregator) AddModule(relPath string, keys []xliff.Key, messages []string, extension string) error {
	rel := strings.TrimSuffix(strings.ReplaceAll(relPath, `\`, "/"), ".nls.json")
	original := rel
	if extension == "" {
		extension, _, _ = strings.Cut(rel, "/")
		original = "extensions/" + rel
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	g, ok := a.groups[extension]
	if !ok {
		expected, err := a.counter.ExpectedInputs(extension)
		if err != nil {
			return fmt.Errorf("counting inputs of %s: %w", extension, err)
		}
		if expected < 1 {
			a.logger.Warn("no inputs expected, resource will not be emitted", "extension", extension)
		}
		g = &group{
			key:      extension,
			project:  a.extensionsProject,
			slug:     extension,
			doc:      xliff.New(a.extensionsProject),
			expected: expected,
		}
		a.groups[extension] = g
	}
	if g.emitted {
		return fmt.Errorf("%s: %s: %w", relPath, extension, ErrAlreadyEmitted)
	}

	if err := a.addFile(relPath, g.doc, original, keys, messages); err != nil {
		return err
	}
	return a.receive(g)
}

// AddIsl contributes one installer message file to the setup resource,
// which is emitted once every file in isl.SourceFiles has arrived.
func (a *Aggregator) AddIsl(relPath string, keys, messages []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := resource.SetupProject + "/" + SetupSlug
	g, ok := a.groups[key]
	if !ok {
		g = &group{
			key:      key,
			project:  resource.SetupProject,
			slug:     SetupSlug,
			doc:      xliff.New(resource.SetupProject),
			expected: len(isl.SourceFiles),
		}
		a.groups[key] = g
	}
	if g.emitted {
		return fmt.Errorf("%s: %s: %w", relPath, key, ErrAlreadyEmitted)
	}

	if err := a.addFile(relPath, g.doc, isl.OriginalPath(relPath), xliff.Keys(keys...), messages); err != nil {
		return err
	}
	return a.receive(g)
}

// addFile adds to doc, downgrading a length mismatch to a warning.
func (a *Aggregator) addFile(relPath string, doc *xliff.Document, original string, keys []xliff.Key, messages []string) error {
	if len(keys) == 0 {
		a.logger.Debug("no keys", "path", relPath, "original", original)
		return nil
	}
	err := doc.AddFile(original, keys, messages)
	if errors.Is(err, xliff.ErrLengthMismatch) {
		a.logger.Warn("mismatch between keys and messages", "path", relPath, "error", err)
		return nil
	}
	return err
}

// receive counts a contribution. A group whose emission failed is retried on
// its next contribution.
func (a *Aggregator) receive(g *group) error {
	g.received++
	if g.expected > 0 && g.received >= g.expected {
		return a.emit(g)
	}
	return nil
}

func (a *Aggregator) emit(g *group) error {
	data, err := g.doc.Marshal()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", g.key, err)
	}
	art := Artifact{Key: g.key, Project: g.project, Slug: g.slug, Data: data, Inputs: g.received}
	if err := a.emitter.Emit(art); err != nil {
		return fmt.Errorf("emitting %s: %w", art.Path(), err)
	}
	g.emitted = true
	a.logger.Info("resource emitted",
		"path", art.Path(),
		"files", len(g.doc.Files()),
		"messages", g.doc.NumberOfMessages())
	return nil
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// Pending returns the groups still waiting for inputs, sorted by key.
func (a *Aggregator) Pending() []Status {
	return a.statuses(func(g *group) bool { return !g.emitted })
}

// Emitted returns the groups whose document was emitted, sorted by key.
func (a *Aggregator) Emitted() []Status {
	return a.statuses(func(g *group) bool { return g.emitted })
}

func (a *Aggregator) statuses(keep func(*group) bool) []Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []Status
	for _, g := range a.groups {
		if keep(g) {
			out = append(out, g.status())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
