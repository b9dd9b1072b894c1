// Package nlsjson implements the JSON message files produced by string
// extraction and consumed by the runtime.
//
// Three source shapes are recognized, tried in this order:
//
//	Bundle   {"keys": {src: [key...]}, "messages": {src: [msg...]}, "bundles": {name: [src...]}}
//	Module   {"keys": [key...], "messages": [msg...]}
//	Package  {"key": "message", "other": {"message": "...", "comment": ["..."]}}
//
// A key is either a plain string or {"key": "...", "comment": ["..."]}.
// Valid JSON matching none of the shapes decodes to Unrecognized.
package nlsjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/minios-linux/xlfkit/xliff"
)

// ---------------------------------------------------------------------------
// Shapes
// ---------------------------------------------------------------------------

// Shape is one of *Bundle, *Module, *Package or *Unrecognized.
type Shape interface {
	shape()
}

// Bundle is the combined output of the core build: keys and messages for
// every source file, plus the bundle each source belongs to.
type Bundle struct {
	Keys     map[string][]xliff.Key `json:"keys"`
	Messages map[string][]string    `json:"messages"`
	Bundles  map[string][]string    `json:"bundles"`
	// Order lists the sources as they appear under "keys" in the document.
	Order []string `json:"-"`
}

// Sources returns the source files of the bundle in document order. Sources
// missing from Order, as in a Bundle built by hand, follow in sorted order.
func (b *Bundle) Sources() []string {
	sources := make([]string, 0, len(b.Keys))
	seen := make(map[string]bool, len(b.Keys))
	for _, s := range b.Order {
		if _, ok := b.Keys[s]; ok && !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	var rest []string
	for s := range b.Keys {
		if !seen[s] {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(sources, rest...)
}

// Module is the .nls.json written next to a compiled extension module.
type Module struct {
	Keys     []xliff.Key `json:"keys"`
	Messages []string    `json:"messages"`
}

// Package is a package.nls.json: a flat map in document order.
type Package struct {
	Keys     []xliff.Key
	Messages []string
}

// Unrecognized is valid JSON of no known shape.
type Unrecognized struct{}

func (*Bundle) shape()       {}
func (*Module) shape()       {}
func (*Package) shape()      {}
func (*Unrecognized) shape() {}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// ReadFile reads and decodes a JSON message file.
func ReadFile(path string) (Shape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data)
}

// Decode determines the shape of a JSON message file. Only invalid JSON is
// an error.
func Decode(data []byte) (Shape, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("parsing JSON: invalid document")
	}

	fields, ok := objectFields(data)
	if !ok {
		return &Unrecognized{}, nil
	}
	if b, ok := decodeBundle(fields); ok {
		return b, nil
	}
	if m, ok := decodeModule(fields); ok {
		return m, nil
	}
	if p, ok := decodePackage(fields); ok {
		return p, nil
	}
	return &Unrecognized{}, nil
}

// field is a top-level member, kept in document order.
type field struct {
	name  string
	value json.RawMessage
}

// objectFields splits a top-level JSON object into its members. It reports
// false when data is not an object.
func objectFields(data []byte) ([]field, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false
	}

	var fields []field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		fields = append(fields, field{name: name, value: raw})
	}
	return fields, true
}

func lookup(fields []field, name string) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeBundle needs all three members. Any others are ignored.
func decodeBundle(fields []field) (*Bundle, bool) {
	var b Bundle
	targets := map[string]any{"keys": &b.Keys, "messages": &b.Messages, "bundles": &b.Bundles}
	for name, target := range targets {
		raw, ok := lookup(fields, name)
		if !ok || isNull(raw) {
			return nil, false
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, false
		}
	}
	sources, _ := lookup(fields, "keys")
	members, _ := objectFields(sources)
	for _, m := range members {
		b.Order = append(b.Order, m.name)
	}
	return &b, true
}

func decodeModule(fields []field) (*Module, bool) {
	rawKeys, ok := lookup(fields, "keys")
	if !ok || isNull(rawKeys) {
		return nil, false
	}
	rawMessages, ok := lookup(fields, "messages")
	if !ok || isNull(rawMessages) {
		return nil, false
	}

	var m Module
	if err := json.Unmarshal(rawKeys, &m.Keys); err != nil {
		return nil, false
	}
	if err := json.Unmarshal(rawMessages, &m.Messages); err != nil {
		return nil, false
	}
	return &m, true
}

func decodePackage(fields []field) (*Package, bool) {
	p := &Package{}
	for _, f := range fields {
		var s string
		if err := json.Unmarshal(f.value, &s); err == nil && !isNull(f.value) {
			p.Keys = append(p.Keys, xliff.Key{Key: f.name})
			p.Messages = append(p.Messages, s)
			continue
		}

		var entry struct {
			Message *string  `json:"message"`
			Comment []string `json:"comment"`
		}
		if err := json.Unmarshal(f.value, &entry); err != nil || entry.Message == nil || entry.Comment == nil {
			return nil, false
		}
		p.Keys = append(p.Keys, xliff.Key{Key: f.name, Comment: entry.Comment})
		p.Messages = append(p.Messages, *entry.Message)
	}
	return p, true
}

// ---------------------------------------------------------------------------
// Translated output
// ---------------------------------------------------------------------------

// Header is written under the "" key of every generated .i18n.json file.
var Header = []string{
	"--------------------------------------------------------------------------------------------",
	"Copyright (c) Microsoft Corporation. All rights reserved.",
	"Licensed under the MIT License. See License.txt in the project root for license information.",
	"--------------------------------------------------------------------------------------------",
	"Do not edit this file. It is machine generated.",
}

// MarshalI18n renders translated messages as an .i18n.json file: the
// generated-file header followed by the messages, tab-indented, keys sorted.
func MarshalI18n(messages map[string]string) ([]byte, error) {
	out := make(map[string]any, len(messages)+1)
	for k, v := range messages {
		out[k] = v
	}
	out[""] = Header
	return marshal(out)
}

// MarshalNls renders translated messages as a flat .nls.{lang}.json file.
func MarshalNls(messages map[string]string) ([]byte, error) {
	return marshal(messages)
}

// marshal encodes v tab-indented without HTML escaping. encoding/json sorts
// map keys, so "" (the header) always comes first.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "\t")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
