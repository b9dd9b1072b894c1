// Package xliff implements the XLIFF 1.2 documents exchanged with the
// translation vendor.
//
// A Document is built from extracted keys and English messages, grouped by
// the original source file they came from:
//
//	<?xml version="1.0" encoding="utf-8"?>
//	<xliff version="1.2" xmlns="urn:oasis:names:tc:xliff:document:1.2">
//	  <file original="src/vs/base/common/errors" source-language="en" datatype="plaintext"><body>
//	    <trans-unit id="stackTrace.format">
//	      <source xml:lang="en">{0}: {1}</source>
//	      <note>{0} is the message</note>
//	    </trans-unit>
//	  </body></file>
//	</xliff>
//
// The vendor sends the same document back with <target> elements and a
// target-language attribute on every <file>; Parse turns it into one
// ParsedFile per <file>.
package xliff

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// Key is a localization key as produced by the extractor: either a plain
// string id or an object carrying developer comments.
//
//	"greeting"
//	{"key": "greeting", "comment": ["shown on the welcome page"]}
type Key struct {
	Key     string
	Comment []string
}

// UnmarshalJSON accepts both the plain string and the object form.
func (k *Key) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = Key{Key: s}
		return nil
	}

	var info struct {
		Key     *string  `json:"key"`
		Comment []string `json:"comment"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("decoding localize key: %w", err)
	}
	if info.Key == nil {
		return errors.New("decoding localize key: missing \"key\" field")
	}
	*k = Key{Key: *info.Key, Comment: info.Comment}
	return nil
}

// Keys wraps plain string ids.
func Keys(ids ...string) []Key {
	keys := make([]Key, len(ids))
	for i, id := range ids {
		keys[i] = Key{Key: id}
	}
	return keys
}

// Item is a single trans-unit. Message and Comment are stored
// entity-escaped, ready to be written into the document.
type Item struct {
	ID      string
	Message string
	Comment string
}

// Text returns the unescaped message.
func (it Item) Text() string { return Unescape(it.Message) }

// Document is an XLIFF document under construction.
type Document struct {
	project string
	// order holds original file paths in insertion order.
	order []string
	files map[string][]Item

	numberOfMessages int
}

// New returns an empty document for the given vendor project.
func New(project string) *Document {
	return &Document{
		project: project,
		files:   make(map[string][]Item),
	}
}

// Project returns the vendor project the document belongs to.
func (d *Document) Project() string { return d.project }

// Files returns the original file paths in insertion order.
func (d *Document) Files() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Items returns the items recorded for an original file path.
func (d *Document) Items(original string) []Item {
	return d.files[original]
}

// NumberOfMessages returns the number of keys passed to AddFile so far.
func (d *Document) NumberOfMessages() int { return d.numberOfMessages }

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrLengthMismatch is matched by *LengthMismatchError.
	ErrLengthMismatch = errors.New("keys and messages differ in length")
	// ErrEmptyItem is returned by Marshal for an item without id or message.
	ErrEmptyItem = errors.New("trans-unit without id or message")
)

// LengthMismatchError reports keys and messages of different length passed
// to AddFile. The file is still added using the shorter length.
type LengthMismatchError struct {
	Original string
	Keys     int
	Messages int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: unmatching keys(%d) and messages(%d)", e.Original, e.Keys, e.Messages)
}

func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }

// ---------------------------------------------------------------------------
// Building
// ---------------------------------------------------------------------------

// AddFile records the items of one original source file. keys and messages
// are parallel slices. Duplicate ids keep their first occurrence and keys
// with an empty id are skipped. Adding the same path twice replaces the
// earlier items in place.
//
// When the slices differ in length the file is added up to the shorter
// length and a *LengthMismatchError is returned; callers should report it
// and carry on.
func (d *Document) AddFile(original string, keys []Key, messages []string) error {
	if len(keys) == 0 {
		return nil
	}

	n := min(len(keys), len(messages))
	items := make([]Item, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		key := keys[i]
		if key.Key == "" || seen[key.Key] {
			continue
		}
		seen[key.Key] = true

		item := Item{ID: key.Key, Message: Escape(messages[i])}
		if len(key.Comment) > 0 {
			comments := make([]string, len(key.Comment))
			for j, c := range key.Comment {
				comments[j] = Escape(c)
			}
			item.Comment = strings.Join(comments, "\r\n")
		}
		items = append(items, item)
	}

	if _, ok := d.files[original]; !ok {
		d.order = append(d.order, original)
	}
	d.files[original] = items
	d.numberOfMessages += len(keys)

	if len(keys) != len(messages) {
		return &LengthMismatchError{Original: original, Keys: len(keys), Messages: len(messages)}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serializes the document. Lines are joined with CRLF.
func (d *Document) Marshal() ([]byte, error) {
	var lines []string
	add := func(indent int, s string) {
		lines = append(lines, strings.Repeat(" ", indent)+s)
	}

	add(0, `<?xml version="1.0" encoding="utf-8"?>`)
	add(0, `<xliff version="1.2" xmlns="urn:oasis:names:tc:xliff:document:1.2">`)
	for _, original := range d.order {
		add(2, fmt.Sprintf(`<file original="%s" source-language="en" datatype="plaintext"><body>`, Escape(original)))
		for _, item := range d.files[original] {
			if item.ID == "" || item.Message == "" {
				return nil, fmt.Errorf("%s: %w (id %q)", original, ErrEmptyItem, item.ID)
			}
			add(4, fmt.Sprintf(`<trans-unit id="%s">`, Escape(item.ID)))
			add(6, `<source xml:lang="en">`+item.Message+`</source>`)
			if item.Comment != "" {
				add(6, `<note>`+item.Comment+`</note>`)
			}
			add(4, `</trans-unit>`)
		}
		add(2, `</body></file>`)
	}
	add(0, `</xliff>`)

	return []byte(strings.Join(lines, "\r\n")), nil
}
