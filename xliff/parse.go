package xliff

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
)

// ParsedFile holds the translations of one <file> node.
type ParsedFile struct {
	// Messages maps trans-unit id to the translated text.
	Messages map[string]string
	// OriginalFilePath is the file's original attribute.
	OriginalFilePath string
	// Language is the lower-cased target-language attribute.
	Language string
}

// Parse failures. Every error returned by Parse is a *ParseError wrapping
// one of these.
var (
	ErrMalformed       = errors.New("malformed XML")
	ErrNoFiles         = errors.New(`document has no "xliff" or "file" nodes`)
	ErrMissingOriginal = errors.New(`file node has no "original" attribute`)
	ErrMissingLanguage = errors.New(`file node has no "target-language" attribute`)
	ErrIncompleteUnit  = errors.New("trans-unit without id or target text")
	ErrUnsafeOriginal  = errors.New(`"original" attribute is absolute or leaves the tree`)
)

// ParseError is returned by Parse. File is the original path of the
// offending <file> node when known.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("XLF parsing error: %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("XLF parsing error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// XML schema (only what the import side reads)
// ---------------------------------------------------------------------------

type xmlDocument struct {
	XMLName xml.Name
	Files   []xmlFile `xml:"file"`
}

type xmlFile struct {
	Original       string   `xml:"original,attr"`
	TargetLanguage string   `xml:"target-language,attr"`
	Body           *xmlBody `xml:"body"`
}

type xmlBody struct {
	Units []xmlUnit `xml:"trans-unit"`
}

type xmlUnit struct {
	ID     string     `xml:"id,attr"`
	Target *xmlTarget `xml:"target"`
}

type xmlTarget struct {
	Text string `xml:",chardata"`
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a translated XLIFF file.
func ParseFile(path string) ([]ParsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a translated XLIFF document. The result has one entry per
// <file> node that contains trans-units; units without a <target> are
// skipped as not yet translated. Parsing is all or nothing: on error no
// files are returned.
func Parse(data []byte) ([]ParsedFile, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	if doc.XMLName.Local != "xliff" || len(doc.Files) == 0 {
		return nil, &ParseError{Err: ErrNoFiles}
	}

	var files []ParsedFile
	for _, f := range doc.Files {
		if f.Original == "" {
			return nil, &ParseError{Err: ErrMissingOriginal}
		}
		if !relativeOriginal(f.Original) {
			return nil, &ParseError{File: f.Original, Err: ErrUnsafeOriginal}
		}
		if f.TargetLanguage == "" {
			return nil, &ParseError{File: f.Original, Err: ErrMissingLanguage}
		}

		var units []xmlUnit
		if f.Body != nil {
			units = f.Body.Units
		}
		messages := make(map[string]string, len(units))
		for _, unit := range units {
			if unit.Target == nil {
				continue
			}
			if unit.ID == "" || unit.Target.Text == "" {
				return nil, &ParseError{File: f.Original, Err: fmt.Errorf("%w (id %q)", ErrIncompleteUnit, unit.ID)}
			}
			messages[unit.ID] = unit.Target.Text
		}

		files = append(files, ParsedFile{
			Messages:         messages,
			OriginalFilePath: f.Original,
			Language:         strings.ToLower(f.TargetLanguage),
		})
	}

	return files, nil
}

// relativeOriginal reports whether original stays below the directory it is
// resolved against. Both slash styles and drive letters are rejected.
func relativeOriginal(original string) bool {
	p := strings.ReplaceAll(original, `\`, "/")
	if path.IsAbs(p) || (len(p) >= 2 && p[1] == ':') {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
