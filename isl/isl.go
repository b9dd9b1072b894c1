// Package isl implements reading and writing of Inno Setup message files
// (.isl), the INI-style format used by the Windows installer.
//
// Format:
//
//	; comment
//	[LangOptions]
//	LanguageName=English
//	LanguageID=$0409
//	LanguageCodePage=0
//	[Messages]
//	SetupAppTitle=Setup
//	[CustomMessages]
//	AddContextMenuFiles=Add "Open with %1" action to Windows Explorer file context menu
//
// Only [Messages] and [CustomMessages] entries are translatable. The three
// [LangOptions] keys are filled from the language registry when a translated
// file is generated. Translated files are written in the language's legacy
// Windows code page rather than UTF-8.
package isl

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/minios-linux/xlfkit/langmeta"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// SourceFiles are the installer message files collected into the setup
// resource.
var SourceFiles = []string{"Default.isl", "messages.en.isl"}

// DefaultName is the base name of Inno Setup's own message file.
const DefaultName = "Default"

const englishBanner = "; *** Inno Setup version 5.5.3+ English messages ***"

// Locale metadata keys.
const (
	keyLanguageName     = "LanguageName"
	keyLanguageID       = "LanguageID"
	keyLanguageCodePage = "LanguageCodePage"
)

var (
	// ErrBadLine is returned by ParseSource for a message line without "=".
	ErrBadLine = errors.New("badly formatted message")
	// ErrUnencodable is matched by *EncodingError.
	ErrUnencodable = errors.New("character not representable in code page")
	// ErrUnsupportedCodePage is returned for a code page with no encoder.
	ErrUnsupportedCodePage = errors.New("unsupported code page")
)

// EncodingError reports a rune that the target code page cannot encode.
type EncodingError struct {
	CodePage string
	Line     int
	Rune     rune
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("line %d: %q cannot be encoded in %s", e.Line, e.Rune, e.CodePage)
}

func (e *EncodingError) Is(target error) bool { return target == ErrUnencodable }

// ---------------------------------------------------------------------------
// Source side
// ---------------------------------------------------------------------------

// OriginalPath turns a path relative to the repository root into the
// original path recorded in the XLIFF document: separators are normalized
// and everything from the first dot of the base name is dropped.
//
//	build/win32/i18n/messages.en.isl -> build/win32/i18n/messages
func OriginalPath(relPath string) string {
	p := strings.ReplaceAll(relPath, `\`, "/")
	dir, base := path.Split(p)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return dir + base
}

// ParseSource extracts the translatable entries of an English .isl file.
// Entries with an empty key or value are skipped.
func ParseSource(data []byte) (keys, messages []string, err error) {
	inMessages := false
	for i, line := range splitLines(data) {
		if line == "" {
			continue
		}
		switch line[0] {
		case ';':
			continue
		case '[':
			inMessages = line == "[Messages]" || line == "[CustomMessages]"
			continue
		}
		if !inMessages {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, nil, fmt.Errorf("line %d: %w: %s", i+1, ErrBadLine, line)
		}
		if key == "" || value == "" {
			continue
		}
		keys = append(keys, key)
		messages = append(messages, value)
	}
	return keys, messages, nil
}

// ---------------------------------------------------------------------------
// Translated side
// ---------------------------------------------------------------------------

// Output is a generated translated file.
type Output struct {
	// Path is relative: {dir}/{name}.{tag}.isl
	Path string
	Data []byte
}

// TemplatePath returns the English template for an original path:
// Default.isl for Inno Setup's own file, {name}.en.isl otherwise.
func TemplatePath(basePath, originalPath string) string {
	p := filepath.Join(basePath, filepath.FromSlash(originalPath))
	if path.Base(originalPath) == DefaultName {
		return p + ".isl"
	}
	return p + ".en.isl"
}

// Build generates the translated .isl file for originalPath, reading the
// English template from below basePath.
func Build(basePath, originalPath string, messages map[string]string, lang langmeta.Language) (*Output, error) {
	tmpl := TemplatePath(basePath, originalPath)
	data, err := os.ReadFile(tmpl)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", tmpl, err)
	}

	encoded, err := Transcode(data, messages, lang)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w", originalPath, lang.ID, err)
	}

	return &Output{
		Path: fmt.Sprintf("%s.%s.isl", originalPath, lang.Tag),
		Data: encoded,
	}, nil
}

// Transcode walks an English template line by line, substitutes locale
// metadata and translations, and encodes the result in the language's
// code page. Empty lines are dropped; keys without a translation keep
// their English line.
func Transcode(template []byte, messages map[string]string, lang langmeta.Language) ([]byte, error) {
	var out []string
	for _, line := range splitLines(template) {
		if line == "" {
			continue
		}
		switch line[0] {
		case ';', '[':
			if line == englishBanner {
				line = fmt.Sprintf("; *** Inno Setup version 5.5.3+ %s messages ***", lang.Name)
			}
			out = append(out, line)
			continue
		}
		out = append(out, translateLine(line, messages, lang))
	}
	return encode(out, lang.CodePage)
}

func translateLine(line string, messages map[string]string, lang langmeta.Language) string {
	key, _, _ := strings.Cut(line, "=")
	switch key {
	case "":
		return line
	case keyLanguageName:
		return key + "=" + lang.Name
	case keyLanguageID:
		return key + "=" + lang.LCID
	case keyLanguageCodePage:
		return key + "=" + lang.CodePageNumber()
	}
	if msg := messages[key]; msg != "" {
		return key + "=" + msg
	}
	return line
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// splitLines splits UTF-8 text on LF or CRLF, dropping a leading BOM.
func splitLines(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(text, "\n")
}

func codePageEncoding(codePage string) (encoding.Encoding, error) {
	switch strings.ToUpper(codePage) {
	case "CP936":
		return simplifiedchinese.GBK, nil
	case "CP950":
		return traditionalchinese.Big5, nil
	case "CP932":
		return japanese.ShiftJIS, nil
	case "CP949":
		return korean.EUCKR, nil
	case "CP1250":
		return charmap.Windows1250, nil
	case "CP1251":
		return charmap.Windows1251, nil
	case "CP1252":
		return charmap.Windows1252, nil
	case "CP1254":
		return charmap.Windows1254, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodePage, codePage)
}

// encode joins lines with CRLF and encodes them. Lines are encoded one at a
// time so a failure can name the line and rune.
func encode(lines []string, codePage string) ([]byte, error) {
	enc, err := codePageEncoding(codePage)
	if err != nil {
		return nil, err
	}
	encoder := enc.NewEncoder()

	var buf bytes.Buffer
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		b, err := encoder.String(line)
		if err != nil {
			return nil, &EncodingError{CodePage: codePage, Line: i + 1, Rune: firstUnencodable(encoder, line)}
		}
		buf.WriteString(b)
	}
	return buf.Bytes(), nil
}

func firstUnencodable(encoder *encoding.Encoder, line string) rune {
	for _, r := range line {
		if _, err := encoder.String(string(r)); err != nil {
			return r
		}
	}
	return utf8.RuneError
}
