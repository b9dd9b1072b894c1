// Package langmeta provides the shared language registry used by the
// interchange paths: internal folder codes, vendor tags, installer
// metadata and legacy code pages.
package langmeta

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Language describes one translation target.
type Language struct {
	// ID is the internal three-letter folder code, e.g. "kor".
	ID string
	// VendorTag is the code the translation vendor uses, e.g. "zh-hans".
	VendorTag string
	// Tag is the short locale code used in generated file names, e.g. "zh-cn".
	Tag string
	// Name is the English display name written into installer files.
	Name string
	// LCID is the Windows language identifier in Inno Setup notation.
	LCID string
	// CodePage is the legacy Windows code page, e.g. "CP949".
	CodePage string
}

// CodePageNumber returns the code page without its "CP" prefix.
func (l Language) CodePageNumber() string {
	return strings.TrimPrefix(l.CodePage, "CP")
}

// LanguageTag returns the BCP 47 tag for Tag.
func (l Language) LanguageTag() (language.Tag, error) {
	return language.Parse(l.Tag)
}

// Registry maps folder code to language.
var Registry = map[string]Language{
	"chs": {ID: "chs", VendorTag: "zh-hans", Tag: "zh-cn", Name: "Simplified Chinese", LCID: "$0804", CodePage: "CP936"},
	"cht": {ID: "cht", VendorTag: "zh-hant", Tag: "zh-tw", Name: "Traditional Chinese", LCID: "$0404", CodePage: "CP950"},
	"csy": {ID: "csy", VendorTag: "cs-cz", Tag: "cs-cz", Name: "Czech", LCID: "$0405", CodePage: "CP1250"},
	"deu": {ID: "deu", VendorTag: "de", Tag: "de", Name: "German", LCID: "$0407", CodePage: "CP1252"},
	"enu": {ID: "enu", VendorTag: "en", Tag: "en", Name: "English", LCID: "$0409", CodePage: "CP1252"},
	"esn": {ID: "esn", VendorTag: "es", Tag: "es", Name: "Spanish", LCID: "$0C0A", CodePage: "CP1252"},
	"fra": {ID: "fra", VendorTag: "fr", Tag: "fr", Name: "French", LCID: "$040C", CodePage: "CP1252"},
	"hun": {ID: "hun", VendorTag: "hu", Tag: "hu", Name: "Hungarian", LCID: "$040E", CodePage: "CP1250"},
	"ita": {ID: "ita", VendorTag: "it", Tag: "it", Name: "Italian", LCID: "$0410", CodePage: "CP1252"},
	"jpn": {ID: "jpn", VendorTag: "ja", Tag: "ja", Name: "Japanese", LCID: "$0411", CodePage: "CP932"},
	"kor": {ID: "kor", VendorTag: "ko", Tag: "ko", Name: "Korean", LCID: "$0412", CodePage: "CP949"},
	"nld": {ID: "nld", VendorTag: "nl", Tag: "nl", Name: "Dutch", LCID: "$0413", CodePage: "CP1252"},
	"plk": {ID: "plk", VendorTag: "pl", Tag: "pl", Name: "Polish", LCID: "$0415", CodePage: "CP1250"},
	"ptb": {ID: "ptb", VendorTag: "pt-br", Tag: "pt-br", Name: "Portuguese (Brazil)", LCID: "$0416", CodePage: "CP1252"},
	"ptg": {ID: "ptg", VendorTag: "pt", Tag: "pt", Name: "Portuguese (Portugal)", LCID: "$0816", CodePage: "CP1252"},
	"rus": {ID: "rus", VendorTag: "ru", Tag: "ru", Name: "Russian", LCID: "$0419", CodePage: "CP1251"},
	"sve": {ID: "sve", VendorTag: "sv-se", Tag: "sv-se", Name: "Swedish", LCID: "$041D", CodePage: "CP1252"},
	"trk": {ID: "trk", VendorTag: "tr", Tag: "tr", Name: "Turkish", LCID: "$041F", CodePage: "CP1254"},
}

// DefaultLanguages is the shipping language set.
var DefaultLanguages = []string{"cht", "chs", "jpn", "kor", "deu", "fra", "esn", "rus", "ita"}

// ExtraLanguages are built on request only.
var ExtraLanguages = []string{"ptb", "hun", "trk"}

// ErrUnknownLanguage is returned by Lookup.
var ErrUnknownLanguage = errors.New("unknown language")

// Lookup resolves a folder code ("kor"), vendor tag ("zh-hans") or short
// tag ("zh-cn"), case-insensitively, with "_" accepted for "-". A regional
// variant with no entry of its own falls back to its base language.
func Lookup(code string) (Language, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if normalized == "" {
		return Language{}, fmt.Errorf("%w: empty code", ErrUnknownLanguage)
	}
	if l, ok := Registry[normalized]; ok {
		return l, nil
	}
	if l, ok := byTag(normalized); ok {
		return l, nil
	}

	tag, err := language.Parse(normalized)
	if err == nil {
		base, _ := tag.Base()
		if l, ok := byTag(base.String()); ok {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
}

func byTag(tag string) (Language, bool) {
	for _, id := range IDs() {
		l := Registry[id]
		if l.VendorTag == tag || l.Tag == tag {
			return l, true
		}
	}
	return Language{}, false
}

// IDs returns all folder codes in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(Registry))
	for id := range Registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
