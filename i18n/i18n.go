// Package i18n translates xlfkit's own command-line messages.
//
// It wraps the gotext library behind two functions, T and N, used for every
// user-facing string the CLI prints. Catalogs are gettext .po files embedded
// in the binary and loaded once at startup by Init. The vendor XLIFF and
// translated JSON that xlfkit produces are never passed through here.
//
// Usage:
//
//	import "github.com/minios-linux/xlfkit/i18n"
//
//	func main() {
//	    i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	    fmt.Println(i18n.T("stalled"))
//	    fmt.Printf(i18n.N("Read %d file", "Read %d files", n), n)
//	}
//
// Untranslated strings pass through unchanged, so T and N are safe to call
// before Init.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the translation catalogs.
// Directory structure: locales/{lang}/LC_MESSAGES/xlfkit.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain of the CLI messages.
const domain = "xlfkit"

// po is the loaded catalog. Nil until Init runs.
var po *gotext.Locale

// active is the language passed to gotext by the last Init.
var active string

// Init loads the catalog for lang. If lang is empty it is detected from
// LANGUAGE, LC_ALL, LC_MESSAGES and LANG, in that order, as GNU gettext
// does.
//
// Init should be called once, before the command tree prints anything.
// A language without an embedded catalog is not an error: every message
// then falls back to English.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	active = lang
}

// Language returns the language selected by the last Init, or "" before
// Init.
func Language() string {
	return active
}

// T translates msgid. Without a translation msgid is returned as is.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms. Before Init the singular is
// used for n == 1 and the plural otherwise; after Init the catalog's plural
// formula decides.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage reads the locale environment the way GNU gettext does.
// LANGUAGE is a colon-separated preference list; its first entry with an
// embedded catalog wins, and when none has one the first entry is kept.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}

		candidates := []string{val}
		if env == "LANGUAGE" {
			candidates = strings.Split(val, ":")
		}

		var first string
		for _, c := range candidates {
			c = normalize(c)
			if c == "" {
				continue
			}
			if first == "" {
				first = c
			}
			if env != "LANGUAGE" || hasCatalog(c) {
				return c
			}
		}
		if first != "" {
			return first
		}
	}
	return "en"
}

// normalize strips the encoding and modifier of a locale name:
// "sr_RS.UTF-8@latin" becomes "sr_RS". C and POSIX mean no translation and
// yield "".
func normalize(val string) string {
	val, _, _ = strings.Cut(val, ".")
	val, _, _ = strings.Cut(val, "@")
	if val == "C" || val == "POSIX" {
		return ""
	}
	return val
}

// hasCatalog reports whether a catalog is embedded for lang or for its
// language part ("ru" for "ru_RU"), matching gotext's own lookup.
func hasCatalog(lang string) bool {
	for _, l := range []string{lang, strings.SplitN(lang, "_", 2)[0]} {
		if _, err := fs.Stat(locales, "locales/"+l+"/LC_MESSAGES/"+domain+".po"); err == nil {
			return true
		}
	}
	return false
}
