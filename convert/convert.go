// Package convert provides the value converters and line post-processors a
// crosswalk can be configured with.
//
// A converter rewrites every metadata value before it is substituted into a
// template line. A post-processor rewrites the whole rendered line list once,
// before it is written.
package convert

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Func converts one metadata value.
type Func func(string) string

// Chain composes converters left to right. Nil entries are skipped.
func Chain(fns ...Func) Func {
	var active []Func
	for _, fn := range fns {
		if fn != nil {
			active = append(active, fn)
		}
	}
	if len(active) == 0 {
		return nil
	}
	if len(active) == 1 {
		return active[0]
	}
	return func(s string) string {
		for _, fn := range active {
			s = fn(s)
		}
		return s
	}
}

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy

	ugcOnce   sync.Once
	ugcPolicy *bluemonday.Policy
)

func strictSanitizer() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

func ugcSanitizer() *bluemonday.Policy {
	ugcOnce.Do(func() {
		ugcPolicy = bluemonday.UGCPolicy()
	})
	return ugcPolicy
}

// StripHTML removes every tag and returns plain text.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(strictSanitizer().Sanitize(s))
}

// SanitizeHTML keeps safe formatting markup and drops the rest.
func SanitizeHTML(s string) string {
	return ugcSanitizer().Sanitize(s)
}

// NFC normalizes to Unicode composed form.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// ASCIIFold strips diacritics (Müller → Muller).
func ASCIIFold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// EscapeXML escapes markup characters.
func EscapeXML(s string) string {
	return html.EscapeString(s)
}

// Title title-cases every word.
func Title(s string) string {
	return cases.Title(language.Und).String(s)
}

// Upper upper-cases s.
func Upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// Lower lower-cases s.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// CollapseSpace replaces every run of whitespace, line breaks included, by a
// single space and trims the result.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var bibtexReplacer = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
)

// EscapeBibtex escapes characters special to BibTeX.
func EscapeBibtex(s string) string {
	return bibtexReplacer.Replace(s)
}

var converters = map[string]Func{
	"strip-html":    StripHTML,
	"sanitize-html": SanitizeHTML,
	"nfc":           NFC,
	"ascii":         ASCIIFold,
	"xml":           EscapeXML,
	"bibtex":        EscapeBibtex,
	"trim":          strings.TrimSpace,
	"whitespace":    CollapseSpace,
	"title":         Title,
	"upper":         Upper,
	"lower":         Lower,
}

// Lookup returns a named converter.
func Lookup(name string) (Func, error) {
	fn, ok := converters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown converter: %s", name)
	}
	return fn, nil
}

// Build chains the named converters. No names yields nil.
func Build(names []string) (Func, error) {
	fns := make([]Func, 0, len(names))
	for _, name := range names {
		fn, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return Chain(fns...), nil
}

// Names returns the converter names, sorted.
func Names() []string {
	names := make([]string, 0, len(converters))
	for name := range converters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
