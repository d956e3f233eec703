// Package textutil holds text helpers shared by the store and the CLI:
// accent-insensitive matching and the user name placeholder of scripts.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Placeholder is the token scripts use for the attendant's name.
const Placeholder = "[nome]"

// Fold lowercases s and strips diacritics so "Exame Cardíaco" matches
// "exame cardiaco".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Contains reports whether term occurs in any of fields, ignoring case and
// accents. An empty term matches nothing.
func Contains(term string, fields ...string) bool {
	needle := strings.TrimSpace(Fold(term))
	if needle == "" {
		return false
	}
	for _, f := range fields {
		if strings.Contains(Fold(f), needle) {
			return true
		}
	}
	return false
}

var nameRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)meu nome (é|e) \[nome\]`), "meu nome é %s"},
	{regexp.MustCompile(`(?i)me chamo \[nome\]`), "me chamo %s"},
	{regexp.MustCompile(`(?i)sou \[nome\]`), "sou %s"},
	{regexp.MustCompile(`(?i)\[nome\]`), "%s"},
}

// ReplaceUserName fills the [nome] placeholder of a script with name. A blank
// name leaves the content unchanged.
func ReplaceUserName(content, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return content
	}
	for _, rule := range nameRules {
		repl := strings.ReplaceAll(rule.repl, "%s", name)
		content = rule.re.ReplaceAllLiteralString(content, repl)
	}
	return content
}
