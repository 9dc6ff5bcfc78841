package gen

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// acronyms are kept upper-case in Pascal and camel names.
var acronyms = map[string]struct{}{
	"ACL": {}, "API": {}, "ASCII": {}, "CPU": {}, "CSS": {}, "DNS": {}, "EOF": {},
	"GUID": {}, "HTML": {}, "HTTP": {}, "HTTPS": {}, "ID": {}, "IP": {}, "JSON": {},
	"RPC": {}, "SLA": {}, "SMTP": {}, "SQL": {}, "SSH": {}, "TCP": {}, "TLS": {},
	"TTL": {}, "UDP": {}, "UI": {}, "UID": {}, "URI": {}, "URL": {}, "UTF8": {},
	"UUID": {}, "VM": {}, "XML": {}, "XSRF": {}, "XSS": {},
}

// Snake converts a name to lower_snake_case, the convention of every
// storage identifier.
//
//	Username        => username
//	FullName        => full_name
//	HTTPCode        => http_code
//	UserIDs         => user_ids
func Snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is
		// upper-case, and previous is lower-case ("UserInfo"), or next letter
		// is lower-case and previous is a letter ("HTTPCode").
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Pascal converts a snake or kebab name to PascalCase.
//
//	user_info => UserInfo
//	user_id   => UserID
func Pascal(s string) string {
	return pascalWords(strings.FieldsFunc(s, isSeparator))
}

// Camel converts a name of any case to camelCase, the convention of every
// query/API identifier.
//
//	user_info => userInfo
//	GetUser   => getUser
//	author_id => authorID
func Camel(s string) string {
	words := strings.FieldsFunc(Snake(s), isSeparator)
	if len(words) == 0 {
		return ""
	}
	return strings.ToLower(words[0]) + pascalWords(words[1:])
}

// TypeName converts a name of any case to an exported type name.
func TypeName(s string) string {
	return Pascal(Snake(s))
}

func pascalWords(words []string) string {
	title := cases.Title(language.Und, cases.NoLower)
	for i, w := range words {
		upper := strings.ToUpper(w)
		if _, ok := acronyms[upper]; ok {
			words[i] = upper
		} else {
			words[i] = title.String(w)
		}
	}
	return strings.Join(words, "")
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || unicode.IsSpace(r)
}

// Plural returns the plural form of a snake-case name, pluralizing its last
// word only.
func Plural(s string) string {
	i := strings.LastIndexByte(s, '_')
	return s[:i+1] + inflect.Pluralize(s[i+1:])
}

// Singular returns the singular form of a name.
func Singular(s string) string {
	return inflect.Singularize(s)
}

// Receiver returns the receiver name of a type name.
//
//	User       => u
//	UserQuery  => uq
//	HTTPClient => hc
func Receiver(s string) string {
	s = strings.TrimLeft(s, "*[]0123456789")
	parts := strings.Split(Snake(s), "_")
	var b strings.Builder
	for _, p := range parts {
		if p != "" {
			b.WriteByte(p[0])
		}
	}
	if b.Len() == 0 {
		return "x"
	}
	return b.String()
}
