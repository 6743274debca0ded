package exporter

import (
	"net/url"
	"strings"

	"github.com/starford/semwiki/internal/dataitem"
)

// uriEscaper uses '-' as the escape marker, so '-' itself is always
// escaped. A remaining '%' from percent-encoding becomes '-', turning %C3
// into -C3.
var uriEscaper = strings.NewReplacer(
	"-", "-2D",
	":", "-3A",
	`"`, "-22",
	"#", "-23",
	"&", "-26",
	"'", "-27",
	"+", "-2B",
	"!", "-21",
	"%", "-",
)

// EncodeURI escapes s for use in a URI local name. It is total and
// leaves strings without reserved characters unchanged.
func EncodeURI(s string) string {
	return uriEscaper.Replace(s)
}

// EncodePage returns the local name of a page in the wiki namespace: the
// interwiki prefix, the namespace prefix and the dbkey, URL-encoded and
// then escaped with EncodeURI.
func EncodePage(page dataitem.WikiPage) string {
	var b strings.Builder
	if iw := page.Interwiki(); iw != "" {
		b.WriteString(iw)
		b.WriteByte(':')
	}
	if name := dataitem.NamespaceName(page.Namespace()); name != "" {
		b.WriteString(name)
		b.WriteByte(':')
	}
	b.WriteString(page.DBKey())
	return EncodeURI(wikiURLEncode(strings.ReplaceAll(b.String(), " ", "_")))
}

var wikiUnescaper = strings.NewReplacer(
	"%3B", ";", "%40", "@", "%24", "$", "%21", "!", "%2A", "*",
	"%28", "(", "%29", ")", "%2C", ",", "%2F", "/", "%7E", "~", "%3A", ":",
)

// wikiURLEncode is form encoding with the characters that are safe in
// wiki links left readable.
func wikiURLEncode(s string) string {
	return wikiUnescaper.Replace(url.QueryEscape(s))
}

// rawURLEncode percent-encodes everything except unreserved characters.
func rawURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
