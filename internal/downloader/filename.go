package downloader

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FallbackFilename is used when nothing about the response hints at a name.
const FallbackFilename = "audio.audio"

// Source is what a Resolver may inspect to name a download.
type Source struct {
	// OutputPath is the caller-supplied destination, if any.
	OutputPath string

	// URL is the requested URL.
	URL string

	// ContentDisposition and ContentType are the response headers.
	ContentDisposition string
	ContentType        string
}

// Resolver proposes a filename for src. It reports false when it has no
// usable name.
type Resolver func(Source) (string, bool)

// DefaultResolvers is the resolution order used by Download.
var DefaultResolvers = []Resolver{
	FromOutputPath,
	FromURLPath,
	FromContentDisposition,
	FromContentType,
}

// ResolveFilename returns the name proposed by the first resolver that has
// one, or FallbackFilename.
func ResolveFilename(src Source, resolvers ...Resolver) string {
	for _, r := range resolvers {
		if name, ok := r(src); ok {
			return name
		}
	}
	return FallbackFilename
}

// FromOutputPath uses the caller's output path verbatim.
func FromOutputPath(src Source) (string, bool) {
	return src.OutputPath, src.OutputPath != ""
}

// FromURLPath uses the text after the last slash of the URL path when it
// has an extension. A path ending in a slash yields nothing. The query
// string is ignored.
func FromURLPath(src Source) (string, bool) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return "", false
	}
	name := u.Path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return dotted(name)
}

var dispositionFilename = regexp.MustCompile(`filename="?([^"]+)"?`)

// FromContentDisposition extracts filename=... from the Content-Disposition
// header.
func FromContentDisposition(src Source) (string, bool) {
	m := dispositionFilename.FindStringSubmatch(src.ContentDisposition)
	if m == nil {
		return "", false
	}
	return dotted(baseName(m[1]))
}

// FromContentType maps an audio Content-Type to audio.mp3, audio.wav or
// audio.m4a. Matching is case-sensitive. Anything else yields
// FallbackFilename, so the resolver always succeeds.
func FromContentType(src Source) (string, bool) {
	ct := src.ContentType
	if !strings.Contains(ct, "audio") {
		return FallbackFilename, true
	}
	for _, ext := range []string{"mp3", "wav", "m4a"} {
		if strings.Contains(ct, ext) {
			return "audio." + ext, true
		}
	}
	return FallbackFilename, true
}

func dotted(name string) (string, bool) {
	if name == "" || name == "." || name == "/" || !strings.Contains(name, ".") {
		return "", false
	}
	return name, true
}

// baseName strips any directory part, whichever separator the server used.
func baseName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// truncateName shortens name to at most max bytes, keeping its extension.
// Cuts never split a UTF-8 sequence. A max of zero or less disables
// truncation.
func truncateName(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= max {
		return cutRunes(name, max)
	}
	return cutRunes(name[:len(name)-len(ext)], max-len(ext)) + ext
}

// cutRunes returns the longest prefix of s that is at most n bytes and ends
// on a rune boundary.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
