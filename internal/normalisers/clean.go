package normalisers

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\r\v]+`)
	spacedNewline   = regexp.MustCompile(` *\n *`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalises whitespace and strips non-printable runes.
// Form feeds survive as page breaks and blank-line runs collapse to
// one paragraph break.
func CleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\f' || r == '\t':
			return r
		case r == unicode.ReplacementChar:
			return -1
		case !unicode.IsPrint(r) && !unicode.IsSpace(r):
			return -1
		}
		return r
	}, text)

	text = horizontalSpace.ReplaceAllString(text, " ")
	text = spacedNewline.ReplaceAllString(text, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")

	pages := strings.Split(text, "\f")
	for i, p := range pages {
		pages[i] = strings.TrimSpace(p)
	}
	return strings.Join(pages, "\f")
}

// TitleFromURI derives a readable title from a file name.
func TitleFromURI(uri string) string {
	name := filepath.Base(uri)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// Title returns the caller-supplied title metadata or one derived from uri.
func Title(metadata map[string]string, uri string) string {
	if t := strings.TrimSpace(metadata["title"]); t != "" {
		return t
	}
	return TitleFromURI(uri)
}
