package markdown

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips Markdown syntax down to prose. Fenced code keeps its
// body so code samples stay searchable.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrInvalidInput, raw.URI)
	}

	source := string(raw.Content)
	title := strings.TrimSpace(raw.Metadata["title"])
	if title == "" {
		title = headingTitle(source)
	}
	if title == "" {
		title = normalisers.TitleFromURI(raw.URI)
	}

	doc := &domain.Document{
		ID:        raw.ID,
		URI:       raw.URI,
		Title:     title,
		Content:   normalisers.CleanText(Strip(source)),
		Namespace: raw.Namespace,
		Metadata:  maps.Clone(raw.Metadata),
		CreatedAt: time.Now(),
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	doc.Metadata[domain.MetaMIMEType] = raw.MIMEType
	return doc, nil
}

var (
	frontMatter  = regexp.MustCompile("(?s)\\A---\n.*?\n---\n")
	fences       = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|_)([^\s*_][^*_]*?)(\*\*|__|\*|_)`)
	blockquotes  = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	rules        = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	bullets      = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numbered     = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`)
	tableBorders = regexp.MustCompile(`(?m)^[ \t]*\|?([ \t]*:?-+:?[ \t]*\|)+[ \t]*$`)
	firstHeading = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)
)

// Strip removes Markdown formatting and keeps the readable text.
func Strip(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = frontMatter.ReplaceAllString(content, "")
	content = fences.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = tableBorders.ReplaceAllString(content, "")
	content = rules.ReplaceAllString(content, "")
	content = headings.ReplaceAllString(content, "")
	content = blockquotes.ReplaceAllString(content, "")
	content = bullets.ReplaceAllString(content, "")
	content = numbered.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	return strings.TrimSpace(content)
}

func headingTitle(content string) string {
	if m := firstHeading.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(strings.Trim(m[1], "# "))
	}
	return ""
}
