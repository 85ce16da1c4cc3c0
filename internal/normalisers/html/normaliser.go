package html

import (
	"bytes"
	"context"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// SupportedExtensions returns the filename extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"html", "htm"}
}

// Normalise converts an HTML page to single-spaced visible text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	root, err := nethtml.Parse(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.NewParseError(domain.ArtifactTypeHTML, raw.Filename, err)
	}

	md := domain.Metadata{}
	if title := findElement(root, atom.Title); title != nil {
		if t := collapse(textOf(title)); t != "" {
			md[domain.MetaTitle] = t
		}
	}
	collectMeta(root, md)

	var content string
	if body := findElement(root, atom.Body); body != nil {
		content = collapse(textOf(body))
	}
	md[domain.MetaWordCount] = domain.WordCount(content)

	return &driven.NormaliseResult{
		Content:  content,
		Type:     domain.ArtifactTypeHTML,
		Metadata: md,
	}, nil
}

// findElement returns the first element of the given kind in document order.
func findElement(n *nethtml.Node, a atom.Atom) *nethtml.Node {
	if n.Type == nethtml.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// textOf concatenates descendant text, space separated, skipping
// script and style content.
func textOf(n *nethtml.Node) string {
	var sb strings.Builder
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		switch n.Type {
		case nethtml.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case nethtml.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// collectMeta copies <meta name|property content> pairs into md.
func collectMeta(n *nethtml.Node, md domain.Metadata) {
	if n.Type == nethtml.ElementNode && n.DataAtom == atom.Meta {
		var name, content string
		for _, a := range n.Attr {
			switch a.Key {
			case "name":
				name = a.Val
			case "property":
				if name == "" {
					name = a.Val
				}
			case "content":
				content = a.Val
			}
		}
		if name != "" && content != "" {
			md[name] = content
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMeta(c, md)
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
