package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/normalisers/docx"
	"github.com/custodia-labs/kacey/internal/normalisers/html"
	"github.com/custodia-labs/kacey/internal/normalisers/markdown"
	"github.com/custodia-labs/kacey/internal/normalisers/pdf"
	"github.com/custodia-labs/kacey/internal/normalisers/plaintext"
	"github.com/custodia-labs/kacey/internal/normalisers/spreadsheet"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry routes raw documents to normalisers.
// Lookups try the MIME type first and then the filename extension.
// A later registration for the same key replaces the earlier one.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string]driven.Normaliser
	byExt  map[string]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIME: make(map[string]driven.Normaliser),
		byExt:  make(map[string]driven.Normaliser),
	}
}

// NewDefaultRegistry creates a registry with every built-in normaliser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(spreadsheet.New())
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(plaintext.New())
	return r
}

// Register adds a normaliser under all of its MIME types and extensions.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mt := range n.SupportedMIMETypes() {
		r.byMIME[baseMIMEType(mt)] = n
	}
	for _, ext := range n.SupportedExtensions() {
		r.byExt[strings.ToLower(strings.TrimPrefix(ext, "."))] = n
	}
}

// Lookup returns the normaliser for a MIME type and filename, or nil.
func (r *Registry) Lookup(mimeType, filename string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n, ok := r.byMIME[baseMIMEType(mimeType)]; ok {
		return n
	}
	if n, ok := r.byExt[domain.FileExtension(filename)]; ok {
		return n
	}
	return nil
}

// Normalise transforms a raw document using the matching normaliser.
// The result always carries a valid type and a wordCount.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	n := r.Lookup(raw.MIMEType, raw.Filename)
	if n == nil {
		return nil, fmt.Errorf("%w: mime type %q, file %q", domain.ErrUnsupportedFormat, raw.MIMEType, raw.Filename)
	}

	result, err := n.Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}

	if !result.Type.IsValid() {
		result.Type = domain.ArtifactTypeFor(raw.MIMEType, raw.Filename)
	}
	if result.Metadata == nil {
		result.Metadata = domain.Metadata{}
	}
	if _, ok := result.Metadata[domain.MetaWordCount]; !ok {
		result.Metadata[domain.MetaWordCount] = domain.WordCount(result.Content)
	}
	return result, nil
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mt := range r.byMIME {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// SupportedExtensions returns all registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// baseMIMEType strips parameters such as "; charset=utf-8".
func baseMIMEType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
