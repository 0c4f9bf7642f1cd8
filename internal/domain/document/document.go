package document

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/reag/internal/domain/metadata"
)

// Document is a candidate source for reasoning (immutable value object).
type Document struct {
	name     string
	content  string
	metadata metadata.Map
}

// New validates and creates a Document. Metadata is copied, so later changes
// to md are not observed by the document. Empty content is allowed.
func New(name, content string, md metadata.Map) (Document, error) {
	if strings.TrimSpace(name) == "" {
		return Document{}, fmt.Errorf("document name is required")
	}
	if err := md.Validate(); err != nil {
		return Document{}, fmt.Errorf("document %q: %w", name, err)
	}
	return Document{name: name, content: content, metadata: md.Clone()}, nil
}

// Name returns the human-readable label.
func (d Document) Name() string { return d.name }

// Content returns the text the engine reasons over.
func (d Document) Content() string { return d.content }

// Metadata returns a copy of the metadata fields.
func (d Document) Metadata() metadata.Map { return d.metadata.Clone() }

// Lookup returns a single metadata value without copying the map.
func (d Document) Lookup(key string) (metadata.Value, bool) {
	return d.metadata.Get(key)
}

// Len returns the number of metadata fields.
func (d Document) Len() int { return len(d.metadata) }
