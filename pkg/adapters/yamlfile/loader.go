// Package yamlfile loads a state tree from a single YAML document on
// disk. Because YAML is a superset of JSON, plain JSON documents work
// too. The document format is defined by pkg/schema; resolve specs can
// reference Go provider functions by name through a schema.ProviderLookup
// (typically a *registry.Registry).
package yamlfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/switchback/pkg/schema"
	"github.com/aretw0/switchback/pkg/state"
)

// Loader reads, validates and converts a tree document file.
// It implements ports.TreeLoader and ports.Watchable.
type Loader struct {
	path   string
	lookup schema.ProviderLookup
}

// Option customizes the loader.
type Option func(*Loader)

// WithProviders supplies the lookup used to bind resolve specs that
// reference providers by name. Documents without provider references
// load fine without one.
func WithProviders(lookup schema.ProviderLookup) Option {
	return func(l *Loader) {
		l.lookup = lookup
	}
}

// New creates a loader for the document at path. The file is not
// touched until Load is called, so a loader can be constructed before
// the file exists.
func New(path string, opts ...Option) *Loader {
	l := &Loader{path: filepath.Clean(path)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the cleaned document path the loader reads from.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the document, validates it and converts it into state
// definitions. Validation failures come back as a schema.AggregateError
// carrying every problem found, not just the first.
func (l *Loader) Load(ctx context.Context) ([]state.State, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read tree document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, err
	}
	return doc.States(l.lookup)
}

// Parse decodes a tree document from raw YAML or JSON bytes. Unknown
// keys are rejected so typos surface as parse errors instead of
// silently dropped fields.
func Parse(data []byte) (*schema.Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc schema.Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty tree document")
		}
		return nil, fmt.Errorf("decode tree document: %w", err)
	}
	return &doc, nil
}
