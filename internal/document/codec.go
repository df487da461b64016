// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadJSON decodes a document previously written by WriteJSON or produced by
// an external layout extractor.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WriteJSON encodes doc as indented JSON
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// LoadJSON reads a document from a JSON file
func LoadJSON(path string) (*Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(path)
	}
	if doc.Format == "" {
		doc.Format = FormatJSON
	}
	return doc, nil
}

// Validate checks that every word span lies inside its page text and that
// page indexes follow the page order.
func (d *Document) Validate() error {
	for i, p := range d.Pages {
		if p == nil {
			return fmt.Errorf("page %d is missing", i)
		}
		if p.Index != i {
			return fmt.Errorf("page %d has index %d", i, p.Index)
		}
		for j, w := range p.Words {
			if w.Span.Start < 0 || w.Span.End > len(p.Text) || w.Span.Start > w.Span.End {
				return fmt.Errorf("page %d word %d: span [%d,%d) outside page text", i, j, w.Span.Start, w.Span.End)
			}
		}
	}
	return nil
}

// PlainText returns the page texts separated by form feeds
func (d *Document) PlainText() string {
	texts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\f")
}
