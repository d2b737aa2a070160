package services

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

type PDFMetadata struct {
	Title   string
	Author  string
	Subject string
}

type Merger interface {
	// Merge concatenates docs in slice order and stamps metadata.
	Merge(docs [][]byte, meta PDFMetadata) ([]byte, error)
}

type pdfMerger struct {
	conf *model.Configuration
}

func NewPDFMerger() Merger {
	return &pdfMerger{conf: model.NewDefaultConfiguration()}
}

// Merge implements Merger.
func (m *pdfMerger) Merge(docs [][]byte, meta PDFMetadata) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}

	var merged bytes.Buffer
	if err := api.MergeRaw(readers, &merged, false, m.conf); err != nil {
		return nil, fmt.Errorf("failed to merge PDFs: %w", err)
	}

	props := map[string]string{}
	if meta.Title != "" {
		props["Title"] = meta.Title
	}
	if meta.Author != "" {
		props["Author"] = meta.Author
	}
	if meta.Subject != "" {
		props["Subject"] = meta.Subject
	}
	if len(props) == 0 {
		return merged.Bytes(), nil
	}

	var out bytes.Buffer
	if err := api.AddProperties(bytes.NewReader(merged.Bytes()), &out, props, m.conf); err != nil {
		return nil, fmt.Errorf("failed to write PDF metadata: %w", err)
	}
	return out.Bytes(), nil
}
