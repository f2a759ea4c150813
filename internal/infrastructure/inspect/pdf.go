// Package inspect reads metadata from uploaded attachments.
package inspect

import (
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
)

// ErrUnreadableDocument is returned for content MuPDF cannot open
var ErrUnreadableDocument = errors.New("document cannot be read")

// PDFInspector opens documents with MuPDF to validate them and count pages
type PDFInspector struct {
	logger *zap.Logger
}

// NewPDFInspector creates a new PDFInspector
func NewPDFInspector(logger *zap.Logger) *PDFInspector {
	return &PDFInspector{logger: logger}
}

// PageCount returns the number of pages of a PDF document
func (i *PDFInspector) PageCount(content []byte) (int, error) {
	if len(content) == 0 {
		return 0, fmt.Errorf("%w: empty content", ErrUnreadableDocument)
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		i.logger.Debug("Failed to open document", zap.Int("size", len(content)), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrUnreadableDocument)
	}
	return pages, nil
}

var _ port.DocumentInspector = (*PDFInspector)(nil)
