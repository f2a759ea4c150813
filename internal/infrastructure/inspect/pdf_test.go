package inspect

import (
	"bytes"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, "Task attachment")
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestPDFInspector_PageCount(t *testing.T) {
	inspector := NewPDFInspector(zap.NewNop())

	n, err := inspector.PageCount(buildPDF(t, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPDFInspector_RejectsUnreadable(t *testing.T) {
	inspector := NewPDFInspector(zap.NewNop())

	_, err := inspector.PageCount(nil)
	assert.ErrorIs(t, err, ErrUnreadableDocument)

	_, err = inspector.PageCount([]byte("definitely not a pdf"))
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}
