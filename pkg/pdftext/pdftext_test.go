package pdftext

import (
	"bytes"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePDF(t *testing.T, lines ...string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Arial", "", 12)
	for _, line := range lines {
		doc.Cell(80, 10, line)
		doc.Ln(12)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	content := samplePDF(t, "Juan Dela Cruz", "123456789012")

	text, err := Extract(content)
	require.NoError(t, err)
	assert.Contains(t, text, "Juan")
	assert.Contains(t, text, "123456789012")
}

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := Extract([]byte("just some text"))
	assert.Error(t, err)
}
