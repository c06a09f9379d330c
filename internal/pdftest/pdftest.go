// Package pdftest builds minimal single-page PDFs with a text layer for
// tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// New returns a PDF whose only page shows lines top to bottom.
func New(lines ...string) []byte {
	return build(lines, 0)
}

// Sized returns a PDF showing lines whose total length is exactly size
// bytes. An unreferenced stream object carries the padding. Sizes smaller
// than the unpadded document are not reachable and yield the smallest
// padded document.
func Sized(size int, lines ...string) []byte {
	pad := 0
	for range 8 {
		doc := build(lines, pad)
		diff := size - len(doc)
		if diff == 0 {
			return doc
		}
		pad = max(pad+diff, 1)
	}
	return build(lines, pad)
}

func build(lines []string, pad int) []byte {
	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj\nT*\n", escape(line))
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		stream(content.String()),
	}
	if pad > 0 {
		objects = append(objects, stream(strings.Repeat("x", pad)))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func stream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}
