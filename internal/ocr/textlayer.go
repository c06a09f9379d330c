package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the text embedded in a PDF. It performs no image
// recognition and returns empty text for scanned documents.
type TextLayer struct{}

func NewTextLayer() *TextLayer {
	return &TextLayer{}
}

func (TextLayer) Name() string { return EngineTextLayer }

func (TextLayer) Recognize(ctx context.Context, data []byte, contentType, _ string) (text string, err error) {
	if contentType != TypePDF {
		return "", fmt.Errorf("%w: %w: %s", ErrRecognition, ErrUnsupportedType, contentType)
	}

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", ErrRecognition, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", ErrRecognition, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", recognitionError(ctx, err)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %w", ErrRecognition, i, err)
		}

		if b.Len() > 0 && pageText != "" {
			b.WriteByte('\n')
		}
		b.WriteString(pageText)
	}

	return strings.TrimSpace(b.String()), nil
}
