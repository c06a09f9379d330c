// Package ocr turns document bytes into raw text.
//
// Engines are interchangeable behind the Engine interface. The tesseract
// engine shells out to the tesseract CLI (rasterizing PDFs first), the
// textlayer engine reads embedded PDF text, and the auto engine prefers
// the text layer and falls back to tesseract for scanned documents.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Content types an engine may be asked to recognize.
const (
	TypePDF  = "application/pdf"
	TypePNG  = "image/png"
	TypeJPEG = "image/jpeg"
)

var (
	// ErrRecognition is wrapped by every engine failure.
	ErrRecognition = errors.New("text recognition failed")
	// ErrUnsupportedType is returned for content an engine cannot read.
	ErrUnsupportedType = errors.New("unsupported content type")
)

// Engine recognizes text in a document.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, data []byte, contentType, language string) (string, error)
}

// New builds the engine selected by cfg.Engine.
func New(cfg *Config, logger *slog.Logger) (Engine, error) {
	logger = logger.With("system", "ocr")

	switch cfg.Engine {
	case EngineTesseract:
		return NewTesseract(cfg, logger), nil
	case EngineTextLayer:
		return NewTextLayer(), nil
	case EngineAuto:
		return NewAuto(NewTextLayer(), NewTesseract(cfg, logger), cfg.MinTextLength, logger), nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}

// recognitionError wraps err with ErrRecognition. A done context takes
// precedence so deadlines stay matchable with errors.Is.
func recognitionError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrRecognition, ctxErr)
	}
	return fmt.Errorf("%w: %w", ErrRecognition, err)
}
