package ocr

import (
	"context"
	"log/slog"
	"unicode"
)

// Auto reads the PDF text layer first and falls back to image recognition
// when it yields fewer than minLength non-space characters. Images always
// go to the fallback.
type Auto struct {
	text      Engine
	fallback  Engine
	minLength int
	logger    *slog.Logger
}

func NewAuto(text, fallback Engine, minLength int, logger *slog.Logger) *Auto {
	return &Auto{
		text:      text,
		fallback:  fallback,
		minLength: minLength,
		logger:    logger.With("engine", EngineAuto),
	}
}

func (a *Auto) Name() string { return EngineAuto }

func (a *Auto) Recognize(ctx context.Context, data []byte, contentType, language string) (string, error) {
	if contentType != TypePDF {
		return a.fallback.Recognize(ctx, data, contentType, language)
	}

	text, err := a.text.Recognize(ctx, data, contentType, language)
	if err == nil && visibleLength(text) >= a.minLength {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", recognitionError(ctx, ctx.Err())
	}

	a.logger.DebugContext(ctx, "text layer insufficient, falling back",
		"fallback", a.fallback.Name(),
		"text_length", len(text),
		"error", err,
	)
	return a.fallback.Recognize(ctx, data, contentType, language)
}

func visibleLength(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
