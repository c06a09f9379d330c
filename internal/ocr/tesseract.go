package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
	"golang.org/x/sync/errgroup"
)

const (
	sourcePDF = "source.pdf"
	waitDelay = time.Second
)

// Tesseract runs the tesseract CLI. Images are piped through stdin; PDFs
// are rendered to PNG pages with ImageMagick and recognized concurrently.
type Tesseract struct {
	path        string
	concurrency int
	tempDir     string
	logger      *slog.Logger
}

func NewTesseract(cfg *Config, logger *slog.Logger) *Tesseract {
	return &Tesseract{
		path:        cfg.TesseractPath,
		concurrency: cfg.PageConcurrency,
		tempDir:     cfg.TempDir,
		logger:      logger.With("engine", EngineTesseract),
	}
}

func (t *Tesseract) Name() string { return EngineTesseract }

func (t *Tesseract) Recognize(ctx context.Context, data []byte, contentType, language string) (string, error) {
	switch contentType {
	case TypePNG, TypeJPEG:
		return t.recognizeImage(ctx, data, language)
	case TypePDF:
		return t.recognizePDF(ctx, data, language)
	default:
		return "", fmt.Errorf("%w: %w: %s", ErrRecognition, ErrUnsupportedType, contentType)
	}
}

func (t *Tesseract) recognizeImage(ctx context.Context, data []byte, language string) (string, error) {
	cmd := exec.CommandContext(ctx, t.path, "stdin", "stdout", "-l", language)
	cmd.Stdin = bytes.NewReader(data)
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("tesseract: %w: %s", err, msg)
		} else {
			err = fmt.Errorf("tesseract: %w", err)
		}
		return "", recognitionError(ctx, err)
	}

	return strings.TrimSpace(string(out)), nil
}

func (t *Tesseract) recognizePDF(ctx context.Context, data []byte, language string) (string, error) {
	dir, err := os.MkdirTemp(t.tempDir, "formwise-ocr-*")
	if err != nil {
		return "", recognitionError(ctx, fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, sourcePDF)
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		return "", recognitionError(ctx, fmt.Errorf("write temp pdf: %w", err))
	}

	pdfDoc, err := document.OpenPDF(pdfPath)
	if err != nil {
		return "", recognitionError(ctx, fmt.Errorf("open pdf: %w", err))
	}
	defer pdfDoc.Close()

	renderer, err := image.NewImageMagickRenderer(config.DefaultImageConfig())
	if err != nil {
		return "", recognitionError(ctx, fmt.Errorf("create renderer: %w", err))
	}

	pages, err := pdfDoc.ExtractAllPages()
	if err != nil {
		return "", recognitionError(ctx, fmt.Errorf("extract pages: %w", err))
	}

	texts := make([]string, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers(len(pages)))

	for i, page := range pages {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			img, err := page.ToImage(renderer, nil)
			if err != nil {
				return fmt.Errorf("render page %d: %w", i+1, err)
			}

			text, err := t.recognizeImage(gctx, img, language)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			texts[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", recognitionError(ctx, err)
	}

	t.logger.DebugContext(ctx, "pdf recognized", "pages", len(pages))
	return strings.Join(texts, "\n"), nil
}

func (t *Tesseract) workers(pages int) int {
	n := t.concurrency
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(min(n, pages), 1)
}
