// Package documents validates uploaded documents before recognition.
//
// A Document lives for a single pipeline run. Intake enforces Rules.
// Inspection and archival are best effort and never reject a document.
package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/formwise/pkg/formatting"
	"github.com/JaimeStill/formwise/pkg/storage"
)

// Document is an uploaded file held in memory for one run.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	PageCount   *int   `json:"pageCount,omitempty"`
	Data        []byte `json:"-"`
}

// New builds a Document from raw bytes, detecting its content type from
// the declared header when present and from the data otherwise.
func New(filename, declaredType string, data []byte) Document {
	return Document{
		Filename:    filename,
		ContentType: DetectContentType(declaredType, data),
		Size:        int64(len(data)),
		Data:        data,
	}
}

// Read loads a multipart file. No more than maxSize+1 bytes are read, so
// an oversized upload is detected without reading it fully.
func Read(fh *multipart.FileHeader, maxSize int64) (Document, error) {
	f, err := fh.Open()
	if err != nil {
		return Document{}, fmt.Errorf("%w: open upload: %w", ErrInvalidInput, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return Document{}, fmt.Errorf("%w: read upload: %w", ErrInvalidInput, err)
	}

	doc := New(fh.Filename, fh.Header.Get("Content-Type"), data)
	if fh.Size > doc.Size {
		doc.Size = fh.Size
	}
	return doc, nil
}

// Rules bound what intake accepts. MaxSize is inclusive.
type Rules struct {
	MaxSize      int64
	AllowedTypes []string
}

// Validate applies the intake rules to doc.
func (r Rules) Validate(doc Document) error {
	if doc.Size == 0 || len(doc.Data) == 0 {
		return fmt.Errorf("%w: document is empty", ErrInvalidInput)
	}
	if doc.Size > r.MaxSize {
		return fmt.Errorf("%w: %w: %d bytes exceeds the %s limit",
			ErrInvalidInput, ErrTooLarge, doc.Size, formatting.FormatBytes(r.MaxSize, 1))
	}
	if !slices.Contains(r.AllowedTypes, doc.ContentType) {
		return fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, doc.ContentType)
	}
	return nil
}

// DetectContentType returns the bare media type of a document. A missing
// or generic declared type is replaced by sniffing the data.
func DetectContentType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return strings.ToLower(mt)
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

// Inspect records the page count of a PDF. Failures are logged and leave
// PageCount nil.
func Inspect(logger *slog.Logger, doc *Document) {
	if doc.ContentType != "application/pdf" {
		return
	}

	count, err := api.PageCount(bytes.NewReader(doc.Data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "filename", doc.Filename, "error", err)
		return
	}
	doc.PageCount = &count
}

// Archive uploads the original document under prefix/<runID>/<filename>
// and returns the blob key.
func Archive(ctx context.Context, store storage.System, prefix string, runID uuid.UUID, doc Document) (string, error) {
	key := path.Join(prefix, runID.String(), SanitizeFilename(doc.Filename))
	if err := store.Upload(ctx, key, bytes.NewReader(doc.Data), doc.ContentType); err != nil {
		return "", fmt.Errorf("archive document: %w", err)
	}
	return key, nil
}

// SanitizeFilename reduces a client-supplied name to a single safe path
// segment.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if clean == "" {
		return "document"
	}
	return clean
}
