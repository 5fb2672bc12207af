// Package extract turns beneficiary screens (text, saved HTML, screenshots)
// into raw text, and collaborator responses into normalized records.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source reads one kind of input file as text.
type Source interface {
	Name() string
	CanHandle(path string) bool
	Read(ctx context.Context, path string) (string, error)
}

// Registry picks a Source by file extension. Plain text is the fallback.
type Registry struct {
	sources  []Source
	fallback Source
}

// NewRegistry registers the HTML and image sources. ocr may be nil, in which
// case image inputs are rejected.
func NewRegistry(ocr OCR) *Registry {
	r := &Registry{fallback: textSource{}}
	r.Register(htmlSource{})
	if ocr != nil {
		r.Register(imageSource{ocr: ocr})
	}
	return r
}

// Register adds a source ahead of the fallback.
func (r *Registry) Register(s Source) {
	r.sources = append(r.sources, s)
}

// For returns the source that handles path.
func (r *Registry) For(path string) Source {
	for _, s := range r.sources {
		if s.CanHandle(path) {
			return s
		}
	}
	return r.fallback
}

// ReadText reads every page and joins them with newlines in argument order.
func (r *Registry) ReadText(ctx context.Context, paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no input files")
	}
	pages := make([]string, 0, len(paths))
	for _, p := range paths {
		if isImage(p) && !r.hasImageSource() {
			return "", fmt.Errorf("%s: image input needs an OCR command", p)
		}
		text, err := r.For(p).Read(ctx, p)
		if err != nil {
			return "", fmt.Errorf("%s: %w", p, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return strings.Join(pages, "\n"), nil
}

func (r *Registry) hasImageSource() bool {
	for _, s := range r.sources {
		if _, ok := s.(imageSource); ok {
			return true
		}
	}
	return false
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func isImage(path string) bool {
	switch ext(path) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
		return true
	}
	return false
}

type textSource struct{}

func (textSource) Name() string { return "text" }

func (textSource) CanHandle(path string) bool { return ext(path) == ".txt" }

func (textSource) Read(_ context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return string(b), nil
}

type htmlSource struct{}

func (htmlSource) Name() string { return "html" }

func (htmlSource) CanHandle(path string) bool {
	e := ext(path)
	return e == ".html" || e == ".htm"
}

func (htmlSource) Read(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()
	return HTMLText(f)
}

type imageSource struct {
	ocr OCR
}

func (imageSource) Name() string { return "ocr" }

func (imageSource) CanHandle(path string) bool { return isImage(path) }

func (s imageSource) Read(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}
	return s.ocr.Recognize(ctx, path)
}
