package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strconv"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// PDFBackend opens PDF bytes for page-by-page rendering.
type PDFBackend interface {
	Name() string
	Open(data []byte) (PDFDocument, error)
}

// PDFDocument renders pages of one opened PDF. Pages are 0-based.
// Implementations are not safe for concurrent use.
type PDFDocument interface {
	NumPage() int
	Render(ctx context.Context, page, dpi int) (image.Image, error)
	Close() error
}

// FitzBackend renders with MuPDF in memory.
type FitzBackend struct{}

func (FitzBackend) Name() string { return "fitz" }

func (FitzBackend) Open(data []byte) (PDFDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPage() int { return d.doc.NumPage() }

func (d *fitzDocument) Render(ctx context.Context, page, dpi int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.doc.ImageDPI(page, float64(dpi))
}

func (d *fitzDocument) Close() error { return d.doc.Close() }

// PopplerBackend counts pages with a pure-Go parser and renders each page
// by piping the PDF into pdftoppm.
type PopplerBackend struct {
	Bin    string // binary name or absolute path; if empty -> "pdftoppm"
	Runner Runner
}

func (PopplerBackend) Name() string { return "pdftoppm" }

func (b PopplerBackend) Open(data []byte) (PDFDocument, error) {
	n, err := countPages(data)
	if err != nil {
		return nil, err
	}
	bin := b.Bin
	if bin == "" {
		bin = "pdftoppm"
	}
	return &popplerDocument{data: data, pages: n, bin: bin, runner: b.Runner}, nil
}

// countPages reads the page tree. The parser panics on some malformed inputs.
func countPages(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

type popplerDocument struct {
	data   []byte
	pages  int
	bin    string
	runner Runner
}

func (d *popplerDocument) NumPage() int { return d.pages }

func (d *popplerDocument) Render(ctx context.Context, page, dpi int) (image.Image, error) {
	if d.runner == nil {
		return nil, errors.New("pdftoppm backend has no runner")
	}
	n := strconv.Itoa(page + 1) // pdftoppm pages are 1-based
	// pdftoppm -r 250 -f n -l n -singlefile -png - < doc.pdf > page.png
	out, errb, err := d.runner.Run(ctx, d.bin, d.data,
		"-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-singlefile", "-png", "-")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %s: %w: %s", n, err, truncate(string(errb), 512))
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %s: decode png: %w", n, err)
	}
	return img, nil
}

func (d *popplerDocument) Close() error { return nil }
