package raster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
)

type fakeRunner struct {
	calls  [][]string
	stdins [][]byte
	out    []byte
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, stdin []byte, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.stdins = append(f.stdins, stdin)
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	return f.out, nil, nil
}

type fakeBackend struct {
	pages   []image.Image
	failAt  int // -1 = never
	openErr error
	closed  bool
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open([]byte) (PDFDocument, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return &fakeDoc{b: b}, nil
}

type fakeDoc struct{ b *fakeBackend }

func (d *fakeDoc) NumPage() int { return len(d.b.pages) }

func (d *fakeDoc) Render(_ context.Context, page, _ int) (image.Image, error) {
	if page == d.b.failAt {
		return nil, errors.New("bad content stream")
	}
	return d.b.pages[page], nil
}

func (d *fakeDoc) Close() error { d.b.closed = true; return nil }

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func newTestRasterizer(opts ...Option) *Rasterizer {
	return NewRasterizer(Config{DPI: 200, MaxDimension: 100, JPEGQuality: 90}, nil, opts...)
}

func TestRasterize_UnsupportedMime(t *testing.T) {
	r := &fakeRunner{}
	b := &fakeBackend{failAt: -1}
	z := newTestRasterizer(WithRunner(r), WithPDFBackend(b))

	_, err := z.Rasterize(context.Background(), []byte("hello"), "text/plain")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedDocument)
	assert.Empty(t, r.calls)
}

func TestRasterize_SmallPNGPassesThrough(t *testing.T) {
	data := pngBytes(t, 40, 20)
	pages, err := newTestRasterizer().Rasterize(context.Background(), data, "image/png")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, data, pages[0].Data)
	assert.Equal(t, 40, pages[0].Width)
	assert.Equal(t, 20, pages[0].Height)
	assert.Equal(t, constants.MimePNG, pages[0].MimeType)
	assert.Zero(t, pages[0].DPI)
}

func TestRasterize_LargeImageDownscaled(t *testing.T) {
	pages, err := newTestRasterizer().Rasterize(context.Background(), pngBytes(t, 400, 200), "image/png; charset=binary")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	p := pages[0]
	assert.Equal(t, 100, p.Width)
	assert.Equal(t, 50, p.Height)
	assert.Equal(t, constants.MimeJPEG, p.MimeType)
	assert.Equal(t, 90, p.JPEGQuality)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(p.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, cfg.Width)
}

func TestRasterize_CorruptImage(t *testing.T) {
	_, err := newTestRasterizer().Rasterize(context.Background(), []byte("not a png"), "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCorruptDocument)
}

func TestRasterize_PDFPagesInOrder(t *testing.T) {
	b := &fakeBackend{pages: []image.Image{solid(400, 200), solid(50, 50), solid(200, 400)}, failAt: -1}
	pages, err := newTestRasterizer(WithPDFBackend(b)).Rasterize(context.Background(), []byte("%PDF"), constants.MimePDF)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i, p.Index)
		assert.LessOrEqual(t, max(p.Width, p.Height), 100)
		assert.Equal(t, constants.MimeJPEG, p.MimeType)
	}
	assert.Equal(t, 50, pages[0].DPI, "200 dpi scaled by 0.25")
	assert.Equal(t, 200, pages[1].DPI, "already within the cap")
	assert.True(t, b.closed)
}

func TestRasterize_PDFOnePageCorruptFailsDocument(t *testing.T) {
	b := &fakeBackend{pages: []image.Image{solid(10, 10), solid(10, 10)}, failAt: 1}
	pages, err := newTestRasterizer(WithPDFBackend(b)).Rasterize(context.Background(), []byte("%PDF"), constants.MimePDF)
	require.Error(t, err)
	assert.Nil(t, pages)
	assert.ErrorIs(t, err, common.ErrCorruptDocument)
	assert.True(t, b.closed)
}

func TestRasterize_PDFZeroPages(t *testing.T) {
	b := &fakeBackend{failAt: -1}
	_, err := newTestRasterizer(WithPDFBackend(b)).Rasterize(context.Background(), []byte("%PDF"), constants.MimePDF)
	assert.ErrorIs(t, err, common.ErrUnsupportedDocument)
}

func TestRasterize_PDFOpenError(t *testing.T) {
	b := &fakeBackend{openErr: errors.New("no xref"), failAt: -1}
	_, err := newTestRasterizer(WithPDFBackend(b)).Rasterize(context.Background(), []byte("junk"), constants.MimePDF)
	assert.ErrorIs(t, err, common.ErrCorruptDocument)
}

func TestRasterize_MaxPages(t *testing.T) {
	b := &fakeBackend{pages: []image.Image{solid(10, 10), solid(10, 10), solid(10, 10)}, failAt: -1}
	z := NewRasterizer(Config{MaxPages: 2}, nil, WithPDFBackend(b))
	pages, err := z.Rasterize(context.Background(), []byte("%PDF"), constants.MimePDF)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestRasterize_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &fakeBackend{pages: []image.Image{solid(10, 10)}, failAt: -1}
	_, err := newTestRasterizer(WithPDFBackend(b)).Rasterize(ctx, []byte("%PDF"), constants.MimePDF)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRasterize_HEICThroughConverter(t *testing.T) {
	r := &fakeRunner{out: pngBytes(t, 30, 30)}
	z := newTestRasterizer(WithRunner(r))
	in := []byte("heic-bytes")

	pages, err := z.Rasterize(context.Background(), in, "image/heic")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, constants.MimePNG, pages[0].MimeType)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"magick", "heic:-", "png:-"}, r.calls[0])
	assert.Equal(t, in, r.stdins[0])
}

func TestRasterize_HEICConverterFailure(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	_, err := newTestRasterizer(WithRunner(r)).Rasterize(context.Background(), []byte("x"), "image/heif")
	assert.ErrorIs(t, err, common.ErrCorruptDocument)
}

func TestPopplerDocument_RenderArgs(t *testing.T) {
	r := &fakeRunner{out: pngBytes(t, 12, 16)}
	doc := &popplerDocument{data: []byte("%PDF-1.7"), pages: 3, bin: "pdftoppm", runner: r}

	img, err := doc.Render(context.Background(), 1, 250)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, []string{"pdftoppm", "-r", "250", "-f", "2", "-l", "2", "-singlefile", "-png", "-"}, r.calls[0])
	assert.Equal(t, []byte("%PDF-1.7"), r.stdins[0])
}

func TestPopplerBackend_GarbageFailsToOpen(t *testing.T) {
	_, err := PopplerBackend{Runner: &fakeRunner{}}.Open([]byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestFitScale(t *testing.T) {
	assert.Equal(t, 1.0, fitScale(100, 50, 100))
	assert.Equal(t, 0.5, fitScale(200, 100, 100))
	assert.Equal(t, 0.25, fitScale(100, 400, 100))
	assert.Equal(t, 1.0, fitScale(5000, 5000, 0))
}
