package raster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
)

type Config struct {
	Backend       string // "fitz" | "pdftoppm"; if empty -> "fitz"
	DPI           int    // PDF render DPI, default 250
	MaxDimension  int    // longest side cap in pixels, default 1344
	JPEGQuality   int    // re-encode quality, default 95
	MaxPages      int    // 0 = no limit
	Pdftoppm      string // binary name or absolute path; if empty -> "pdftoppm"
	HeicConverter string // "magick" | "convert"; if empty -> "magick"
}

// ConfigFrom adapts the application config.
func ConfigFrom(c common.RasterConfig) Config {
	return Config{
		Backend:       c.Backend,
		DPI:           c.DPI,
		MaxDimension:  c.MaxDimension,
		JPEGQuality:   c.JPEGQuality,
		MaxPages:      c.MaxPages,
		Pdftoppm:      c.Pdftoppm,
		HeicConverter: c.HeicConverter,
	}
}

// Rasterizer turns PDFs and raster images into normalized page images.
type Rasterizer struct {
	cfg    Config
	pdf    PDFBackend
	runner Runner
	logger *slog.Logger
}

// Option overrides collaborators, mostly for tests.
type Option func(*Rasterizer)

func WithRunner(r Runner) Option { return func(z *Rasterizer) { z.runner = r } }

func WithPDFBackend(b PDFBackend) Option { return func(z *Rasterizer) { z.pdf = b } }

func NewRasterizer(cfg Config, logger *slog.Logger, opts ...Option) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend == "" {
		cfg.Backend = "fitz"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 250
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 1344
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 95
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	z := &Rasterizer{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(z)
	}
	if z.runner == nil {
		z.runner = NewExecRunner(logger)
	}
	if z.pdf == nil {
		switch strings.ToLower(cfg.Backend) {
		case "pdftoppm":
			z.pdf = PopplerBackend{Bin: cfg.Pdftoppm, Runner: z.runner}
		default:
			z.pdf = FitzBackend{}
		}
	}
	return z
}

var _ extract.Rasterizer = (*Rasterizer)(nil)

// Rasterize picks a strategy based on the declared MIME type. Any page failure fails the document.
func (z *Rasterizer) Rasterize(ctx context.Context, data []byte, mimeType string) ([]extract.PageImage, error) {
	start := time.Now()
	mt := constants.NormalizeMime(mimeType)
	format := constants.MapMimeToFormat(mt)
	z.logger.Debug("raster.start", "mime", mt, "format", format, "bytes", len(data))

	var (
		pages []extract.PageImage
		err   error
	)
	switch format {
	case constants.PDF:
		pages, err = z.rasterizePDF(ctx, data)
	case constants.IMAGE:
		var page extract.PageImage
		page, err = z.rasterizeImage(data, mt)
		pages = []extract.PageImage{page}
	case constants.HEIC:
		var png []byte
		png, err = convertHEIC(ctx, z.runner, z.cfg.HeicConverter, data)
		if err != nil {
			err = common.CorruptDocument("heic conversion failed", err)
			break
		}
		var page extract.PageImage
		page, err = z.rasterizeImage(png, constants.MimePNG)
		pages = []extract.PageImage{page}
	default:
		return nil, common.UnsupportedDocument(fmt.Sprintf("unsupported mime type %q", mimeType), nil)
	}
	if err != nil {
		z.logger.Warn("raster.failed", "mime", mt, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	z.logger.Info("raster.ok", "mime", mt, "pages", len(pages), "elapsed_ms", time.Since(start).Milliseconds())
	return pages, nil
}

// rasterizeImage keeps JPEG/PNG bytes untouched when they already fit the cap;
// anything else is flattened, downscaled and re-encoded as JPEG.
func (z *Rasterizer) rasterizeImage(data []byte, mimeType string) (extract.PageImage, error) {
	img, format, err := decodeImage(data)
	if err != nil {
		return extract.PageImage{}, common.CorruptDocument("image decode failed", err)
	}
	b := img.Bounds()
	scale := fitScale(b.Dx(), b.Dy(), z.cfg.MaxDimension)
	if scale == 1 && (format == "jpeg" || format == "png") {
		return extract.PageImage{
			Index:    0,
			Data:     data,
			Width:    b.Dx(),
			Height:   b.Dy(),
			MimeType: "image/" + format,
		}, nil
	}
	out := flattenResize(img, scale)
	enc, err := encodeJPEG(out, z.cfg.JPEGQuality)
	if err != nil {
		return extract.PageImage{}, common.CorruptDocument("image encode failed", err)
	}
	z.logger.Debug("raster.image.normalized", "from_format", format, "mime", mimeType,
		"src_w", b.Dx(), "src_h", b.Dy(), "w", out.Bounds().Dx(), "h", out.Bounds().Dy())
	return extract.PageImage{
		Index:       0,
		Data:        enc,
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		MimeType:    constants.MimeJPEG,
		JPEGQuality: z.cfg.JPEGQuality,
	}, nil
}

func (z *Rasterizer) rasterizePDF(ctx context.Context, data []byte) ([]extract.PageImage, error) {
	doc, err := z.pdf.Open(data)
	if err != nil {
		return nil, common.CorruptDocument("pdf open failed", err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			z.logger.Warn("raster.pdf.close_failed", "error", cerr)
		}
	}()

	n := doc.NumPage()
	if n <= 0 {
		return nil, common.UnsupportedDocument("pdf has no renderable pages", nil)
	}
	if z.cfg.MaxPages > 0 && n > z.cfg.MaxPages {
		z.logger.Warn("raster.pdf.truncated", "pages", n, "max_pages", z.cfg.MaxPages)
		n = z.cfg.MaxPages
	}

	pages := make([]extract.PageImage, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.Render(ctx, i, z.cfg.DPI)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, common.CorruptDocument(fmt.Sprintf("render page %d failed", i+1), err)
		}
		b := img.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			return nil, common.CorruptDocument(fmt.Sprintf("page %d rendered empty", i+1), nil)
		}
		scale := fitScale(b.Dx(), b.Dy(), z.cfg.MaxDimension)
		out := flattenResize(img, scale)
		enc, err := encodeJPEG(out, z.cfg.JPEGQuality)
		if err != nil {
			return nil, common.CorruptDocument(fmt.Sprintf("encode page %d failed", i+1), err)
		}
		pages = append(pages, extract.PageImage{
			Index:       i,
			Data:        enc,
			Width:       out.Bounds().Dx(),
			Height:      out.Bounds().Dy(),
			MimeType:    constants.MimeJPEG,
			DPI:         int(float64(z.cfg.DPI)*scale + 0.5),
			JPEGQuality: z.cfg.JPEGQuality,
		})
		z.logger.Debug("raster.pdf.page", "page", i+1, "backend", z.pdf.Name(),
			"src_w", b.Dx(), "src_h", b.Dy(), "w", out.Bounds().Dx(), "h", out.Bounds().Dy())
	}
	return pages, nil
}
