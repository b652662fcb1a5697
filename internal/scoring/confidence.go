package scoring

import (
	"log/slog"
	"math"

	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
)

type Config struct {
	MinDPI         int     // below this, confidences scale by DPI/MinDPI; 0 disables
	MinJPEGQuality int     // below this, confidences scale by QualityPenalty; 0 disables
	QualityPenalty float64 // in (0, 1]
}

// ConfigFrom adapts the application config.
func ConfigFrom(c common.ScoringConfig) Config {
	return Config{MinDPI: c.MinDPI, MinJPEGQuality: c.MinJPEGQuality, QualityPenalty: c.QualityPenalty}
}

// Quality is what we know about the fidelity of one page image. Zero means unknown.
type Quality struct {
	DPI         int
	JPEGQuality int
}

// Signals carries a document-wide quality plus optional per-page overrides keyed by page index.
type Signals struct {
	Global Quality
	Pages  map[int]Quality
}

// SignalsFromPages takes each page's own quality and the worst known values as the global signal.
func SignalsFromPages(pages []extract.PageImage) Signals {
	s := Signals{Pages: make(map[int]Quality, len(pages))}
	for _, p := range pages {
		q := Quality{DPI: p.DPI, JPEGQuality: p.JPEGQuality}
		s.Pages[p.Index] = q
		if q.DPI > 0 && (s.Global.DPI == 0 || q.DPI < s.Global.DPI) {
			s.Global.DPI = q.DPI
		}
		if q.JPEGQuality > 0 && (s.Global.JPEGQuality == 0 || q.JPEGQuality < s.Global.JPEGQuality) {
			s.Global.JPEGQuality = q.JPEGQuality
		}
	}
	return s
}

// Scorer scales reported confidences down when input fidelity is below thresholds.
// It never raises a confidence.
type Scorer struct {
	cfg    Config
	logger *slog.Logger
}

func NewScorer(cfg Config, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QualityPenalty <= 0 || cfg.QualityPenalty > 1 {
		cfg.QualityPenalty = 0.9
	}
	return &Scorer{cfg: cfg, logger: logger}
}

// Factor returns the multiplier in [0, 1] for q.
func (s *Scorer) Factor(q Quality) float64 {
	f := 1.0
	if s.cfg.MinDPI > 0 && q.DPI > 0 && q.DPI < s.cfg.MinDPI {
		f *= float64(q.DPI) / float64(s.cfg.MinDPI)
	}
	if s.cfg.MinJPEGQuality > 0 && q.JPEGQuality > 0 && q.JPEGQuality < s.cfg.MinJPEGQuality {
		f *= s.cfg.QualityPenalty
	}
	return math.Max(0, math.Min(1, f))
}

// Score returns a copy of doc with adjusted confidences and a recomputed overall confidence.
// A field taken from a page with known quality uses that page's signal; others use the global one.
func (s *Scorer) Score(doc extract.DocumentExtraction, signals Signals) extract.DocumentExtraction {
	out := doc.Clone()
	adjusted := 0
	for _, k := range out.Keys {
		r := out.Fields[k]
		if r.IsNull() || r.Confidence == 0 {
			continue
		}
		q := signals.Global
		if page, ok := out.SourcePages[k]; ok {
			if pq, ok := signals.Pages[page]; ok {
				q = pq
			}
		}
		f := s.Factor(q)
		if f >= 1 {
			continue
		}
		// floor keeps the scaled value at or below the reported one
		c := int(math.Floor(float64(r.Confidence) * f))
		if c < r.Confidence {
			r.Confidence = c
			out.Fields[k] = r
			adjusted++
		}
	}
	out.RecomputeOverall()
	if adjusted > 0 {
		s.logger.Debug("scoring.adjusted", "fields", adjusted, "overall_confidence", out.OverallConfidence)
	}
	return out
}
