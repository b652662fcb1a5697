package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/joseph-ayodele/docfields/constants"
)

// Rasterizer is Stage 1: document bytes -> ordered page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, mimeType string) ([]PageImage, error)
}

// InferenceClient is Stage 2: one page image + prompt -> raw model text.
// Implementations hold no per-call state and are safe for concurrent use.
type InferenceClient interface {
	Generate(ctx context.Context, req InferenceRequest) (string, error)
}

// ModelChecker is implemented by inference clients that can verify a model before use.
type ModelChecker interface {
	CheckModel(ctx context.Context, model string) error
}

type InferenceRequest struct {
	Model   string
	Prompt  string
	Image   []byte        // encoded page (JPEG or PNG)
	Timeout time.Duration // per attempt; 0 = client default
}

// PageImage is one rendered page. It lives only for the duration of one pipeline run.
type PageImage struct {
	Index    int // 0-based, document order
	Data     []byte
	Width    int
	Height   int
	MimeType string

	// Quality signals consumed by the scorer.
	DPI         int // effective resolution after downscaling; 0 = unknown (raster input)
	JPEGQuality int // 0 = lossless/unknown
}

// FieldResult is a value/confidence pair. Value is nil when the field was not found.
type FieldResult struct {
	Value      *string `json:"value"`
	Confidence int     `json:"confidence"`
}

// NullResult is the placeholder for a field nobody produced a value for.
func NullResult() FieldResult { return FieldResult{Value: nil, Confidence: 0} }

func (r FieldResult) IsNull() bool { return r.Value == nil }

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }

// PageExtraction is the parsed answer for one page. Fields always holds exactly the FieldSpec keys.
type PageExtraction struct {
	Page   int
	Fields map[string]FieldResult
	Status constants.PageStatus
}

// DocumentExtraction is the reconciled result returned to the caller.
type DocumentExtraction struct {
	Keys              []string // FieldSpec order
	Fields            map[string]FieldResult
	SourcePages       map[string]int // non-null fields only
	OverallConfidence int
	PageCount         int
}

// NewDocumentExtraction returns a result with every field of spec set to NullResult.
func NewDocumentExtraction(spec FieldSpec) DocumentExtraction {
	doc := DocumentExtraction{
		Keys:        spec.Keys(),
		Fields:      make(map[string]FieldResult, spec.Len()),
		SourcePages: make(map[string]int),
	}
	for _, k := range doc.Keys {
		doc.Fields[k] = NullResult()
	}
	return doc
}

// Clone returns a deep copy so later stages can adjust confidences without sharing maps.
func (d DocumentExtraction) Clone() DocumentExtraction {
	out := DocumentExtraction{
		Keys:              append([]string(nil), d.Keys...),
		Fields:            make(map[string]FieldResult, len(d.Fields)),
		SourcePages:       make(map[string]int, len(d.SourcePages)),
		OverallConfidence: d.OverallConfidence,
		PageCount:         d.PageCount,
	}
	for k, v := range d.Fields {
		if v.Value != nil {
			v.Value = StringPtr(*v.Value)
		}
		out.Fields[k] = v
	}
	for k, v := range d.SourcePages {
		out.SourcePages[k] = v
	}
	return out
}

// RecomputeOverall sets OverallConfidence to the integer mean of non-null field confidences.
func (d *DocumentExtraction) RecomputeOverall() {
	sum, n := 0, 0
	for _, k := range d.Keys {
		r := d.Fields[k]
		if r.IsNull() {
			continue
		}
		sum += r.Confidence
		n++
	}
	if n == 0 {
		d.OverallConfidence = 0
		return
	}
	d.OverallConfidence = sum / n
}

// MarshalJSON writes fields in FieldSpec order:
//
//	{"fields":{"k":{"value":..,"confidence":..}},"source_pages":{..},"overall_confidence":n,"page_count":n}
func (d DocumentExtraction) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"fields":{`)
	for i, k := range d.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(d.Fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteString(`},"source_pages":{`)
	first := true
	for _, k := range d.Keys {
		p, ok := d.SourcePages[k]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		pb, _ := json.Marshal(p)
		buf.Write(pb)
	}
	buf.WriteString(`},"overall_confidence":`)
	ob, _ := json.Marshal(d.OverallConfidence)
	buf.Write(ob)
	buf.WriteString(`,"page_count":`)
	pc, _ := json.Marshal(d.PageCount)
	buf.Write(pc)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
