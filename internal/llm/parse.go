package llm

import (
	"log/slog"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/extract"
)

// DefaultConfidence is used when the model gives a value without a usable confidence.
const DefaultConfidence = 50

// ResponseParser turns raw model text into a PageExtraction for one FieldSpec.
// It never fails: unrecoverable text degrades to all-null fields. Safe for concurrent use.
type ResponseParser struct {
	spec              extract.FieldSpec
	defaultConfidence int
	schema            *SchemaValidator
	logger            *slog.Logger
}

func NewResponseParser(spec extract.FieldSpec, defaultConfidence int, logger *slog.Logger) *ResponseParser {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultConfidence < 0 || defaultConfidence > 100 {
		defaultConfidence = DefaultConfidence
	}
	schema, err := NewSchemaValidator(BuildFieldsJSONSchema(spec))
	if err != nil {
		logger.Warn("llm.parse.schema_compile_failed", "error", err)
		schema = nil
	}
	return &ResponseParser{spec: spec, defaultConfidence: defaultConfidence, schema: schema, logger: logger}
}

// Parse builds the extraction for page from text.
func (p *ResponseParser) Parse(page int, text string) extract.PageExtraction {
	c, matched, ok := recoverObject(text, p.conforms)
	if !ok {
		p.logger.Warn("llm.parse.fallback", "page", page, "text_bytes", len(text), "preview", preview(text, 200))
		return p.Fallback(page, constants.PageStatusDegraded)
	}

	obj, envelope := unwrapEnvelope(c.obj, p.spec)
	logSanitize(p.logger, page, envelope, unknownKeys(obj, p.spec))

	out := extract.PageExtraction{
		Page:   page,
		Fields: make(map[string]extract.FieldResult, p.spec.Len()),
		Status: constants.PageStatusOK,
	}
	for _, k := range p.spec.Keys() {
		entry, present := obj[k]
		if !present {
			out.Fields[k] = extract.NullResult()
			continue
		}
		out.Fields[k] = p.fieldFromEntry(entry)
	}
	p.logger.Debug("llm.parse.ok", "page", page, "strategy", c.strategy, "schema_match", matched)
	return out
}

// conforms reports whether a recovered object, once unwrapped, is exactly the ideal answer shape.
// Recovery prefers such an object over earlier ones that merely decode.
func (p *ResponseParser) conforms(obj map[string]any) bool {
	if p.schema == nil {
		return false
	}
	inner, _ := unwrapEnvelope(obj, p.spec)
	return p.schema.Validate(inner) == nil
}

// Fallback returns a page whose fields are all {null, 0}.
func (p *ResponseParser) Fallback(page int, status constants.PageStatus) extract.PageExtraction {
	out := extract.PageExtraction{
		Page:   page,
		Fields: make(map[string]extract.FieldResult, p.spec.Len()),
		Status: status,
	}
	for _, k := range p.spec.Keys() {
		out.Fields[k] = extract.NullResult()
	}
	return out
}

// fieldFromEntry reads {"value": ..., "confidence": ...} or a bare scalar.
// A null value without a confidence stays {null, 0}; a value without one gets the default.
func (p *ResponseParser) fieldFromEntry(entry any) extract.FieldResult {
	m, isObj := entry.(map[string]any)
	if !isObj {
		v := normalizeValue(entry)
		if v == nil {
			return extract.NullResult()
		}
		return extract.FieldResult{Value: v, Confidence: p.defaultConfidence}
	}

	v := normalizeValue(m["value"])
	c, ok := parseConfidence(m["confidence"])
	if !ok {
		if v == nil {
			return extract.NullResult()
		}
		c = p.defaultConfidence
	}
	return extract.FieldResult{Value: v, Confidence: c}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
