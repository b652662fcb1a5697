package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/docfields/internal/extract"
)

func invoiceSpec() extract.FieldSpec {
	return extract.MustFieldSpec(
		extract.Field{Key: "invoice_number", Description: "ID"},
		extract.Field{Key: "total", Description: "total amount"},
	)
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	a := BuildPrompt(invoiceSpec(), "amounts in EUR")
	b := BuildPrompt(invoiceSpec(), "amounts in EUR")
	assert.Equal(t, a, b)
}

func TestBuildPrompt_EnumeratesFieldsAndRules(t *testing.T) {
	p := BuildPrompt(invoiceSpec(), "")
	assert.Contains(t, p, "- `invoice_number`: ID")
	assert.Contains(t, p, "- `total`: total amount")
	assert.Contains(t, p, `"invoice_number": {"value": "<extracted text or null>", "confidence": <0-100>}`)
	assert.Contains(t, p, "return null as the value. Do NOT guess")
	assert.Contains(t, p, "HIGH (80-100)")
	assert.Contains(t, p, "VERY LOW (0-19)")
	assert.NotContains(t, p, "Additional instructions")
	assert.Less(t, strings.Index(p, "invoice_number"), strings.Index(p, "`total`"), "fields keep spec order")
}

func TestBuildPrompt_Instructions(t *testing.T) {
	p := BuildPrompt(invoiceSpec(), "  dates as YYYY-MM-DD ")
	assert.Contains(t, p, "Additional instructions: dates as YYYY-MM-DD\n")
	assert.NotEqual(t, BuildPrompt(invoiceSpec(), ""), p)
}

func TestBuildPrompt_EmptyDescriptionFallsBackToKey(t *testing.T) {
	p := BuildPrompt(extract.MustFieldSpec(extract.Field{Key: "iban"}), "")
	assert.Contains(t, p, "- `iban`: iban")
}

func TestPagePrompt(t *testing.T) {
	assert.Equal(t, "base", PagePrompt("base", 0, 1))
	assert.Equal(t, "base\n\nNote: This is page 2 of 3 from the document.", PagePrompt("base", 1, 3))
}
