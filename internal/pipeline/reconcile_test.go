package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/extract"
)

func invoiceSpec() extract.FieldSpec {
	return extract.MustFieldSpec(
		extract.Field{Key: "invoice_number", Description: "ID"},
		extract.Field{Key: "total", Description: "total amount"},
	)
}

func page(idx int, fields map[string]extract.FieldResult) extract.PageExtraction {
	return extract.PageExtraction{Page: idx, Fields: fields, Status: constants.PageStatusOK}
}

func fr(v string, c int) extract.FieldResult {
	return extract.FieldResult{Value: extract.StringPtr(v), Confidence: c}
}

func TestReconcile_PicksHighestConfidencePerField(t *testing.T) {
	doc := Reconcile(invoiceSpec(), []extract.PageExtraction{
		page(0, map[string]extract.FieldResult{"invoice_number": fr("INV-1", 90), "total": extract.NullResult()}),
		page(1, map[string]extract.FieldResult{"invoice_number": extract.NullResult(), "total": fr("120.00", 80)}),
	})
	require.NotNil(t, doc.Fields["invoice_number"].Value)
	assert.Equal(t, "INV-1", *doc.Fields["invoice_number"].Value)
	assert.Equal(t, 90, doc.Fields["invoice_number"].Confidence)
	assert.Equal(t, "120.00", *doc.Fields["total"].Value)
	assert.Equal(t, 80, doc.Fields["total"].Confidence)
	assert.Equal(t, map[string]int{"invoice_number": 0, "total": 1}, doc.SourcePages)
	assert.Equal(t, 85, doc.OverallConfidence)
	assert.Equal(t, 2, doc.PageCount)
}

func TestReconcile_TieGoesToEarliestPageRegardlessOfOrder(t *testing.T) {
	p0 := page(0, map[string]extract.FieldResult{"total": fr("10", 70)})
	p1 := page(1, map[string]extract.FieldResult{"total": fr("11", 70)})
	p2 := page(2, map[string]extract.FieldResult{"total": fr("12", 60)})

	for i := 0; i < 5; i++ {
		for _, order := range [][]extract.PageExtraction{{p0, p1, p2}, {p2, p1, p0}, {p1, p2, p0}} {
			doc := Reconcile(invoiceSpec(), order)
			assert.Equal(t, "10", *doc.Fields["total"].Value)
			assert.Equal(t, 0, doc.SourcePages["total"])
		}
	}
}

func TestReconcile_NullEverywhereIsNullZero(t *testing.T) {
	doc := Reconcile(invoiceSpec(), []extract.PageExtraction{
		page(0, map[string]extract.FieldResult{"invoice_number": {Value: nil, Confidence: 95}}),
	})
	assert.Equal(t, extract.NullResult(), doc.Fields["invoice_number"])
	assert.Equal(t, extract.NullResult(), doc.Fields["total"])
	assert.Empty(t, doc.SourcePages)
	assert.Zero(t, doc.OverallConfidence)
}

func TestReconcile_KeySetEqualsSpec(t *testing.T) {
	doc := Reconcile(invoiceSpec(), []extract.PageExtraction{
		page(0, map[string]extract.FieldResult{"vendor": fr("ACME", 99)}),
	})
	assert.Equal(t, []string{"invoice_number", "total"}, doc.Keys)
	assert.Len(t, doc.Fields, 2)
	assert.NotContains(t, doc.Fields, "vendor")
}

func TestReconcile_DoesNotAliasPageValues(t *testing.T) {
	v := "orig"
	pe := page(0, map[string]extract.FieldResult{"total": {Value: &v, Confidence: 50}})
	doc := Reconcile(invoiceSpec(), []extract.PageExtraction{pe})
	v = "changed"
	assert.Equal(t, "orig", *doc.Fields["total"].Value)
}
