package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/docfields/internal/extract"
)

func testDoc() extract.DocumentExtraction {
	spec := extract.MustFieldSpec(extract.Field{Key: "a"}, extract.Field{Key: "b"}, extract.Field{Key: "c"})
	doc := extract.NewDocumentExtraction(spec)
	doc.Fields["a"] = extract.FieldResult{Value: extract.StringPtr("x"), Confidence: 90}
	doc.Fields["b"] = extract.FieldResult{Value: extract.StringPtr("y"), Confidence: 61}
	doc.SourcePages["a"] = 0
	doc.SourcePages["b"] = 1
	doc.RecomputeOverall()
	return doc
}

func newScorer() *Scorer {
	return NewScorer(Config{MinDPI: 150, MinJPEGQuality: 85, QualityPenalty: 0.9}, nil)
}

func TestScore_GoodQualityUnchanged(t *testing.T) {
	doc := testDoc()
	out := newScorer().Score(doc, Signals{Global: Quality{DPI: 300, JPEGQuality: 95}})
	assert.Equal(t, doc.Fields, out.Fields)
	assert.Equal(t, 75, out.OverallConfidence)
}

func TestScore_LowDPIScalesProportionally(t *testing.T) {
	out := newScorer().Score(testDoc(), Signals{Global: Quality{DPI: 75}})
	assert.Equal(t, 45, out.Fields["a"].Confidence)
	assert.Equal(t, 30, out.Fields["b"].Confidence, "61 * 0.5 floors to 30")
	assert.Equal(t, 37, out.OverallConfidence)
	assert.Nil(t, out.Fields["c"].Value)
	assert.Zero(t, out.Fields["c"].Confidence)
}

func TestScore_PerPageSignalsWin(t *testing.T) {
	signals := Signals{
		Global: Quality{DPI: 300},
		Pages:  map[int]Quality{0: {DPI: 300, JPEGQuality: 95}, 1: {DPI: 300, JPEGQuality: 60}},
	}
	out := newScorer().Score(testDoc(), signals)
	assert.Equal(t, 90, out.Fields["a"].Confidence)
	assert.Equal(t, 54, out.Fields["b"].Confidence)
}

func TestScore_DoesNotMutateInput(t *testing.T) {
	doc := testDoc()
	_ = newScorer().Score(doc, Signals{Global: Quality{DPI: 10}})
	assert.Equal(t, 90, doc.Fields["a"].Confidence)
}

func TestScore_NeverIncreases(t *testing.T) {
	s := newScorer()
	qualities := []Quality{
		{}, {DPI: 1}, {DPI: 149}, {DPI: 150}, {DPI: 600}, {JPEGQuality: 1}, {JPEGQuality: 84},
		{DPI: 100, JPEGQuality: 50}, {DPI: 1000, JPEGQuality: 100},
	}
	spec := extract.MustFieldSpec(extract.Field{Key: "f"})
	for conf := 0; conf <= 100; conf++ {
		doc := extract.NewDocumentExtraction(spec)
		doc.Fields["f"] = extract.FieldResult{Value: extract.StringPtr("v"), Confidence: conf}
		for _, q := range qualities {
			out := s.Score(doc, Signals{Global: q})
			assert.LessOrEqual(t, out.Fields["f"].Confidence, conf)
			assert.GreaterOrEqual(t, out.Fields["f"].Confidence, 0)
		}
	}
}

func TestSignalsFromPages(t *testing.T) {
	s := SignalsFromPages([]extract.PageImage{
		{Index: 0, DPI: 120, JPEGQuality: 95},
		{Index: 1, DPI: 0, JPEGQuality: 0},
		{Index: 2, DPI: 200, JPEGQuality: 80},
	})
	assert.Equal(t, Quality{DPI: 120, JPEGQuality: 80}, s.Global)
	assert.Equal(t, Quality{}, s.Pages[1])
}

func TestFactor_UnknownSkipsPenalty(t *testing.T) {
	assert.Equal(t, 1.0, newScorer().Factor(Quality{}))
	assert.InDelta(t, 0.45, newScorer().Factor(Quality{DPI: 75, JPEGQuality: 50}), 1e-9)
}
