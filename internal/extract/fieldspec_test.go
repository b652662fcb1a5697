package extract

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docfields/internal/common"
)

func TestParseFieldSpec_JSONKeepsOrder(t *testing.T) {
	spec, err := ParseFieldSpec([]byte(`{"total": "total amount", "invoice_number": "ID", "date": "issue date"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"total", "invoice_number", "date"}, spec.Keys())
	assert.Equal(t, "ID", spec.Fields()[1].Description)
	assert.True(t, spec.Has("date"))
	assert.False(t, spec.Has("vendor"))
}

func TestParseFieldSpec_YAMLKeepsOrder(t *testing.T) {
	spec, err := ParseFieldSpec([]byte("vendor: seller name\ntotal: total amount\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor", "total"}, spec.Keys())
}

func TestParseFieldSpec_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"empty object":     "{}",
		"array":            `["a"]`,
		"non-string desc":  `{"a": {"nested": true}}`,
		"duplicate key":    `{"a": "x", "a": "y"}`,
		"blank key":        `{"  ": "x"}`,
		"trailing garbage": `{"a": "x"} {"b": "y"}`,
		"yaml list":        "- a\n- b\n",
		"yaml nested":      "a:\n  b: c\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFieldSpec([]byte(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidFieldSpec), "got %v", err)
			assert.Equal(t, common.CodeInvalidFieldSpec, common.Kind(err))
		})
	}
}

func TestLoadFieldSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("invoice_number: ID\ntotal: total amount\n"), 0o600))

	spec, err := LoadFieldSpec(path)
	require.NoError(t, err)
	assert.Equal(t, 2, spec.Len())

	_, err = LoadFieldSpec(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestFieldSpec_ZeroValueInvalid(t *testing.T) {
	var spec FieldSpec
	assert.ErrorIs(t, spec.Validate(), common.ErrInvalidFieldSpec)
}

func TestDocumentExtraction_MarshalJSONOrdered(t *testing.T) {
	spec := MustFieldSpec(Field{Key: "b", Description: "second"}, Field{Key: "a", Description: "first"})
	doc := NewDocumentExtraction(spec)
	doc.Fields["a"] = FieldResult{Value: StringPtr("x"), Confidence: 70}
	doc.SourcePages["a"] = 1
	doc.PageCount = 2
	doc.RecomputeOverall()

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t,
		`{"fields":{"b":{"value":null,"confidence":0},"a":{"value":"x","confidence":70}},"source_pages":{"a":1},"overall_confidence":70,"page_count":2}`,
		string(out))
}

func TestDocumentExtraction_CloneIsDeep(t *testing.T) {
	spec := MustFieldSpec(Field{Key: "a"})
	doc := NewDocumentExtraction(spec)
	doc.Fields["a"] = FieldResult{Value: StringPtr("x"), Confidence: 90}

	cp := doc.Clone()
	cp.Fields["a"] = FieldResult{Value: StringPtr("y"), Confidence: 10}

	assert.Equal(t, "x", *doc.Fields["a"].Value)
	assert.Equal(t, 90, doc.Fields["a"].Confidence)
}

func TestRecomputeOverall_AllNull(t *testing.T) {
	doc := NewDocumentExtraction(MustFieldSpec(Field{Key: "a"}, Field{Key: "b"}))
	doc.OverallConfidence = 40
	doc.RecomputeOverall()
	assert.Equal(t, 0, doc.OverallConfidence)
}
