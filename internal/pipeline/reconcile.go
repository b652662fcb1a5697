package pipeline

import (
	"sort"

	"github.com/joseph-ayodele/docfields/internal/extract"
)

// Reconcile picks, per field, the highest-confidence non-null value across pages.
// Ties go to the earliest page index; a field no page found is {null, 0}.
func Reconcile(spec extract.FieldSpec, pages []extract.PageExtraction) extract.DocumentExtraction {
	ordered := append([]extract.PageExtraction(nil), pages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Page < ordered[j].Page })

	doc := extract.NewDocumentExtraction(spec)
	doc.PageCount = len(pages)
	for _, k := range doc.Keys {
		found := false
		var best extract.FieldResult
		bestPage := 0
		for _, pe := range ordered {
			r, ok := pe.Fields[k]
			if !ok || r.IsNull() {
				continue
			}
			if !found || r.Confidence > best.Confidence {
				best, bestPage, found = r, pe.Page, true
			}
		}
		if !found {
			continue
		}
		best.Value = extract.StringPtr(*best.Value)
		doc.Fields[k] = best
		doc.SourcePages[k] = bestPage
	}
	doc.RecomputeOverall()
	return doc
}
