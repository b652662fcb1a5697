package llm

import (
	"log/slog"
	"sort"

	"github.com/joseph-ayodele/docfields/internal/extract"
)

// envelopes are wrappers models put around the field object, outermost first.
var envelopes = [][]string{
	{"extraction_results", "data"},
	{"data"},
	{"extraction_results"},
	{"fields"},
	{"result"},
}

// unwrapEnvelope descends into a known wrapper when obj itself carries none of the field keys.
func unwrapEnvelope(obj map[string]any, spec extract.FieldSpec) (map[string]any, string) {
	if hasAnyKey(obj, spec) {
		return obj, ""
	}
	for _, path := range envelopes {
		cur := obj
		ok := true
		for _, k := range path {
			next, isMap := cur[k].(map[string]any)
			if !isMap {
				ok = false
				break
			}
			cur = next
		}
		if ok && hasAnyKey(cur, spec) {
			return cur, joinPath(path)
		}
	}
	return obj, ""
}

func hasAnyKey(obj map[string]any, spec extract.FieldSpec) bool {
	for k := range obj {
		if spec.Has(k) {
			return true
		}
	}
	return false
}

func joinPath(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}

// unknownKeys lists keys outside spec, sorted for stable logs.
func unknownKeys(obj map[string]any, spec extract.FieldSpec) []string {
	var out []string
	for k := range obj {
		if !spec.Has(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func logSanitize(logger *slog.Logger, page int, envelope string, dropped []string) {
	if envelope == "" && len(dropped) == 0 {
		return
	}
	logger.Warn("llm.parse.sanitize", "page", page, "envelope", envelope, "dropped", dropped)
}
