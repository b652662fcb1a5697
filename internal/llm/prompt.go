package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/extract"
)

// BuildPrompt composes the extraction instructions for one FieldSpec.
// The output depends only on its inputs so identical requests produce identical prompts.
func BuildPrompt(spec extract.FieldSpec, instructions string) string {
	var b strings.Builder
	b.WriteString("You are a document data extraction assistant. Extract information from this document image.\n\n")

	b.WriteString("EXTRACTION RULES:\n")
	b.WriteString("1. Copy text EXACTLY as it appears (preserve formatting, spacing, case).\n")
	b.WriteString("2. For each field, provide the extracted value and a confidence score (integer 0-100).\n")
	b.WriteString("3. If a field is not visible on this page, or you cannot read it, return null as the value. Do NOT guess.\n")
	b.WriteString("4. Confidence must reflect image quality and text legibility:\n")
	for _, r := range constants.BandRanges() {
		fmt.Fprintf(&b, "   - %s (%d-%d): %s\n", strings.ReplaceAll(string(r.Band), "_", " "), r.Min, r.Max, r.Guidance)
	}
	b.WriteString("5. Respond with ONLY the JSON object below. No prose, no markdown.\n\n")

	b.WriteString("Fields to extract:\n")
	for _, f := range spec.Fields() {
		desc := strings.TrimSpace(f.Description)
		if desc == "" {
			desc = f.Key
		}
		fmt.Fprintf(&b, "- `%s`: %s\n", f.Key, desc)
	}

	if ins := strings.TrimSpace(instructions); ins != "" {
		b.WriteString("\nAdditional instructions: ")
		b.WriteString(ins)
		b.WriteString("\n")
	}

	b.WriteString("\nThe JSON object must have exactly these keys:\n{\n")
	keys := spec.Keys()
	for i, k := range keys {
		fmt.Fprintf(&b, `  %q: {"value": "<extracted text or null>", "confidence": <0-100>}`, k)
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// PagePrompt appends the page position for multi-page documents. index is 0-based.
func PagePrompt(base string, index, total int) string {
	if total <= 1 {
		return base
	}
	return fmt.Sprintf("%s\n\nNote: This is page %d of %d from the document.", base, index+1, total)
}
