package llm

import (
	"encoding/json"
	"strings"
)

// recoveryStrategy yields every JSON object it can pull out of free-form model text, in text
// order. yield returns false to stop the walk.
type recoveryStrategy struct {
	name string
	each func(text string, yield func(map[string]any) bool) bool
}

// strategies run in order.
var strategies = []recoveryStrategy{
	{"strict", strictObjects},
	{"balanced_braces", balancedObjects},
	{"fenced_block", fencedObjects},
}

type candidate struct {
	obj      map[string]any
	strategy string
}

// recoverObject returns the first recovered object that accept approves. When none does, it
// returns the first object any strategy decoded and matched=false. accept may be nil.
func recoverObject(text string, accept func(map[string]any) bool) (c candidate, matched, ok bool) {
	var first candidate
	for _, s := range strategies {
		var hit *candidate
		s.each(text, func(obj map[string]any) bool {
			cur := candidate{obj: obj, strategy: s.name}
			if !ok {
				first, ok = cur, true
			}
			if accept == nil {
				return false
			}
			if accept(obj) {
				hit = &cur
				return false
			}
			return true
		})
		if hit != nil {
			return *hit, true, true
		}
		if ok && accept == nil {
			break
		}
	}
	return first, false, ok
}

// decodeObject decodes exactly one JSON object, keeping numbers as json.Number.
func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	// reject trailing non-space garbage
	if strings.TrimSpace(s[dec.InputOffset():]) != "" {
		return nil, false
	}
	return obj, true
}

func strictObjects(text string, yield func(map[string]any) bool) bool {
	if obj, ok := decodeObject(strings.TrimSpace(text)); ok {
		return yield(obj)
	}
	return true
}

// balancedObjects walks top-level {...} spans in order, honoring JSON strings and escapes, and
// yields each span that decodes. A '{' that never closes is skipped and the scan resumes after it.
func balancedObjects(text string, yield func(map[string]any) bool) bool {
	for start := 0; start < len(text); {
		open := strings.IndexByte(text[start:], '{')
		if open < 0 {
			return true
		}
		open += start
		end := matchBrace(text, open)
		if end < 0 {
			start = open + 1
			continue
		}
		if obj, ok := decodeObject(text[open : end+1]); ok {
			if !yield(obj) {
				return false
			}
		}
		start = end + 1
	}
	return true
}

// matchBrace returns the index of the '}' closing the '{' at open, or -1.
func matchBrace(text string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// fencedObjects scans ``` fenced blocks (optionally tagged, e.g. ```json) and yields each block
// that decodes whole, or else the balanced objects inside it.
func fencedObjects(text string, yield func(map[string]any) bool) bool {
	const fence = "```"
	rest := text
	for {
		i := strings.Index(rest, fence)
		if i < 0 {
			return true
		}
		body := rest[i+len(fence):]
		// drop the info string (language tag) up to the end of the line
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{}") {
			body = body[nl+1:]
		}
		j := strings.Index(body, fence)
		if j < 0 {
			return true
		}
		block := body[:j]
		if obj, ok := decodeObject(strings.TrimSpace(block)); ok {
			if !yield(obj) {
				return false
			}
		} else if !balancedObjects(block, yield) {
			return false
		}
		rest = body[j+len(fence):]
	}
}
