// Package jsonscan pulls JSON object literals out of inline script text.
package jsonscan

import "strings"

// ObjectAfterKey finds the first standalone occurrence of key at or after from
// whose value is an object literal, and returns that literal including braces.
// Braces inside string literals and escaped quotes are skipped. The second
// result is false when no balanced object follows any occurrence of key.
func ObjectAfterKey(text, key string, from int) (string, bool) {
	if key == "" {
		return "", false
	}
	if from < 0 {
		from = 0
	}
	idx := from
	for idx < len(text) {
		rel := strings.Index(text[idx:], key)
		if rel == -1 {
			return "", false
		}
		keyIdx := idx + rel
		end := keyIdx + len(key)
		if (keyIdx > 0 && isIdentByte(text[keyIdx-1])) || (end < len(text) && isIdentByte(text[end])) {
			idx = end
			continue
		}

		colon := strings.IndexByte(text[end:], ':')
		if colon == -1 {
			return "", false
		}
		i := end + colon + 1
		for i < len(text) && isSpace(text[i]) {
			i++
		}
		if i >= len(text) || text[i] != '{' {
			idx = i + 1
			continue
		}

		if obj, ok := balanced(text, i); ok {
			return obj, true
		}
		idx = i + 1
	}
	return "", false
}

// ObjectsAfterKey returns every object literal that follows key after each
// occurrence of marker, in document order.
func ObjectsAfterKey(text, marker, key string) []string {
	var out []string
	idx := 0
	for idx < len(text) {
		rel := strings.Index(text[idx:], marker)
		if rel == -1 {
			break
		}
		hit := idx + rel
		if obj, ok := ObjectAfterKey(text, key, hit); ok {
			out = append(out, obj)
		}
		idx = hit + 1
	}
	return out
}

// balanced scans from an opening brace at start and returns the literal up to
// its matching close brace.
func balanced(text string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	var quote byte

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				inString = false
			}
			continue
		}

		switch ch {
		case '"', '\'':
			inString = true
			quote = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
