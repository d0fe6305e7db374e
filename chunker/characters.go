package chunker

import "unicode"

// splitCharacters implements the `characters` strategy: a fixed-width
// window of cfg.ChunkSize runes advancing by (ChunkSize - ChunkOverlap)
// runes per step, aligning the cut to a word boundary when the natural
// cut falls mid-word and a preceding space exists after
// cfg.MinChunkSize runes from the window start.
func splitCharacters(text string, cfg Config) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	size := cfg.ChunkSize
	if size <= 0 {
		size = n
	}
	step := size - cfg.ChunkOverlap
	if step < 1 {
		step = 1
	}

	var out []string
	i := 0
	for i < n {
		end := i + size
		if end >= n {
			end = n
		} else if !isWordBoundary(runes, end) {
			if j := precedingSpaceIndex(runes, i+cfg.MinChunkSize, end); j >= 0 {
				end = j
			}
		}
		if end <= i {
			end = i + 1
		}
		out = append(out, string(runes[i:end]))
		if end >= n {
			break
		}
		i += step
	}
	return out
}

// isWordBoundary reports whether cutting runes at index pos falls
// between words rather than inside one.
func isWordBoundary(runes []rune, pos int) bool {
	if pos <= 0 || pos >= len(runes) {
		return true
	}
	return unicode.IsSpace(runes[pos-1]) || unicode.IsSpace(runes[pos])
}

// precedingSpaceIndex scans backward from end (exclusive) to lo
// (inclusive) for the last whitespace rune, returning its index (the
// cut point, just after the space run starts) or -1 if none exists in
// range.
func precedingSpaceIndex(runes []rune, lo, end int) int {
	if lo < 0 {
		lo = 0
	}
	for j := end - 1; j >= lo; j-- {
		if unicode.IsSpace(runes[j]) {
			return j
		}
	}
	return -1
}
