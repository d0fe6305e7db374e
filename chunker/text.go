package chunker

import "strings"

// splitParagraphs splits text on blank-line boundaries, discarding
// empty fragments.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences is a sentence tokeniser approximating the
// `(?<=[.!?])\s+(?=[A-Z])` heuristic from §4.1: a boundary falls after
// ./!/? when followed by whitespace and (when present) an uppercase
// letter or end of string.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '?' || runes[i] == '!' {
			if boundaryFollows(runes, i+1) {
				s := strings.TrimSpace(cur.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// boundaryFollows reports whether position i in runes is whitespace
// followed by an uppercase letter, or end of string.
func boundaryFollows(runes []rune, i int) bool {
	if i >= len(runes) {
		return true
	}
	if runes[i] != ' ' && runes[i] != '\n' && runes[i] != '\t' {
		return false
	}
	j := i
	for j < len(runes) && (runes[j] == ' ' || runes[j] == '\n' || runes[j] == '\t') {
		j++
	}
	if j >= len(runes) {
		return true
	}
	r := runes[j]
	return r >= 'A' && r <= 'Z'
}

// extractOverlap returns the trailing portion of text whose size is at
// most maxSize (in the same unit as the caller's target: chars for
// character-based strategies). Aligns to a word boundary.
func extractOverlap(text string, maxSize int) string {
	if maxSize <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	var kept []string
	for i := len(words) - 1; i >= 0; i-- {
		candidateLen := len(words[i]) + 1
		if b.Len()+candidateLen > maxSize && len(kept) > 0 {
			break
		}
		kept = append([]string{words[i]}, kept...)
		b.WriteString(words[i])
		b.WriteString(" ")
	}
	return strings.Join(kept, " ")
}

// splitParagraphsPacked implements the `paragraphs` strategy: split on
// blank-line boundary, greedily pack up to ChunkSize characters, and
// carry ChunkOverlap characters of trailing context into the next
// fragment.
func splitParagraphsPacked(text string, cfg Config) []string {
	paragraphs := splitParagraphs(text)
	return packPieces(paragraphs, cfg, splitSentencesPacked)
}

// splitSentencesPacked implements the `sentences` strategy.
func splitSentencesPacked(text string, cfg Config) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return packPieces(sentences, cfg, nil)
}

// packPieces greedily concatenates pieces (paragraphs or sentences)
// into fragments no longer than cfg.ChunkSize runes, carrying
// cfg.ChunkOverlap runes of trailing context forward. When a single
// piece itself exceeds ChunkSize, overflow splits it further via
// fallback (sentence splitting for paragraphs; nil falls back to a
// hard character split).
func packPieces(pieces []string, cfg Config, fallback func(string, Config) []string) []string {
	var fragments []string
	var current strings.Builder
	overlap := ""

	flush := func() {
		if current.Len() == 0 {
			return
		}
		fragments = append(fragments, strings.TrimSpace(current.String()))
		overlap = extractOverlap(current.String(), cfg.ChunkOverlap)
		current.Reset()
	}

	for _, piece := range pieces {
		if len([]rune(piece)) > cfg.ChunkSize {
			flush()
			if fallback != nil {
				fragments = append(fragments, fallback(piece, cfg)...)
			} else {
				fragments = append(fragments, splitCharacters(piece, cfg)...)
			}
			continue
		}

		projected := current.Len() + len(piece) + 2
		if current.Len() == 0 && overlap != "" {
			projected += len(overlap) + 2
		}
		if projected > cfg.ChunkSize && current.Len() > 0 {
			flush()
		}

		if current.Len() == 0 && overlap != "" {
			current.WriteString(overlap)
			current.WriteString(" ")
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(piece)
	}
	flush()
	return fragments
}
