package chunker

import (
	"regexp"
	"strings"
)

var markdownHeaderRe = regexp.MustCompile(`(?m)^(#{1,6})\s+.+$`)

// splitSections implements the `sections` strategy: split on markdown
// headers (#…######), keeping each header together with its body, then
// pack/overflow each section through the paragraph packer so no
// section exceeds ChunkSize.
func splitSections(text string, cfg Config) []string {
	locs := markdownHeaderRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return splitParagraphsPacked(text, cfg)
	}

	var sections []string
	start := 0
	if locs[0][0] > 0 {
		if preamble := strings.TrimSpace(text[0:locs[0][0]]); preamble != "" {
			sections = append(sections, preamble)
		}
	}
	for i, loc := range locs {
		start = loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		section := strings.TrimSpace(text[start:end])
		if section != "" {
			sections = append(sections, section)
		}
	}

	var out []string
	for _, sec := range sections {
		if len([]rune(sec)) <= cfg.ChunkSize {
			out = append(out, sec)
			continue
		}
		out = append(out, splitParagraphsPacked(sec, cfg)...)
	}
	return out
}
