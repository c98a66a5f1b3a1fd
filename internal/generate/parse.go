package generate

import (
	"regexp"
	"strings"

	"masterplan-studio/internal/jobs"
)

// Model output interleaves prose with SVG, either inline or inside ```svg
// fences. ExtractBlocks splits it into ordered text/svg content blocks.
var svgPattern = regexp.MustCompile("(?is)```svg\\s*(<svg.*?</svg>)\\s*```|(<svg.*?</svg>)")

// ExtractBlocks parses a model response into content blocks. Responses with
// no SVG at all become a single text block; empty prose segments between
// SVGs are dropped.
func ExtractBlocks(text string) []jobs.ContentBlock {
	matches := svgPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []jobs.ContentBlock{{Type: jobs.BlockText, Content: trimmed}}
	}

	var blocks []jobs.ContentBlock
	last := 0
	for _, m := range matches {
		if prose := strings.TrimSpace(text[last:m[0]]); prose != "" {
			blocks = append(blocks, jobs.ContentBlock{Type: jobs.BlockText, Content: prose})
		}
		svg := submatch(text, m, 1)
		if svg == "" {
			svg = submatch(text, m, 2)
		}
		if svg != "" {
			blocks = append(blocks, jobs.ContentBlock{Type: jobs.BlockSVG, Content: svg})
		}
		last = m[1]
	}
	if prose := strings.TrimSpace(text[last:]); prose != "" {
		blocks = append(blocks, jobs.ContentBlock{Type: jobs.BlockText, Content: prose})
	}
	return blocks
}

func submatch(text string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return strings.TrimSpace(text[m[2*n]:m[2*n+1]])
}
