package extract

import (
	"regexp"
	"strings"

	"github.com/corelens/corelens/internal/blocks"
	"github.com/corelens/corelens/internal/lexer"
)

// targetChunkTokens and chunkOverlapTokens bound prose chunking. Token
// counts are estimated (len(content)/4, the common four-characters-
// per-token rule of thumb for English prose) rather than tokenized exactly,
// since prose chunking doesn't need embedding-accurate counts, only
// roughly even chunks.
const (
	targetChunkTokens = 400
	chunkOverlapTokens = 50
)

var (
	fenceOpenPattern = regexp.MustCompile("^```([A-Za-z0-9_+-]*)\\s*$")
	headingPattern   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
)

// ProseExtractor chunks Markdown, reStructuredText, and plain text
// files into Blocks. For Markdown: one KindOther block per fenced code
// block (tagged with the fence's language when recognized), and
// KindTextChunk blocks for the remaining heading-delimited prose, split
// further when a section exceeds targetChunkTokens. reStructuredText
// and plain text get no heading or fence handling: the whole file is
// one section, split by size alone.
type ProseExtractor struct{}

// NewProseExtractor creates a ProseExtractor. It holds no state and a
// single instance may be shared across goroutines.
func NewProseExtractor() *ProseExtractor {
	return &ProseExtractor{}
}

// Extract chunks content into Blocks, per the fence/heading rules
// described on ProseExtractor.
func (e *ProseExtractor) Extract(relativePath string, content []byte, language blocks.Language) ([]*blocks.Block, error) {
	lines := splitLines(content)

	var out []*blocks.Block
	if language == blocks.LanguageMarkdown {
		fences, remaining := extractFences(lines)
		out = append(out, e.buildFenceBlocks(relativePath, fences)...)
		out = append(out, e.chunkSections(relativePath, remaining, language)...)
		return out, nil
	}

	out = append(out, e.chunkSections(relativePath, lines, language)...)
	return out, nil
}

// fencedBlock is a fenced code span pulled out of Markdown before
// heading-based chunking runs over what's left.
type fencedBlock struct {
	lang      string
	startLine int
	endLine   int
	content   string
}

// extractFences removes ```-delimited spans from lines, returning them
// separately along with the remaining lines (fence lines blanked out
// in place so heading/line numbering of the remainder stays stable).
func extractFences(lines []string) ([]fencedBlock, []string) {
	var fences []fencedBlock
	remaining := make([]string, len(lines))
	copy(remaining, lines)

	i := 0
	for i < len(lines) {
		m := fenceOpenPattern.FindStringSubmatch(strings.TrimRight(lines[i], " \t"))
		if m == nil {
			i++
			continue
		}
		start := i
		lang := m[1]
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) != "```" {
			j++
		}
		end := j
		if end >= len(lines) {
			end = len(lines) - 1
		}

		var body []string
		for k := start + 1; k < end; k++ {
			body = append(body, lines[k])
		}
		fences = append(fences, fencedBlock{
			lang:      lang,
			startLine: start + 1,
			endLine:   end + 1,
			content:   strings.Join(body, "\n"),
		})
		for k := start; k <= end && k < len(remaining); k++ {
			remaining[k] = ""
		}
		i = end + 1
	}

	return fences, remaining
}

func (e *ProseExtractor) buildFenceBlocks(relativePath string, fences []fencedBlock) []*blocks.Block {
	out := make([]*blocks.Block, 0, len(fences))
	for _, f := range fences {
		if strings.TrimSpace(f.content) == "" {
			continue
		}
		name := "code block"
		if f.lang != "" {
			name = f.lang + " code block"
		}
		embeddingText := f.content + "\n" + lexer.Rejoin(lexer.Tokenize(name))
		language := blocks.LanguageMarkdown
		if l, ok := DefaultRegistry().ByExtension("." + strings.ToLower(f.lang)); ok {
			language = l
		} else if q, ok := DefaultRegistry().Query(blocks.Language(strings.ToLower(f.lang))); ok {
			language = q.Name
		}
		out = append(out, &blocks.Block{
			ID:            blocks.NewID(relativePath, f.startLine, name),
			RelativePath:  relativePath,
			Language:      language,
			Kind:          blocks.KindOther,
			Name:          name,
			StartLine:     f.startLine,
			EndLine:       f.endLine,
			Content:       f.content,
			EmbeddingText: embeddingText,
		})
	}
	return out
}

// section is a heading-delimited run of prose lines (or the whole
// document, for headless plain text / RST).
type section struct {
	title     string
	startLine int
	lines     []string
}

func (e *ProseExtractor) chunkSections(relativePath string, lines []string, language blocks.Language) []*blocks.Block {
	sections := splitSections(lines, language)

	var out []*blocks.Block
	for _, s := range sections {
		out = append(out, e.chunkSection(relativePath, s, language)...)
	}
	return out
}

// headingFrame is one open level in the heading stack: a "## B"
// nested under "# A" pushes {level: 2, title: "B"} while {level: 1,
// title: "A"} stays below it, so the chain joins to "A > B".
type headingFrame struct {
	level int
	title string
}

func splitSections(lines []string, language blocks.Language) []section {
	if language != blocks.LanguageMarkdown {
		return []section{{title: "", startLine: 1, lines: lines}}
	}

	var sections []section
	var stack []headingFrame
	cur := section{title: "", startLine: 1}
	for i, l := range lines {
		if m := headingPattern.FindStringSubmatch(l); m != nil {
			if len(cur.lines) > 0 || cur.title != "" {
				sections = append(sections, cur)
			}

			level := len(m[1])
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headingFrame{level: level, title: strings.TrimSpace(m[2])})

			titles := make([]string, len(stack))
			for j, f := range stack {
				titles[j] = f.title
			}
			cur = section{title: strings.Join(titles, " > "), startLine: i + 1}
			continue
		}
		cur.lines = append(cur.lines, l)
	}
	sections = append(sections, cur)
	return sections
}

func (e *ProseExtractor) chunkSection(relativePath string, s section, language blocks.Language) []*blocks.Block {
	body := strings.Join(s.lines, "\n")
	if strings.TrimSpace(body) == "" {
		return nil
	}

	estTokens := len(body) / 4
	if estTokens <= targetChunkTokens {
		return []*blocks.Block{e.buildTextBlock(relativePath, s.title, s.startLine, s.startLine+len(s.lines)-1, body, language)}
	}

	// Split into overlapping windows by estimated character budget
	// (targetChunkTokens/chunkOverlapTokens * 4 chars-per-token).
	charsPerChunk := targetChunkTokens * 4
	overlapChars := chunkOverlapTokens * 4

	var out []*blocks.Block
	lineOffsets := cumulativeLineOffsets(s.lines)
	pos := 0
	for pos < len(body) {
		end := pos + charsPerChunk
		if end > len(body) {
			end = len(body)
		}
		chunk := body[pos:end]
		startLine := s.startLine + lineForOffset(lineOffsets, pos)
		endLine := s.startLine + lineForOffset(lineOffsets, end-1)
		out = append(out, e.buildTextBlock(relativePath, s.title, startLine, endLine, chunk, language))

		if end >= len(body) {
			break
		}
		pos = end - overlapChars
		if pos < 0 {
			pos = 0
		}
	}
	return out
}

func (e *ProseExtractor) buildTextBlock(relativePath, title string, startLine, endLine int, body string, language blocks.Language) *blocks.Block {
	name := title
	if name == "" {
		name = "text chunk"
	}
	embeddingText := body + "\n" + lexer.Rejoin(lexer.Tokenize(name))
	return &blocks.Block{
		ID:            blocks.NewID(relativePath, startLine, name),
		RelativePath:  relativePath,
		Language:      language,
		Kind:          blocks.KindTextChunk,
		Name:          name,
		StartLine:     startLine,
		EndLine:       endLine,
		Content:       body,
		EmbeddingText: embeddingText,
	}
}

// cumulativeLineOffsets returns, for each line index, the character
// offset (within the joined body) at which that line starts.
func cumulativeLineOffsets(lines []string) []int {
	offsets := make([]int, len(lines)+1)
	pos := 0
	for i, l := range lines {
		offsets[i] = pos
		pos += len(l) + 1
	}
	offsets[len(lines)] = pos
	return offsets
}

func lineForOffset(offsets []int, charOffset int) int {
	lo, hi := 0, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if offsets[mid] <= charOffset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
