package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/corelens/corelens/internal/blocks"
	"github.com/corelens/corelens/internal/lexer"
)

// CodeExtractor extracts Blocks from a code file using per-language
// tree-sitter queries.
type CodeExtractor struct {
	registry *LanguageRegistry
	parser   *parser
}

// NewCodeExtractor creates an extractor with its own tree-sitter
// parser. Callers running extraction in parallel must create one
// CodeExtractor per worker goroutine (see internal/indexer), since the
// underlying tree-sitter parser is not goroutine-safe.
func NewCodeExtractor() *CodeExtractor {
	registry := DefaultRegistry()
	return &CodeExtractor{registry: registry, parser: newParser(registry)}
}

// Close releases the tree-sitter parser.
func (e *CodeExtractor) Close() {
	e.parser.close()
}

// symbolMatch pairs a matched AST node with the Kind its grammar rule
// represents and the effective line span to emit (which, for a
// decorated definition, starts at the decorator rather than the
// definition keyword).
type symbolMatch struct {
	n         *node
	kind      blocks.Kind
	startLine int
	endLine   int
}

// Extract parses content as language and returns its Blocks, already
// nested-deduplicated.
func (e *CodeExtractor) Extract(ctx context.Context, relativePath string, content []byte, language blocks.Language) ([]*blocks.Block, error) {
	q, ok := e.registry.Query(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	t, err := e.parser.parse(ctx, content, string(language))
	if err != nil {
		return nil, err
	}

	matches := findSymbolMatches(t.root, symbolTypeMap(q))
	if len(matches) == 0 {
		return nil, nil
	}

	out := make([]*blocks.Block, 0, len(matches))
	for _, m := range matches {
		b := e.buildBlock(relativePath, content, q, m, language)
		out = append(out, b)
	}

	return dedupNested(out), nil
}

func symbolTypeMap(q *LanguageQuery) map[string]blocks.Kind {
	m := make(map[string]blocks.Kind)
	for _, t := range q.FunctionTypes {
		m[t] = blocks.KindFunction
	}
	for _, t := range q.MethodTypes {
		m[t] = blocks.KindMethod
	}
	for _, t := range q.ClassTypes {
		m[t] = blocks.KindClass
	}
	for _, t := range q.StructTypes {
		m[t] = blocks.KindStruct
	}
	for _, t := range q.InterfaceTypes {
		m[t] = blocks.KindInterface
	}
	for _, t := range q.EnumTypes {
		m[t] = blocks.KindEnum
	}
	return m
}

// findSymbolMatches walks the AST collecting every node whose type is
// a recognized symbol kind. "decorated_definition" wrappers (Python's
// `@deco\ndef f(): ...`) are special-cased: the match's start line is
// the decorator's, not the inner def's, but the walk still descends
// into the wrapped definition's body to find nested symbols (e.g.
// methods of a decorated class) without emitting the inner node twice.
func findSymbolMatches(root *node, types map[string]blocks.Kind) []symbolMatch {
	var out []symbolMatch
	consumed := map[*node]bool{}

	var visit func(n *node)
	visit = func(n *node) {
		if n.Type == "decorated_definition" {
			for _, c := range n.Children {
				if kind, ok := types[c.Type]; ok && !consumed[c] {
					out = append(out, symbolMatch{n: c, kind: kind, startLine: n.StartLine, endLine: c.EndLine})
					consumed[c] = true
					break
				}
			}
			for _, c := range n.Children {
				visit(c)
			}
			return
		}

		if kind, ok := types[n.Type]; ok && !consumed[n] {
			out = append(out, symbolMatch{n: n, kind: kind, startLine: n.StartLine, endLine: n.EndLine})
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(root)

	sort.SliceStable(out, func(i, j int) bool { return out[i].startLine < out[j].startLine })
	return out
}

func (e *CodeExtractor) buildBlock(relativePath string, content []byte, q *LanguageQuery, m symbolMatch, language blocks.Language) *blocks.Block {
	name := symbolName(m.n, content, q.NameField)
	if name == "" {
		name = "<anonymous>"
	}

	body := sliceLines(content, m.startLine, m.endLine)
	embeddingText := body + "\n" + lexer.Rejoin(lexer.Tokenize(name)) + " " + lexer.Rejoin(lexer.Tokenize(relativePath))

	return &blocks.Block{
		ID:            blocks.NewID(relativePath, m.startLine, name),
		RelativePath:  relativePath,
		Language:      language,
		Kind:          m.kind,
		Name:          name,
		StartLine:     m.startLine,
		EndLine:       m.endLine,
		Content:       body,
		EmbeddingText: embeddingText,
	}
}

// symbolName extracts the declared identifier for n via tree-sitter's
// named-field lookup on the original node, falling back to the first
// identifier-like child when the grammar doesn't expose the field.
func symbolName(n *node, source []byte, field string) string {
	if n.raw == nil {
		return ""
	}
	if field != "" {
		if named := n.raw.ChildByFieldName(field); named != nil {
			return string(source[named.StartByte():named.EndByte()])
		}
	}
	for i := 0; i < int(n.raw.ChildCount()); i++ {
		c := n.raw.Child(i)
		if c == nil {
			continue
		}
		if c.Type() == "identifier" || c.Type() == "property_identifier" || c.Type() == "type_identifier" {
			return string(source[c.StartByte():c.EndByte()])
		}
	}
	return ""
}

// sliceLines returns the 1-based inclusive [start, end] line range of
// content, tolerant of lines being clipped at file boundaries.
func sliceLines(content []byte, start, end int) string {
	lines := splitLines(content)
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end || start > len(lines) {
		return ""
	}
	out := lines[start-1 : end]
	result := ""
	for i, l := range out {
		if i > 0 {
			result += "\n"
		}
		result += l
	}
	return result
}

func splitLines(content []byte) []string {
	var lines []string
	start := 0
	for i, b := range content {
		if b == '\n' {
			lines = append(lines, string(content[start:i]))
			start = i + 1
		}
	}
	lines = append(lines, string(content[start:]))
	return lines
}

// containerKinds are the symbol kinds that name a scope other blocks
// nest inside (class C containing method m, etc). A container is kept
// even when a single nested block covers nearly all of its lines: a
// decorated single-method class must still yield both the class block
// and the method block, not just the inner one.
var containerKinds = map[blocks.Kind]bool{
	blocks.KindClass:     true,
	blocks.KindStruct:    true,
	blocks.KindInterface: true,
	blocks.KindEnum:      true,
	blocks.KindTrait:     true,
	blocks.KindImpl:      true,
	blocks.KindModule:    true,
}

// dedupNested applies nested block deduplication: after sorting by
// start line then -end line, a parent is dropped if its children
// collectively cover it such that the parent's non-child residual is
// <= 2 lines (a declaration line plus a decorator/docstring cluster).
// Container kinds (class/struct/interface/...) are never dropped this
// way, since a container and its sole member are distinct symbols a
// caller may search for independently, not redundant granularities of
// the same block.
func dedupNested(in []*blocks.Block) []*blocks.Block {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].StartLine != in[j].StartLine {
			return in[i].StartLine < in[j].StartLine
		}
		return in[i].EndLine > in[j].EndLine
	})

	drop := make(map[int]bool, len(in))
	for i, parent := range in {
		if drop[i] || containerKinds[parent.Kind] {
			continue
		}
		covered := 0
		for j, child := range in {
			if i == j || drop[j] {
				continue
			}
			if parent.StartLine <= child.StartLine && parent.EndLine >= child.EndLine && !(parent.StartLine == child.StartLine && parent.EndLine == child.EndLine) {
				covered += child.Lines()
			}
		}
		residual := parent.Lines() - covered
		if covered > 0 && residual <= 2 {
			drop[i] = true
		}
	}

	out := make([]*blocks.Block, 0, len(in))
	for i, b := range in {
		if !drop[i] {
			out = append(out, b)
		}
	}
	return out
}
