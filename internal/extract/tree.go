// Package extract turns source files into Blocks: AST-query-based
// extraction for code languages, fenced/heading-based chunking for
// prose.
package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// node is a lightweight, source-attached view of a tree-sitter node.
// Converting once up front (rather than touching cgo-backed sitter
// nodes repeatedly during the AST walk) keeps the walk allocation-free
// and makes the extractor trivially testable without a parser.
type node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartLine  int // 1-based
	EndLine    int // 1-based, inclusive
	Children   []*node
	raw        *sitter.Node
}

// content returns the exact source slice this node spans.
func (n *node) content(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

func (n *node) childByType(t string) *node {
	for _, c := range n.Children {
		if c.Type == t {
			return c
		}
	}
	return nil
}

// walk visits n and all descendants in pre-order, stopping a branch
// early if visit returns false.
func (n *node) walk(visit func(*node) bool) {
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		c.walk(visit)
	}
}

// tree is a parsed source file.
type tree struct {
	root   *node
	source []byte
}

// parser wraps a tree-sitter parser bound to the language registry.
// Parsers are not goroutine-safe internally, so every worker in the
// indexer's extraction pool holds its own parser instead of sharing
// one across goroutines.
type parser struct {
	p        *sitter.Parser
	registry *LanguageRegistry
}

func newParser(registry *LanguageRegistry) *parser {
	return &parser{p: sitter.NewParser(), registry: registry}
}

func (p *parser) close() {
	p.p.Close()
}

func (p *parser) parse(ctx context.Context, source []byte, language string) (*tree, error) {
	tsLang, ok := p.registry.treeSitterLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
	p.p.SetLanguage(tsLang)

	tsTree, err := p.p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	if tsTree == nil {
		return nil, fmt.Errorf("parse source: nil tree")
	}

	return &tree{root: convert(tsTree.RootNode(), source), source: source}, nil
}

func convert(tsNode *sitter.Node, source []byte) *node {
	if tsNode == nil {
		return nil
	}
	n := &node{
		Type:      tsNode.Type(),
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		StartLine: int(tsNode.StartPoint().Row) + 1,
		EndLine:   int(tsNode.EndPoint().Row) + 1,
		raw:       tsNode,
		Children:  make([]*node, 0, tsNode.ChildCount()),
	}
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		if c := tsNode.Child(i); c != nil {
			n.Children = append(n.Children, convert(c, source))
		}
	}
	return n
}
