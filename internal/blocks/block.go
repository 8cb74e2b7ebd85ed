// Package blocks defines the core unit of indexing for corelens: a
// contiguous, semantically coherent region of a source file.
package blocks

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Language identifies the source language a Block was extracted from.
type Language string

const (
	LanguageGo         Language = "go"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
	LanguagePython     Language = "python"
	LanguageMarkdown   Language = "markdown"
	LanguageText       Language = "text"
	LanguageRST        Language = "rst"
	LanguageUnknown    Language = "unknown"
)

// Kind is the syntactic role a Block plays in its source file.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindTrait     Kind = "trait"
	KindImpl      Kind = "impl"
	KindInterface Kind = "interface"
	KindModule    Kind = "module"
	KindTextChunk Kind = "text_chunk"
	KindOther     Kind = "other"
)

// Block is the unit of indexing: a contiguous region of a source file
// with a recognized syntactic role.
type Block struct {
	// ID is stable for a given (RelativePath, StartLine, Name) as long
	// as name and start line are unchanged across re-extractions.
	ID string

	// RelativePath is POSIX-form, relative to the index root.
	RelativePath string

	Language Language
	Kind     Kind

	// Name is the declared identifier, or a synthesized name for prose
	// chunks ("H1 > H2") and anonymous nodes ("<anonymous>").
	Name string

	// StartLine/EndLine are 1-based and inclusive.
	StartLine int
	EndLine   int

	// Content is the exact source bytes spanning [StartLine, EndLine].
	Content string

	// EmbeddingText is the text handed to the embedder. Usually equal
	// to Content, augmented with identifier-split terms for lexical
	// recall (see internal/lexer).
	EmbeddingText string
}

// NewID derives the stable id for a block from its identity triple.
// Start line and name are included so that two blocks in the same file
// never collide and so that insertion order within a build batch is
// never an observable source of id collisions (see corelens's ordering
// guarantees around id assignment).
func NewID(relativePath string, startLine int, name string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", relativePath, startLine, name)))
	return hex.EncodeToString(sum[:])[:24]
}

// Lines reports the inclusive line span length.
func (b *Block) Lines() int {
	if b.EndLine < b.StartLine {
		return 0
	}
	return b.EndLine - b.StartLine + 1
}

// Contains reports whether b fully contains other's line span.
func (b *Block) Contains(other *Block) bool {
	return b.StartLine <= other.StartLine && b.EndLine >= other.EndLine
}

// ResidualLines returns the number of lines in b not covered by other,
// assuming b.Contains(other). Used by the nested-dedup heuristic.
func (b *Block) ResidualLines(other *Block) int {
	return b.Lines() - other.Lines()
}

// IsProse reports whether the block came from the prose extraction
// path (markdown/text/rst) rather than an AST query.
func (b *Block) IsProse() bool {
	return b.Kind == KindTextChunk
}
