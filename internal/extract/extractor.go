package extract

import (
	"context"
	"fmt"

	"github.com/corelens/corelens/internal/blocks"
)

// codeLanguages are the languages routed through CodeExtractor; every
// other recognized language goes through ProseExtractor.
var codeLanguages = map[blocks.Language]bool{
	blocks.LanguageGo:         true,
	blocks.LanguageJavaScript: true,
	blocks.LanguageTypeScript: true,
	blocks.LanguageTSX:        true,
	blocks.LanguagePython:     true,
}

// Extractor dispatches a file to the code or prose path by language.
// A code-language file whose AST extraction returns an error yields
// that error; one that parses but yields no blocks is chunked as plain
// text by the prose path instead.
type Extractor struct {
	code  *CodeExtractor
	prose *ProseExtractor
}

// New creates an Extractor. The returned value owns a tree-sitter
// parser and must not be shared across goroutines; see CodeExtractor.
func New() *Extractor {
	return &Extractor{code: NewCodeExtractor(), prose: NewProseExtractor()}
}

// Close releases the underlying tree-sitter parser.
func (e *Extractor) Close() {
	e.code.Close()
}

// Extract routes content to the code or prose extraction path based on
// language and returns the resulting Blocks.
func (e *Extractor) Extract(ctx context.Context, relativePath string, content []byte, language blocks.Language) ([]*blocks.Block, error) {
	if !codeLanguages[language] {
		return e.prose.Extract(relativePath, content, language)
	}

	out, err := e.code.Extract(ctx, relativePath, content, language)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", relativePath, err)
	}
	if len(out) == 0 {
		return e.prose.Extract(relativePath, content, blocks.LanguageText)
	}
	return out, nil
}

// LanguageForExtension resolves the Language to extract a file as,
// from its extension, falling back to plain-text prose chunking for
// anything the code/markdown registries don't recognize.
func LanguageForExtension(ext string) blocks.Language {
	registry := DefaultRegistry()
	if lang, ok := registry.ByExtension(ext); ok {
		return lang
	}
	switch ext {
	case ".md", ".markdown":
		return blocks.LanguageMarkdown
	case ".rst":
		return blocks.LanguageRST
	default:
		return blocks.LanguageText
	}
}
