package extract

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/corelens/corelens/internal/blocks"
)

// LanguageQuery names the node types that map to one Kind for a given
// language.
type LanguageQuery struct {
	Name       blocks.Language
	Extensions []string

	FunctionTypes  []string
	MethodTypes    []string
	ClassTypes     []string
	InterfaceTypes []string
	StructTypes    []string
	EnumTypes      []string

	// NameField is the field name tree-sitter exposes for a node's
	// identifier child, used by the grammars in this registry.
	NameField string
}

// LanguageRegistry holds the query table and tree-sitter grammars for
// every code language corelens extracts, as a process-wide singleton
// behind lazy, mutex-guarded initialization — grammars are expensive
// to construct and safe to share for read-only queries.
type LanguageRegistry struct {
	mu        sync.RWMutex
	queries   map[blocks.Language]*LanguageQuery
	extToLang map[string]blocks.Language
	grammars  map[blocks.Language]*sitter.Language
}

var (
	defaultRegistry     *LanguageRegistry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide language registry,
// initializing it on first use.
func DefaultRegistry() *LanguageRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = newRegistry()
	})
	return defaultRegistry
}

func newRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		queries:   make(map[blocks.Language]*LanguageQuery),
		extToLang: make(map[string]blocks.Language),
		grammars:  make(map[blocks.Language]*sitter.Language),
	}
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	return r
}

func (r *LanguageRegistry) register(q *LanguageQuery, grammar *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries[q.Name] = q
	r.grammars[q.Name] = grammar
	for _, ext := range q.Extensions {
		r.extToLang[ext] = q.Name
	}
}

// ByExtension resolves a language from a file extension (case-insensitive).
func (r *LanguageRegistry) ByExtension(ext string) (blocks.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	lang, ok := r.extToLang[ext]
	return lang, ok
}

// Query returns the node-type table for a language.
func (r *LanguageRegistry) Query(lang blocks.Language) (*LanguageQuery, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queries[lang]
	return q, ok
}

func (r *LanguageRegistry) treeSitterLanguage(lang string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grammars[blocks.Language(lang)]
	return g, ok
}

// SupportedExtensions lists every extension with a code-path extractor.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		out = append(out, ext)
	}
	return out
}

func (r *LanguageRegistry) registerGo() {
	r.register(&LanguageQuery{
		Name:          blocks.LanguageGo,
		Extensions:    []string{".go"},
		FunctionTypes: []string{"function_declaration"},
		MethodTypes:   []string{"method_declaration"},
		StructTypes:   []string{"type_declaration"},
		NameField:     "name",
	}, golang.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	ts := &LanguageQuery{
		Name:           blocks.LanguageTypeScript,
		Extensions:     []string{".ts"},
		FunctionTypes:  []string{"function_declaration"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		NameField:      "name",
	}
	r.register(ts, typescript.GetLanguage())

	tsxQ := *ts
	tsxQ.Name = blocks.LanguageTSX
	tsxQ.Extensions = []string{".tsx"}
	r.register(&tsxQ, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	r.register(&LanguageQuery{
		Name:          blocks.LanguageJavaScript,
		Extensions:    []string{".js", ".jsx", ".mjs"},
		FunctionTypes: []string{"function_declaration", "function"},
		MethodTypes:   []string{"method_definition"},
		ClassTypes:    []string{"class_declaration"},
		NameField:     "name",
	}, javascript.GetLanguage())
}

func (r *LanguageRegistry) registerPython() {
	r.register(&LanguageQuery{
		Name:          blocks.LanguagePython,
		Extensions:    []string{".py"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_definition"},
		NameField:     "name",
	}, python.GetLanguage())
}
