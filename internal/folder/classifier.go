package folder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/FractalBrew/geckocpp/internal/compiler"
	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// Classifier decides the language of a header file. Header classification
// is a heuristic with known false negatives, so the rule is swappable.
type Classifier interface {
	Header(path fspath.Path) compiler.Language
}

// SiblingClassifier is the default rule: a .h header with a same-named .c
// sibling is C, every other header is C++.
type SiblingClassifier struct{}

// Header implements Classifier.
func (SiblingClassifier) Header(path fspath.Path) compiler.Language {
	s := path.String()
	ext := filepath.Ext(s)
	if strings.EqualFold(ext, ".h") {
		sibling := strings.TrimSuffix(s, ext) + ".c"
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
			return compiler.C
		}
	}
	return compiler.CPP
}

// maxHeaderBytes bounds how much of a header the content classifier reads.
const maxHeaderBytes = 256 * 1024

// cppOnlyNodeTypes are syntax constructs C cannot express.
var cppOnlyNodeTypes = map[string]bool{
	"namespace_definition": true,
	"template_declaration": true,
	"class_specifier":      true,
	"reference_declarator": true,
	"using_declaration":    true,
}

// ContentClassifier parses header text with the C++ grammar and looks for
// constructs C cannot express. Headers without such evidence fall back to
// the sibling rule, so a C++ header sitting next to a same-named .c file is
// still classified correctly.
type ContentClassifier struct {
	fallback Classifier

	mu     sync.Mutex
	parser *sitter.Parser
}

// NewContentClassifier builds a content classifier falling back to the
// sibling rule.
func NewContentClassifier() *ContentClassifier {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	return &ContentClassifier{
		fallback: SiblingClassifier{},
		parser:   parser,
	}
}

// Header implements Classifier.
func (c *ContentClassifier) Header(path fspath.Path) compiler.Language {
	content, err := readHeader(path.String())
	if err == nil && c.hasCPPConstructs(content) {
		return compiler.CPP
	}
	return c.fallback.Header(path)
}

func (c *ContentClassifier) hasCPPConstructs(content []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	tree, err := c.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return false
	}
	defer tree.Close()

	found := false
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil || found {
			return
		}
		if cppOnlyNodeTypes[node.Type()] {
			found = true
			return
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}
	walk(tree.RootNode())
	return found
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxHeaderBytes))
}
