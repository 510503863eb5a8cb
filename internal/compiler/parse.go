package compiler

import (
	"strings"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// PathConverter turns a path as spelled on the build tool's command line
// (forward-slash, possibly relative, possibly in emulation-layer notation)
// into a native absolute path.
type PathConverter func(string) (fspath.Path, error)

// FileConfig is the per-file contribution parsed from one compiler command
// line. It is transient: recomputed per request and merged with the
// compiler's probed Defaults.
type FileConfig struct {
	Includes       []fspath.Path
	Defines        map[string]string
	ForcedIncludes []fspath.Path
	Frameworks     []fspath.Path
	Standard       string
}

// ParseFileFlags extracts the code-intelligence-relevant pieces of a
// tokenized compiler command line. Scanning is strictly left to right;
// flags that take a following argument are consumed together with it.
// Unrecognized flags are skipped: most of a real command line (warning
// switches, codegen options) is meaningless to an editor.
func ParseFileFlags(d Dialect, tokens []string, conv PathConverter) *FileConfig {
	fc := &FileConfig{Defines: make(map[string]string)}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		// Flags that consume the next token.
		if tok == "-isysroot" {
			// Already captured separately as the SDK root.
			i++
			continue
		}
		if isFlag(d.forcedIncludeFlags(), tok) {
			if i+1 < len(tokens) {
				i++
				if p, err := conv(tokens[i]); err == nil {
					fc.ForcedIncludes = append(fc.ForcedIncludes, p)
				}
			}
			continue
		}

		// MSVC-style forced includes also attach the filename.
		if d == MSVC {
			if rest, ok := attached(d.forcedIncludeFlags(), tok); ok {
				if p, err := conv(rest); err == nil {
					fc.ForcedIncludes = append(fc.ForcedIncludes, p)
				}
				continue
			}
		}

		if rest, ok := attached(d.definePrefixes(), tok); ok {
			key, value := splitDefine(rest)
			if key != "" {
				fc.Defines[key] = value
			}
			continue
		}

		if isFlag(d.includePrefixes(), tok) {
			if i+1 < len(tokens) {
				i++
				if p, err := conv(tokens[i]); err == nil {
					fc.Includes = append(fc.Includes, p)
				}
			}
			continue
		}
		if rest, ok := attached(d.includePrefixes(), tok); ok {
			if p, err := conv(rest); err == nil {
				fc.Includes = append(fc.Includes, p)
			}
			continue
		}

		if d == Clang {
			if rest, ok := attached([]string{"-F"}, tok); ok {
				if p, err := conv(rest); err == nil {
					fc.Frameworks = append(fc.Frameworks, p)
				}
				continue
			}
			if rest, ok := attached([]string{"-std="}, tok); ok {
				fc.Standard = rest
				continue
			}
		}
	}

	return fc
}

// splitDefine breaks a define body at the first '='. A bare key gets the
// value "1", mirroring what the compiler itself would define.
func splitDefine(body string) (key, value string) {
	if idx := strings.Index(body, "="); idx >= 0 {
		return body[:idx], body[idx+1:]
	}
	return body, "1"
}

// isFlag reports an exact match against any spelling.
func isFlag(spellings []string, tok string) bool {
	for _, s := range spellings {
		if tok == s {
			return true
		}
	}
	return false
}

// attached reports a prefix match with a non-empty remainder, returning the
// remainder.
func attached(prefixes []string, tok string) (string, bool) {
	for _, p := range prefixes {
		if len(tok) > len(p) && strings.HasPrefix(tok, p) {
			return tok[len(p):], true
		}
	}
	return "", false
}
