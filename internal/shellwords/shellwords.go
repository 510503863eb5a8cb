// Package shellwords splits raw compiler command lines into tokens the way
// a shell would, without invoking one. Build tools hand us whole command
// lines as single strings; downstream flag parsing needs discrete tokens.
package shellwords

import (
	"strings"
	"unicode"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// Split tokenizes s on unquoted whitespace. Single- and double-quoted spans
// group whitespace and are stripped from the result. A backslash escapes a
// following quote character, inside or outside a span; before any other
// character it stays a literal backslash, which keeps Windows path
// separators intact. Malformed input never fails: an unterminated quote
// consumes the remainder of the string as the final token, and a trailing
// lone backslash is dropped. Zero-length tokens are dropped.
func Split(s string) []string {
	var tokens []string
	var sb strings.Builder
	var quote rune
	escaped := false

	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}

	for _, c := range s {
		switch {
		case escaped:
			if c != '\'' && c != '"' {
				sb.WriteRune('\\')
			}
			sb.WriteRune(c)
			escaped = false
		case c == '\\':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				sb.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote = c
		case unicode.IsSpace(c):
			flush()
		default:
			sb.WriteRune(c)
		}
	}
	flush()

	return tokens
}

// SplitFunc splits like Split and passes every token through classify so
// callers can promote path-looking tokens to typed path arguments. A nil
// classify wraps each token as a literal.
func SplitFunc(s string, classify func(string) fspath.Arg) []fspath.Arg {
	tokens := Split(s)
	args := make([]fspath.Arg, 0, len(tokens))
	for _, tok := range tokens {
		if classify != nil {
			args = append(args, classify(tok))
		} else {
			args = append(args, fspath.StringArg(tok))
		}
	}
	return args
}
