// Package makevars reads the generated make-fragment files the build
// backend leaves in the object directory (config/autoconf.mk, per-directory
// backend.mk). Only plain `KEY = VALUE` and `KEY += VALUE` assignments are
// meaningful there; rules, conditionals and comments are skipped.
package makevars

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// Vars is an accumulated key-value view of one parsed file.
type Vars map[string]string

// Get returns the value for key, or "" when absent.
func (v Vars) Get(key string) string {
	return v[key]
}

// Lookup returns the value for key and whether it was assigned at all.
func (v Vars) Lookup(key string) (string, bool) {
	val, ok := v[key]
	return val, ok
}

// Parse reads make-style assignments from r. A later `=` replaces the
// value; `+=` appends with a single space. Anything that is not an
// assignment is ignored.
func Parse(r io.Reader) (Vars, error) {
	vars := make(Vars)

	scanner := bufio.NewScanner(r)
	// Computed-flags lines in real trees run to tens of kilobytes.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		key, value, appendOp, ok := parseLine(line)
		if !ok {
			continue
		}
		if appendOp {
			if existing, present := vars[key]; present && existing != "" {
				if value != "" {
					vars[key] = existing + " " + value
				}
				continue
			}
		}
		vars[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

// ParseFile parses the file at path.
func ParseFile(path fspath.Path) (Vars, error) {
	f, err := os.Open(path.String())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func parseLine(line string) (key, value string, appendOp bool, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false, false
	}

	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false, false
	}

	keyEnd := idx
	if idx > 0 && line[idx-1] == '+' {
		appendOp = true
		keyEnd = idx - 1
	}

	key = strings.TrimSpace(line[:keyEnd])
	if key == "" || strings.ContainsAny(key, " \t:#") {
		return "", "", false, false
	}

	value = strings.TrimSpace(line[idx+1:])
	return key, value, appendOp, true
}
