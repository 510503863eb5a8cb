package folder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/FractalBrew/geckocpp/internal/compiler"
	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// writeHeader drops a header (and optionally a same-named .c sibling) into
// a fresh directory and returns the header path.
func writeHeader(t *testing.T, name, content string, withCSibling bool) fspath.Path {
	t.Helper()
	dir := t.TempDir()
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	if withCSibling {
		sibling := full[:len(full)-len(filepath.Ext(full))] + ".c"
		if err := os.WriteFile(sibling, []byte("int x;\n"), 0644); err != nil {
			t.Fatalf("writing sibling: %v", err)
		}
	}
	return fspath.MustNew(full)
}

func TestSiblingClassifier(t *testing.T) {
	cases := []struct {
		name         string
		header       string
		withCSibling bool
		want         compiler.Language
	}{
		{"h with c sibling", "util.h", true, compiler.C},
		{"h without sibling", "util.h", false, compiler.CPP},
		{"uppercase h with c sibling", "util.H", true, compiler.C},
		{"hpp is always c++", "util.hpp", true, compiler.CPP},
		{"hxx is always c++", "util.hxx", false, compiler.CPP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeHeader(t, tc.header, "int declared(void);\n", tc.withCSibling)
			if got := (SiblingClassifier{}).Header(path); got != tc.want {
				t.Errorf("Header(%s) = %v, want %v", tc.header, got, tc.want)
			}
		})
	}
}

func TestSiblingClassifierDirectorySibling(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "thing.h")
	if err := os.WriteFile(header, []byte("int x;\n"), 0644); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	// A directory named thing.c is not a sibling source file.
	if err := os.Mkdir(filepath.Join(dir, "thing.c"), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if got := (SiblingClassifier{}).Header(fspath.MustNew(header)); got != compiler.CPP {
		t.Errorf("Header() = %v, want c++ when the sibling is a directory", got)
	}
}

func TestContentClassifier(t *testing.T) {
	cases := []struct {
		name         string
		content      string
		withCSibling bool
		want         compiler.Language
	}{
		{
			name:         "namespace overrides sibling",
			content:      "namespace mozilla {\nvoid Init();\n}\n",
			withCSibling: true,
			want:         compiler.CPP,
		},
		{
			name:         "template overrides sibling",
			content:      "template <typename T>\nT Clamp(T v);\n",
			withCSibling: true,
			want:         compiler.CPP,
		},
		{
			name:         "class overrides sibling",
			content:      "class Widget {\n public:\n  int size;\n};\n",
			withCSibling: true,
			want:         compiler.CPP,
		},
		{
			name:         "plain c falls back to sibling rule",
			content:      "struct point { int x; int y; };\nint dot(struct point a, struct point b);\n",
			withCSibling: true,
			want:         compiler.C,
		},
		{
			name:         "plain c without sibling",
			content:      "struct point { int x; int y; };\n",
			withCSibling: false,
			want:         compiler.CPP,
		},
	}
	c := NewContentClassifier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeHeader(t, "sample.h", tc.content, tc.withCSibling)
			if got := c.Header(path); got != tc.want {
				t.Errorf("Header() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestContentClassifierMissingFile(t *testing.T) {
	c := NewContentClassifier()
	path := fspath.MustNew(t.TempDir()).Join("absent.h")
	if got := c.Header(path); got != compiler.CPP {
		t.Errorf("Header() = %v, want the fallback for unreadable headers", got)
	}
}
