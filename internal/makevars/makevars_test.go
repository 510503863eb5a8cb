package makevars

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

func TestParseAssignments(t *testing.T) {
	input := strings.Join([]string{
		"# generated by configure",
		"CC = /usr/bin/clang",
		"CXX = /usr/bin/clang++",
		"",
		"COMPUTED_CFLAGS = -DFOO -I/obj/include",
	}, "\n")

	vars, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := vars.Get("CC"); got != "/usr/bin/clang" {
		t.Errorf("CC = %q", got)
	}
	if got := vars.Get("CXX"); got != "/usr/bin/clang++" {
		t.Errorf("CXX = %q", got)
	}
	if got := vars.Get("COMPUTED_CFLAGS"); got != "-DFOO -I/obj/include" {
		t.Errorf("COMPUTED_CFLAGS = %q", got)
	}
}

func TestParseLastAssignmentWins(t *testing.T) {
	input := "CC = /usr/bin/gcc\nCC = /usr/bin/clang\n"

	vars, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := vars.Get("CC"); got != "/usr/bin/clang" {
		t.Errorf("CC = %q, want the last assignment", got)
	}
}

func TestParseAppend(t *testing.T) {
	input := strings.Join([]string{
		"COMPUTED_CXXFLAGS = -DXP_UNIX",
		"COMPUTED_CXXFLAGS += -I/obj/dist/include",
		"COMPUTED_CXXFLAGS += -fno-exceptions",
	}, "\n")

	vars, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := "-DXP_UNIX -I/obj/dist/include -fno-exceptions"
	if got := vars.Get("COMPUTED_CXXFLAGS"); got != want {
		t.Errorf("COMPUTED_CXXFLAGS = %q, want %q", got, want)
	}
}

func TestParseAppendWithoutAssignment(t *testing.T) {
	vars, err := Parse(strings.NewReader("FLAGS += -DX\nFLAGS += -DY\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := vars.Get("FLAGS"); got != "-DX -DY" {
		t.Errorf("FLAGS = %q, want %q", got, "-DX -DY")
	}
}

func TestParseAssignmentAfterAppendReplaces(t *testing.T) {
	vars, err := Parse(strings.NewReader("FLAGS = -DX\nFLAGS += -DY\nFLAGS = -DZ\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := vars.Get("FLAGS"); got != "-DZ" {
		t.Errorf("FLAGS = %q, want -DZ", got)
	}
}

func TestParseSkipsNonAssignments(t *testing.T) {
	input := strings.Join([]string{
		"# comment = not a var",
		"all: build",
		"\ttouch $@",
		"target: VAR = scoped",
		"ifdef MOZ_DEBUG",
		"DEBUG = 1",
		"endif",
		"NO EQUALS HERE",
	}, "\n")

	vars, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, ok := vars.Lookup("comment"); ok {
		t.Error("comment line should be skipped")
	}
	if _, ok := vars.Lookup("target: VAR"); ok {
		t.Error("target-scoped assignment should be skipped")
	}
	// Plain assignments inside conditionals are still seen; the parser has
	// no conditional awareness and that matches how the generated files are
	// consumed.
	if got := vars.Get("DEBUG"); got != "1" {
		t.Errorf("DEBUG = %q, want 1", got)
	}
}

func TestParseCRLF(t *testing.T) {
	vars, err := Parse(strings.NewReader("CC = cl.exe\r\nCXX = cl.exe\r\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := vars.Get("CC"); got != "cl.exe" {
		t.Errorf("CC = %q", got)
	}
}

func TestParseEmptyValue(t *testing.T) {
	vars, err := Parse(strings.NewReader("EMPTY =\nEMPTY += -DX\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := vars.Get("EMPTY"); got != "-DX" {
		t.Errorf("EMPTY = %q, want -DX", got)
	}

	if _, ok := vars.Lookup("EMPTY"); !ok {
		t.Error("EMPTY should be present even when first assigned empty")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backend.mk")
	content := "COMPUTED_CFLAGS = -DFOO -I/obj/include\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	vars, err := ParseFile(fspath.MustNew(path))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if got := vars.Get("COMPUTED_CFLAGS"); got != "-DFOO -I/obj/include" {
		t.Errorf("COMPUTED_CFLAGS = %q", got)
	}

	if _, err := ParseFile(fspath.MustNew(filepath.Join(dir, "missing.mk"))); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
