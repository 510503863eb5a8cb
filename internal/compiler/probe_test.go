package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/proc"
	"github.com/FractalBrew/geckocpp/internal/testutil"
)

// clangProbeOutput is a trimmed transcript of
// `clang -std=gnu99 -E -dD -Wp,-v -x c /dev/null` with stdout and stderr
// merged in arrival order.
const clangProbeOutput = `clang -cc1 version 17.0.6 based upon LLVM 17.0.6 default target x86_64-unknown-linux-gnu
ignoring nonexistent directory "/usr/local/include/x86_64-unknown-linux-gnu"
#include "..." search starts here:
#include <...> search starts here:
 /usr/lib/llvm-17/lib/clang/17/include
 /usr/local/include
 /usr/include
End of search list.
# 1 "/dev/null"
#define __STDC__ 1
#define __STDC_VERSION__ 199901L
#define __GNUC__ 4
#define __clang_version__ "17.0.6 (tags/RELEASE)"
#define __NO_MATH_ERRNO__
`

func TestParseProbeOutput(t *testing.T) {
	d := ParseProbeOutput(clangProbeOutput)

	wantSystem := []string{
		"/usr/lib/llvm-17/lib/clang/17/include",
		"/usr/local/include",
		"/usr/include",
	}
	if got := pathStrings(d.SystemIncludes); !reflect.DeepEqual(got, wantSystem) {
		t.Errorf("SystemIncludes = %v, want %v", got, wantSystem)
	}
	if len(d.LocalIncludes) != 0 {
		t.Errorf("LocalIncludes = %v, want none", pathStrings(d.LocalIncludes))
	}

	if got := d.Defines["__STDC__"]; got != "1" {
		t.Errorf("__STDC__ = %q", got)
	}
	if got := d.Defines["__STDC_VERSION__"]; got != "199901L" {
		t.Errorf("__STDC_VERSION__ = %q", got)
	}
	if got := d.Defines["__clang_version__"]; got != `"17.0.6 (tags/RELEASE)"` {
		t.Errorf("__clang_version__ = %q", got)
	}
	// A macro with no body reads as 1.
	if got := d.Defines["__NO_MATH_ERRNO__"]; got != "1" {
		t.Errorf("__NO_MATH_ERRNO__ = %q, want 1", got)
	}
}

func TestParseProbeOutputGolden(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture transcript uses posix paths")
	}

	raw, err := os.ReadFile(filepath.Join("testdata", "gcc-cpp-probe.txt"))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	d := ParseProbeOutput(string(raw))
	testutil.CompareJSON(t, filepath.Join("testdata", "gcc-cpp-probe.golden.json"), d)
}

// Parsing the same output twice yields identical sets.
func TestParseProbeOutputIdempotent(t *testing.T) {
	first := ParseProbeOutput(clangProbeOutput)
	second := ParseProbeOutput(clangProbeOutput)

	if !reflect.DeepEqual(first, second) {
		t.Error("two parses of the same output differ")
	}
}

func TestParseProbeOutputFrameworks(t *testing.T) {
	out := strings.Join([]string{
		`#include <...> search starts here:`,
		` /usr/include`,
		` /System/Library/Frameworks (framework directory)`,
		` /Library/Frameworks (framework directory)`,
		`End of search list.`,
		`#define __APPLE__ 1`,
	}, "\n")

	d := ParseProbeOutput(out)

	wantFw := []string{"/System/Library/Frameworks", "/Library/Frameworks"}
	if got := pathStrings(d.Frameworks); !reflect.DeepEqual(got, wantFw) {
		t.Errorf("Frameworks = %v, want %v", got, wantFw)
	}
	// Framework entries never land in the plain include set.
	for _, p := range d.SystemIncludes {
		if strings.Contains(p.String(), "Frameworks") {
			t.Errorf("framework directory leaked into SystemIncludes: %s", p)
		}
	}
	if len(d.SystemIncludes) != 1 || d.SystemIncludes[0].String() != "/usr/include" {
		t.Errorf("SystemIncludes = %v", pathStrings(d.SystemIncludes))
	}
}

func TestParseProbeOutputQuoteBlock(t *testing.T) {
	out := strings.Join([]string{
		`#include "..." search starts here:`,
		` /src/local`,
		`#include <...> search starts here:`,
		` /usr/include`,
		`End of search list.`,
	}, "\n")

	d := ParseProbeOutput(out)

	if len(d.LocalIncludes) != 1 || d.LocalIncludes[0].String() != "/src/local" {
		t.Errorf("LocalIncludes = %v", pathStrings(d.LocalIncludes))
	}
	if len(d.SystemIncludes) != 1 || d.SystemIncludes[0].String() != "/usr/include" {
		t.Errorf("SystemIncludes = %v", pathStrings(d.SystemIncludes))
	}
}

func TestParseProbeOutputDefineInsideBlockClosesIt(t *testing.T) {
	// A non-indented line ends the block and is still interpreted.
	out := strings.Join([]string{
		`#include <...> search starts here:`,
		` /usr/include`,
		`#define EARLY 1`,
		` /not/an/entry`,
	}, "\n")

	d := ParseProbeOutput(out)

	if d.Defines["EARLY"] != "1" {
		t.Error("define on the block-closing line should be recorded")
	}
	if len(d.SystemIncludes) != 1 {
		t.Errorf("SystemIncludes = %v, entry after block close should be ignored",
			pathStrings(d.SystemIncludes))
	}
}

type fakeRunner struct {
	res   *proc.Result
	err   error
	calls int
	argv  []string
}

func (f *fakeRunner) Run(ctx context.Context, argv []fspath.Arg, opts proc.Options) (*proc.Result, error) {
	f.calls++
	f.argv = fspath.RenderAll(argv)
	return f.res, f.err
}

func TestProbe(t *testing.T) {
	runner := &fakeRunner{
		res: proc.NewResult("clang -E", 0, proc.Chunk{Stream: proc.Stdout, Text: clangProbeOutput}),
	}

	d, res, err := Probe(context.Background(), runner, "/usr/bin/clang", Clang, C, "-std=gnu99", proc.Options{})
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if res == nil {
		t.Fatal("Probe should return the raw result")
	}
	if len(d.Defines) == 0 || len(d.SystemIncludes) == 0 {
		t.Error("Probe should populate defaults")
	}

	if runner.argv[0] != "/usr/bin/clang" {
		t.Errorf("argv[0] = %s", runner.argv[0])
	}
	if runner.argv[1] != "-std=gnu99" {
		t.Errorf("argv[1] = %s, std flag should lead", runner.argv[1])
	}
}

func TestProbeDiscoveryFailure(t *testing.T) {
	// Successful run, but no macros in the output.
	runner := &fakeRunner{
		res: proc.NewResult("cc -E", 0, proc.Chunk{Stream: proc.Stdout, Text: "nothing useful\n"}),
	}

	_, _, err := Probe(context.Background(), runner, "cc", Clang, CPP, "", proc.Options{})
	if err == nil {
		t.Fatal("Expected a discovery failure")
	}
	if !errdefs.IsCode(err, errdefs.DiscoveryFailed) {
		t.Errorf("error = %v, want DISCOVERY_FAILED", err)
	}
}

func TestProbePropagatesProcessError(t *testing.T) {
	res := proc.NewResult("cc -E", 1, proc.Chunk{Stream: proc.Stderr, Text: "bad option\n"})
	runner := &fakeRunner{res: res, err: &proc.ProcessError{Result: res, Err: errors.New("exit status 1")}}

	_, got, err := Probe(context.Background(), runner, "cc", Clang, C, "", proc.Options{})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !errdefs.IsCode(err, errdefs.ProcessFailed) {
		t.Errorf("error = %v, want PROCESS_FAILED", err)
	}
	if got != res {
		t.Error("Probe should hand back the partial result")
	}
}
