package mach

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/proc"
)

type fakeRunner struct {
	res  *proc.Result
	err  error
	argv []string
	opts proc.Options
}

func (f *fakeRunner) Run(ctx context.Context, argv []fspath.Arg, opts proc.Options) (*proc.Result, error) {
	f.argv = fspath.RenderAll(argv)
	f.opts = opts
	return f.res, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTreeFolder creates a folder with a mach entry point and returns it.
func newTreeFolder(t *testing.T) fspath.Path {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mach"), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("writing mach stub: %v", err)
	}
	return fspath.MustNew(dir)
}

// environmentJSON renders a mach environment payload for the given tree.
func environmentJSON(t *testing.T, objdir, srcdir string, configureArgs []string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"topobjdir": objdir,
		"topsrcdir": srcdir,
		"mozconfig": map[string]any{
			"path":           filepath.Join(srcdir, "mozconfig"),
			"configure_args": configureArgs,
		},
	})
	if err != nil {
		t.Fatalf("marshaling environment: %v", err)
	}
	return string(raw)
}

func writeAutoconf(t *testing.T, objdir string, contents string) {
	t.Helper()
	confDir := filepath.Join(objdir, "config")
	if err := os.MkdirAll(confDir, 0755); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "autoconf.mk"), []byte(contents), 0644); err != nil {
		t.Fatalf("writing autoconf.mk: %v", err)
	}
}

func TestNewClientWithoutMach(t *testing.T) {
	_, err := NewClient(&fakeRunner{}, fspath.MustNew(t.TempDir()), Options{}, discardLogger())
	if err == nil {
		t.Fatal("NewClient succeeded for a folder without mach")
	}
	if !errdefs.IsCode(err, errdefs.NotABuildTree) {
		t.Errorf("NewClient error = %v, want NOT_A_BUILD_TREE", err)
	}
}

func TestLocate(t *testing.T) {
	folder := newTreeFolder(t)

	entry, ok := Locate(folder, fspath.Path{})
	if !ok {
		t.Fatal("Locate did not find mach")
	}
	if entry.Base() != "mach" {
		t.Errorf("Locate() = %s", entry)
	}

	if _, ok := Locate(fspath.MustNew(t.TempDir()), fspath.Path{}); ok {
		t.Error("Locate found mach in an empty folder")
	}
}

func TestLocateOverride(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "mach-dev")
	if err := os.WriteFile(custom, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("writing custom mach: %v", err)
	}

	entry, ok := Locate(fspath.MustNew(t.TempDir()), fspath.MustNew(custom))
	if !ok {
		t.Fatal("Locate ignored the override")
	}
	if entry.String() != custom {
		t.Errorf("Locate() = %s, want %s", entry, custom)
	}

	if _, ok := Locate(fspath.MustNew(t.TempDir()), fspath.MustNew(filepath.Join(dir, "absent"))); ok {
		t.Error("Locate accepted a missing override")
	}
}

func TestEnvironment(t *testing.T) {
	folder := newTreeFolder(t)
	objdir := t.TempDir()
	srcdir := t.TempDir()
	sdk := t.TempDir()
	writeAutoconf(t, objdir, "CC = ccache /usr/bin/clang\nCXX = /usr/bin/clang++\n")

	out := environmentJSON(t, objdir, srcdir, []string{"--enable-debug", "--with-macos-sdk=" + sdk})
	runner := &fakeRunner{
		res: proc.NewResult("mach environment", 0, proc.Chunk{Stream: proc.Stdout, Text: out}),
	}

	client, err := NewClient(runner, folder, Options{}, discardLogger())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	env, err := client.Environment(context.Background())
	if err != nil {
		t.Fatalf("Environment() = %v", err)
	}

	if env.ObjDir.String() != objdir {
		t.Errorf("ObjDir = %s, want %s", env.ObjDir, objdir)
	}
	if env.SrcDir.String() != srcdir {
		t.Errorf("SrcDir = %s, want %s", env.SrcDir, srcdir)
	}
	if env.MacOSSDK.String() != sdk {
		t.Errorf("MacOSSDK = %s, want %s", env.MacOSSDK, sdk)
	}
	if got := env.Vars.Get("CC"); got != "ccache /usr/bin/clang" {
		t.Errorf("Vars[CC] = %q", got)
	}
	if got := env.Vars.Get("CXX"); got != "/usr/bin/clang++" {
		t.Errorf("Vars[CXX] = %q", got)
	}

	// mach runs with the folder as working directory.
	if !runner.opts.Cwd.Equal(folder) {
		t.Errorf("Cwd = %s, want %s", runner.opts.Cwd, folder)
	}
	if len(runner.argv) != 4 || runner.argv[1] != "environment" || runner.argv[3] != "json" {
		t.Errorf("argv = %v", runner.argv)
	}
}

func TestEnvironmentMissingObjDir(t *testing.T) {
	folder := newTreeFolder(t)
	out := `{"topsrcdir": "/src"}`
	runner := &fakeRunner{
		res: proc.NewResult("mach environment", 0, proc.Chunk{Stream: proc.Stdout, Text: out}),
	}

	client, err := NewClient(runner, folder, Options{}, discardLogger())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	_, err = client.Environment(context.Background())
	if !errdefs.IsCode(err, errdefs.MalformedEnvironment) {
		t.Errorf("Environment() = %v, want MALFORMED_ENVIRONMENT", err)
	}
}

func TestEnvironmentBadJSON(t *testing.T) {
	folder := newTreeFolder(t)
	runner := &fakeRunner{
		res: proc.NewResult("mach environment", 0, proc.Chunk{Stream: proc.Stdout, Text: "Traceback (most recent call last):\n"}),
	}

	client, err := NewClient(runner, folder, Options{}, discardLogger())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	_, err = client.Environment(context.Background())
	if !errdefs.IsCode(err, errdefs.MalformedEnvironment) {
		t.Errorf("Environment() = %v, want MALFORMED_ENVIRONMENT", err)
	}
}

func TestEnvironmentTreeNotBuilt(t *testing.T) {
	folder := newTreeFolder(t)
	res := proc.NewResult("mach environment", 1,
		proc.Chunk{Stream: proc.Stderr, Text: "Your tree has not been built yet. Run |mach build|.\n"})
	runner := &fakeRunner{
		res: res,
		err: &proc.ProcessError{Result: res, Err: errors.New("exit status 1")},
	}

	client, err := NewClient(runner, folder, Options{}, discardLogger())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	_, err = client.Environment(context.Background())
	if !errdefs.IsCode(err, errdefs.BuildRequired) {
		t.Errorf("Environment() = %v, want BUILD_REQUIRED", err)
	}
}

func TestEnvironmentUnconfiguredTree(t *testing.T) {
	folder := newTreeFolder(t)
	objdir := t.TempDir() // no config/autoconf.mk
	out := environmentJSON(t, objdir, t.TempDir(), nil)
	runner := &fakeRunner{
		res: proc.NewResult("mach environment", 0, proc.Chunk{Stream: proc.Stdout, Text: out}),
	}

	client, err := NewClient(runner, folder, Options{}, discardLogger())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	_, err = client.Environment(context.Background())
	if !errdefs.IsCode(err, errdefs.BuildRequired) {
		t.Errorf("Environment() = %v, want BUILD_REQUIRED", err)
	}
}

func TestCompileFlags(t *testing.T) {
	folder := newTreeFolder(t)
	runner := &fakeRunner{
		res: proc.NewResult("mach compileflags", 0,
			proc.Chunk{Stream: proc.Stdout, Text: "-DFOO=1 -I/obj/include -std=c++17\n"}),
	}

	client, err := NewClient(runner, folder, Options{}, discardLogger())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	file := folder.Join("dom", "base", "Element.cpp")
	flags, err := client.CompileFlags(context.Background(), file)
	if err != nil {
		t.Fatalf("CompileFlags() = %v", err)
	}
	if flags != "-DFOO=1 -I/obj/include -std=c++17" {
		t.Errorf("CompileFlags() = %q", flags)
	}

	if len(runner.argv) != 3 || runner.argv[1] != "compileflags" || runner.argv[2] != file.String() {
		t.Errorf("argv = %v", runner.argv)
	}
}

func TestCompileFlagsFailure(t *testing.T) {
	folder := newTreeFolder(t)
	res := proc.NewResult("mach compileflags", 1,
		proc.Chunk{Stream: proc.Stderr, Text: "Error running mach\n"})
	runner := &fakeRunner{
		res: res,
		err: &proc.ProcessError{Result: res, Err: errors.New("exit status 1")},
	}

	client, err := NewClient(runner, folder, Options{}, discardLogger())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	_, err = client.CompileFlags(context.Background(), folder.Join("a.c"))
	if !errdefs.IsCode(err, errdefs.ProcessFailed) {
		t.Errorf("CompileFlags() = %v, want PROCESS_FAILED", err)
	}
}

func TestClientEnvironmentOverlay(t *testing.T) {
	folder := newTreeFolder(t)
	envFile := filepath.Join(t.TempDir(), "mach.env")
	if err := os.WriteFile(envFile, []byte("MOZCONFIG=/src/mozconfig\nMOZ_OBJDIR=/obj\n"), 0644); err != nil {
		t.Fatalf("writing env file: %v", err)
	}

	runner := &fakeRunner{
		res: proc.NewResult("mach compileflags", 0, proc.Chunk{Stream: proc.Stdout, Text: "-DFOO\n"}),
	}
	client, err := NewClient(runner, folder, Options{
		Env:     map[string]string{"MOZ_OBJDIR": "/obj-override"},
		EnvFile: fspath.MustNew(envFile),
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	if _, err := client.CompileFlags(context.Background(), folder.Join("a.c")); err != nil {
		t.Fatalf("CompileFlags() = %v", err)
	}

	if got := runner.opts.Env["MOZCONFIG"]; got != "/src/mozconfig" {
		t.Errorf("Env[MOZCONFIG] = %q", got)
	}
	// Explicit overrides beat the env file.
	if got := runner.opts.Env["MOZ_OBJDIR"]; got != "/obj-override" {
		t.Errorf("Env[MOZ_OBJDIR] = %q, want the explicit override", got)
	}
}

func TestClientMissingEnvFile(t *testing.T) {
	folder := newTreeFolder(t)
	_, err := NewClient(&fakeRunner{}, folder, Options{
		EnvFile: fspath.MustNew(filepath.Join(t.TempDir(), "absent.env")),
	}, discardLogger())
	if err == nil {
		t.Error("NewClient accepted a missing env file")
	}
}

func TestTreeNotBuilt(t *testing.T) {
	yes := proc.NewResult("mach", 1,
		proc.Chunk{Stream: proc.Stdout, Text: "Your tree has not been built yet."})
	if !TreeNotBuilt(yes) {
		t.Error("TreeNotBuilt missed the diagnostic")
	}

	no := proc.NewResult("mach", 1,
		proc.Chunk{Stream: proc.Stderr, Text: "some other failure"})
	if TreeNotBuilt(no) {
		t.Error("TreeNotBuilt matched unrelated output")
	}
}
