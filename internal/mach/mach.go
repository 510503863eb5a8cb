// Package mach talks to the mach build tool: the environment dump that
// anchors a folder to its source and object directories, and the per-file
// compile-flags query. It is the only package that knows what mach's output
// looks like.
package mach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/makevars"
	"github.com/FractalBrew/geckocpp/internal/proc"
)

// treeNotBuiltDiagnostic is the plain-text message mach prints when the
// object directory has not been produced yet. Matched as a substring of the
// combined output.
const treeNotBuiltDiagnostic = "Your tree has not been built yet"

// macosSDKArg is the configure argument carrying the macOS SDK root.
const macosSDKArg = "--with-macos-sdk="

// Options adjusts how the client invokes mach.
type Options struct {
	// Mach overrides the entry-point path. Zero means <folder>/mach.
	Mach fspath.Path
	// Env entries are overlaid on the inherited process environment for
	// every invocation.
	Env map[string]string
	// EnvFile is an optional dotenv file loaded beneath Env.
	EnvFile fspath.Path
	// MozillaBuild is the Windows MozillaBuild install root. When set,
	// invocations run through its login shell.
	MozillaBuild fspath.Path
}

// Client runs mach subcommands for one workspace folder.
type Client struct {
	runner       proc.Runner
	folder       fspath.Path
	mach         fspath.Path
	env          map[string]string
	mozillaBuild fspath.Path
	logger       *slog.Logger
}

// Environment is what `mach environment` plus the generated build config
// tell us about a tree.
type Environment struct {
	// ObjDir is the object (build output) directory.
	ObjDir fspath.Path
	// SrcDir is the source root.
	SrcDir fspath.Path
	// MozconfigPath is the mozconfig mach reported, for diagnostics.
	MozconfigPath string
	// MacOSSDK is the SDK root from --with-macos-sdk, zero when absent.
	MacOSSDK fspath.Path
	// Vars are the build variables from <objdir>/config/autoconf.mk.
	Vars makevars.Vars
}

// Locate returns the mach entry point for folder. override may be zero.
// The second return is false when no entry point exists.
func Locate(folder fspath.Path, override fspath.Path) (fspath.Path, bool) {
	entry := override
	if entry.IsZero() {
		entry = folder.Join("mach")
	}
	info, err := os.Stat(entry.String())
	if err != nil || info.IsDir() {
		return fspath.Path{}, false
	}
	return entry, true
}

// NewClient locates mach for folder and prepares the invocation
// environment. Returns a NOT_A_BUILD_TREE error when the entry point is
// absent.
func NewClient(runner proc.Runner, folder fspath.Path, opts Options, logger *slog.Logger) (*Client, error) {
	entry, ok := Locate(folder, opts.Mach)
	if !ok {
		return nil, errdefs.New(errdefs.NotABuildTree,
			fmt.Sprintf("no mach entry point in %s", folder), nil)
	}

	env := make(map[string]string)
	if !opts.EnvFile.IsZero() {
		fileEnv, err := godotenv.Read(opts.EnvFile.String())
		if err != nil {
			return nil, fmt.Errorf("failed to load mach env file %s: %w", opts.EnvFile, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for k, v := range opts.Env {
		env[k] = v
	}

	return &Client{
		runner:       runner,
		folder:       folder,
		mach:         entry,
		env:          env,
		mozillaBuild: opts.MozillaBuild,
		logger:       logger,
	}, nil
}

// Mach returns the entry point the client runs.
func (c *Client) Mach() fspath.Path {
	return c.mach
}

// Folder returns the workspace folder the client is bound to.
func (c *Client) Folder() fspath.Path {
	return c.folder
}

// Environment fetches the tree's environment and build variables.
func (c *Client) Environment(ctx context.Context) (*Environment, error) {
	res, err := c.run(ctx, fspath.StringArgs("environment", "--format", "json")...)
	if err != nil {
		return nil, err
	}

	var payload struct {
		TopObjDir string `json:"topobjdir"`
		TopSrcDir string `json:"topsrcdir"`
		Mozconfig struct {
			Path          string   `json:"path"`
			ConfigureArgs []string `json:"configure_args"`
		} `json:"mozconfig"`
	}
	if err := json.Unmarshal([]byte(res.Stdout()), &payload); err != nil {
		return nil, errdefs.New(errdefs.MalformedEnvironment,
			"environment output is not valid JSON", err)
	}

	if payload.TopObjDir == "" {
		return nil, errdefs.New(errdefs.MalformedEnvironment,
			"environment output is missing topobjdir", nil)
	}
	if payload.TopSrcDir == "" {
		return nil, errdefs.New(errdefs.MalformedEnvironment,
			"environment output is missing topsrcdir", nil)
	}

	objDir, err := fspath.New(payload.TopObjDir)
	if err != nil {
		return nil, errdefs.New(errdefs.MalformedEnvironment,
			fmt.Sprintf("topobjdir %q is not absolute", payload.TopObjDir), err)
	}
	srcDir, err := fspath.New(payload.TopSrcDir)
	if err != nil {
		return nil, errdefs.New(errdefs.MalformedEnvironment,
			fmt.Sprintf("topsrcdir %q is not absolute", payload.TopSrcDir), err)
	}

	environ := &Environment{
		ObjDir:        objDir,
		SrcDir:        srcDir,
		MozconfigPath: payload.Mozconfig.Path,
	}

	for _, arg := range payload.Mozconfig.ConfigureArgs {
		value, found := strings.CutPrefix(arg, macosSDKArg)
		if !found {
			continue
		}
		sdk, err := fspath.New(value)
		if err != nil {
			c.logger.Warn("ignoring malformed macOS SDK argument", "arg", arg)
			continue
		}
		environ.MacOSSDK = sdk
	}

	autoconf := objDir.Join("config", "autoconf.mk")
	vars, err := makevars.ParseFile(autoconf)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.New(errdefs.BuildRequired,
				fmt.Sprintf("%s does not exist; the tree has not been configured", autoconf), err)
		}
		return nil, fmt.Errorf("failed to read build variables from %s: %w", autoconf, err)
	}
	environ.Vars = vars

	c.logger.Debug("environment loaded",
		"objdir", objDir.String(), "srcdir", srcDir.String(), "vars", len(vars))
	return environ, nil
}

// CompileFlags fetches the raw compiler command line mach would use for
// file. The result is a single unsplit string.
func (c *Client) CompileFlags(ctx context.Context, file fspath.Path) (string, error) {
	res, err := c.run(ctx, fspath.StringArg("compileflags"), fspath.PathArg(file))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout()), nil
}

// run executes one mach subcommand with the folder as working directory and
// classifies the known tree-not-built diagnostic.
func (c *Client) run(ctx context.Context, args ...fspath.Arg) (*proc.Result, error) {
	argv := append([]fspath.Arg{fspath.PathArg(c.mach)}, args...)
	res, err := c.runner.Run(ctx, argv, proc.Options{
		Cwd:        c.folder,
		Env:        c.env,
		LoginShell: c.mozillaBuild,
	})
	if res != nil {
		c.logger.Debug("ran mach", "command", res.Printable(), "exit", res.ExitCode())
	}
	if err != nil {
		if res != nil && TreeNotBuilt(res) {
			return res, errdefs.New(errdefs.BuildRequired,
				"the tree has not been built yet", err)
		}
		return res, err
	}
	return res, nil
}

// TreeNotBuilt reports whether the captured output carries mach's
// tree-not-built diagnostic.
func TreeNotBuilt(res *proc.Result) bool {
	return strings.Contains(res.Combined(), treeNotBuiltDiagnostic)
}
