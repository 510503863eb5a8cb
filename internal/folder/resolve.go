package folder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FractalBrew/geckocpp/internal/compiler"
	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/makevars"
	"github.com/FractalBrew/geckocpp/internal/shellwords"
)

// FileConfiguration is the normalized per-file answer in the shape the
// code-intelligence host consumes.
type FileConfiguration struct {
	IncludePath       []fspath.Path `json:"includePath"`
	Defines           []string      `json:"defines"`
	ForcedInclude     []fspath.Path `json:"forcedInclude,omitempty"`
	MacFrameworkPath  []fspath.Path `json:"macFrameworkPath,omitempty"`
	IntelliSenseMode  string        `json:"intelliSenseMode"`
	Standard          string        `json:"standard"`
	CompilerPath      string        `json:"compilerPath,omitempty"`
	WindowsSDKVersion string        `json:"windowsSdkVersion,omitempty"`
}

// Configuration resolves the normalized configuration for one file. A file
// outside the build, a non-C/C++ file, or a directory without generated
// flags yields a CONFIG_UNAVAILABLE error; the host treats that as "no
// configuration", not a failure.
func (f *Folder) Configuration(file fspath.Path) (*FileConfiguration, error) {
	build := f.Build()
	if build == nil {
		return nil, errdefs.New(errdefs.ConfigUnavailable,
			"folder is not a recognized build tree", nil)
	}

	lang, ok := f.languageOf(file)
	if !ok {
		return nil, errdefs.New(errdefs.ConfigUnavailable,
			fmt.Sprintf("%s is not a C/C++ source", file.Base()), nil)
	}

	vars, buildDir, err := f.backendVars(build, file.Parent())
	if err != nil {
		return nil, err
	}

	value, ok := vars.Lookup(flagsVarFor(lang))
	if !ok {
		return nil, errdefs.New(errdefs.ConfigUnavailable,
			fmt.Sprintf("%s defines no %s", buildDir.Join("backend.mk"), flagsVarFor(lang)), nil)
	}

	comp := build.CompilerFor(lang)
	fc := compiler.ParseFileFlags(comp.Dialect, shellwords.Split(value), pathConverter(buildDir))
	cfg := comp.Configure(fc)

	return &FileConfiguration{
		IncludePath:       cfg.Includes,
		Defines:           cfg.DefineList(),
		ForcedInclude:     cfg.ForcedIncludes,
		MacFrameworkPath:  cfg.Frameworks,
		IntelliSenseMode:  comp.Settings.IntelliSenseMode,
		Standard:          cfg.Standard,
		CompilerPath:      comp.Bin,
		WindowsSDKVersion: comp.Settings.WindowsSDKVersion,
	}, nil
}

// languageOf determines the language for file. The second return is false
// for files that are neither C/C++ sources nor headers.
func (f *Folder) languageOf(file fspath.Path) (compiler.Language, bool) {
	switch strings.ToLower(filepath.Ext(file.String())) {
	case ".c":
		return compiler.C, true
	case ".cpp", ".cc", ".cxx", ".c++":
		return compiler.CPP, true
	case ".h", ".hh", ".hpp", ".hxx":
		return f.opts.Classifier.Header(file), true
	}
	return 0, false
}

// flagsVarFor names the per-language computed-flags build variable.
func flagsVarFor(lang compiler.Language) string {
	if lang == compiler.C {
		return "COMPUTED_CFLAGS"
	}
	return "COMPUTED_CXXFLAGS"
}

// backendVars locates and parses the generated backend.mk covering dir,
// through the per-build LRU keyed by path, mtime and generation. Generated
// sources already live under the object directory; everything else is
// re-rooted from the source tree.
func (f *Folder) backendVars(build *Build, dir fspath.Path) (makevars.Vars, fspath.Path, error) {
	buildDir := dir
	if !build.Env.ObjDir.Contains(dir) {
		rebased, err := dir.Rebase(build.Env.SrcDir, build.Env.ObjDir)
		if err != nil {
			return nil, fspath.Path{}, errdefs.New(errdefs.ConfigUnavailable,
				fmt.Sprintf("%s is outside the source tree", dir), err)
		}
		buildDir = rebased
	}

	mkPath := buildDir.Join("backend.mk")
	info, err := os.Stat(mkPath.String())
	if err != nil {
		return nil, fspath.Path{}, errdefs.New(errdefs.ConfigUnavailable,
			fmt.Sprintf("no backend.mk for %s", dir), err)
	}

	key := fmt.Sprintf("%s|%d|%s", mkPath, info.ModTime().UnixNano(), build.Generation)
	if vars, ok := f.backend.Get(key); ok {
		return vars, buildDir, nil
	}

	vars, err := makevars.ParseFile(mkPath)
	if err != nil {
		return nil, fspath.Path{}, errdefs.New(errdefs.ConfigUnavailable,
			fmt.Sprintf("cannot read %s", mkPath), err)
	}
	f.backend.Add(key, vars)
	return vars, buildDir, nil
}

// pathConverter resolves command-line path spellings against the directory
// the build compiles from.
func pathConverter(buildDir fspath.Path) compiler.PathConverter {
	return func(s string) (fspath.Path, error) {
		native := fspath.FromUnixy(s, fspath.NativeFlavor())
		if filepath.IsAbs(native) {
			return fspath.New(native)
		}
		return buildDir.Join(native), nil
	}
}
