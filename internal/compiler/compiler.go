package compiler

import (
	"fmt"
	"strings"

	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/shellwords"
)

// Settings are fixed at compiler creation time and communicated alongside
// every per-file configuration.
type Settings struct {
	IntelliSenseMode  string
	Standard          string
	WindowsSDKVersion string
	MacOSSDK          fspath.Path
}

// NewSettings fills the mode and standard from the dialect and language
// unless overridden.
func NewSettings(d Dialect, lang Language, standard, windowsSDK string, macosSDK fspath.Path) Settings {
	if standard == "" {
		standard = lang.DefaultStandard()
	}
	return Settings{
		IntelliSenseMode:  d.IntelliSenseMode(),
		Standard:          standard,
		WindowsSDKVersion: windowsSDK,
		MacOSSDK:          macosSDK,
	}
}

// Compiler binds one language's compiler binary to its dialect, settings
// and probed defaults. A folder owns exactly two: one per language.
type Compiler struct {
	Bin      string
	Lang     Language
	Dialect  Dialect
	Settings Settings
	Defaults *Defaults
}

// Configure merges a per-file contribution over the compiler's defaults,
// filling in the settings-level standard when the command line named none.
func (c *Compiler) Configure(fc *FileConfig) *Config {
	cfg := c.Defaults.Merge(fc)
	if cfg.Standard == "" {
		cfg.Standard = c.Settings.Standard
	}
	return cfg
}

// launchers are compiler-launcher wrappers that may prefix the real binary
// in build variables (CC = "ccache /usr/bin/clang").
var launchers = map[string]bool{
	"ccache":  true,
	"sccache": true,
	"icecc":   true,
	"distcc":  true,
}

// ResolveBinary extracts the real compiler command from a build-variable
// value, skipping launcher prefixes. The result may be a bare command name
// resolved through PATH at spawn time.
func ResolveBinary(value string) (string, error) {
	for _, tok := range shellwords.Split(value) {
		base := strings.ToLower(strings.TrimSuffix(fspathBase(tok), ".exe"))
		if launchers[base] {
			continue
		}
		return tok, nil
	}
	return "", fmt.Errorf("no compiler binary in %q", value)
}
