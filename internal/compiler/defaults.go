package compiler

import (
	"sort"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// Defaults is the baseline configuration probed once per (compiler binary,
// language): the compiler's built-in include search path and predefined
// macros. Never mutated after construction; a rebuild replaces it wholesale.
type Defaults struct {
	// LocalIncludes come from the quote-form search path block.
	LocalIncludes []fspath.Path `json:"localIncludes,omitempty"`
	// SystemIncludes come from the angle-form search path block.
	SystemIncludes []fspath.Path `json:"systemIncludes,omitempty"`
	// Frameworks are macOS framework directories.
	Frameworks []fspath.Path `json:"frameworks,omitempty"`
	// Defines are the predefined macros.
	Defines map[string]string `json:"defines"`
}

// Includes returns the probed search path, quote form first, the way the
// compiler itself searches.
func (d *Defaults) Includes() []fspath.Path {
	out := make([]fspath.Path, 0, len(d.LocalIncludes)+len(d.SystemIncludes))
	out = append(out, d.LocalIncludes...)
	return append(out, d.SystemIncludes...)
}

// Config is the final normalized per-file configuration: the per-file
// contribution merged over the compiler defaults.
type Config struct {
	Includes       []fspath.Path
	Defines        map[string]string
	ForcedIncludes []fspath.Path
	Frameworks     []fspath.Path
	Standard       string
}

// Merge combines a per-file contribution with these defaults. Per-file
// includes come first in search order; per-file defines overwrite
// same-keyed defaults; duplicate paths are dropped keeping the first
// occurrence.
func (d *Defaults) Merge(fc *FileConfig) *Config {
	cfg := &Config{
		Defines:  make(map[string]string, len(d.Defines)+len(fc.Defines)),
		Standard: fc.Standard,
	}

	for k, v := range d.Defines {
		cfg.Defines[k] = v
	}
	for k, v := range fc.Defines {
		cfg.Defines[k] = v
	}

	cfg.Includes = dedupePaths(fc.Includes, d.Includes())
	cfg.ForcedIncludes = dedupePaths(fc.ForcedIncludes, nil)
	cfg.Frameworks = dedupePaths(fc.Frameworks, d.Frameworks)

	return cfg
}

// DefineList renders the merged defines as KEY=VALUE strings, sorted by key
// so output is deterministic.
func (c *Config) DefineList() []string {
	keys := make([]string, 0, len(c.Defines))
	for k := range c.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + c.Defines[k]
	}
	return out
}

// dedupePaths concatenates path lists preserving first-occurrence order.
func dedupePaths(lists ...[]fspath.Path) []fspath.Path {
	var out []fspath.Path
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, p := range list {
			if seen[p.String()] {
				continue
			}
			seen[p.String()] = true
			out = append(out, p)
		}
	}
	return out
}
