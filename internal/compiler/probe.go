package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/proc"
)

const (
	quoteBanner     = `#include "..." search starts here:`
	angleBanner     = `#include <...> search starts here:`
	frameworkSuffix = " (framework directory)"
	definePrefix    = "#define "
)

// Probe runs the compiler once with preprocessor-dump flags and parses its
// built-in include search path and predefined macros. A successful run that
// yields zero defines is reported as a discovery failure: an editor fed an
// empty macro set would mis-parse everything.
func Probe(ctx context.Context, runner proc.Runner, bin string, d Dialect, lang Language, stdFlag string, opts proc.Options) (*Defaults, *proc.Result, error) {
	argv := append([]fspath.Arg{fspath.StringArg(bin)}, d.probeArgs(lang, stdFlag)...)

	res, err := runner.Run(ctx, argv, opts)
	if err != nil {
		return nil, res, err
	}

	defaults := ParseProbeOutput(res.Combined())
	if len(defaults.Defines) == 0 {
		return nil, res, errdefs.New(errdefs.DiscoveryFailed,
			fmt.Sprintf("%s produced no predefined macros", res.Printable()), nil)
	}
	return defaults, res, nil
}

type probeBlock int

const (
	blockNone probeBlock = iota
	blockQuote
	blockAngle
)

// ParseProbeOutput walks the combined probe output line by line. The two
// search-path banners open a block for their category; indented lines
// inside a block are entries, with the framework-directory suffix diverting
// an entry to the framework set; any non-indented line closes the block.
// Macro lines are only meaningful outside a block. Parsing the same output
// twice yields identical sets.
func ParseProbeOutput(text string) *Defaults {
	defaults := &Defaults{Defines: make(map[string]string)}
	block := blockNone

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if line == quoteBanner {
			block = blockQuote
			continue
		}
		if line == angleBanner {
			block = blockAngle
			continue
		}

		if block != blockNone {
			if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
				addProbeEntry(defaults, block, line)
				continue
			}
			block = blockNone
			// fall through: the closing line may itself be meaningful
		}

		if strings.HasPrefix(line, definePrefix) {
			key, value := parseDefineLine(line[len(definePrefix):])
			if key != "" {
				defaults.Defines[key] = value
			}
		}
	}

	return defaults
}

func addProbeEntry(defaults *Defaults, block probeBlock, line string) {
	entry := strings.TrimSpace(line)

	framework := false
	if strings.HasSuffix(entry, frameworkSuffix) {
		framework = true
		entry = strings.TrimSpace(strings.TrimSuffix(entry, frameworkSuffix))
	}

	p, err := fspath.New(entry)
	if err != nil {
		return
	}

	switch {
	case framework:
		defaults.Frameworks = append(defaults.Frameworks, p)
	case block == blockQuote:
		defaults.LocalIncludes = append(defaults.LocalIncludes, p)
	default:
		defaults.SystemIncludes = append(defaults.SystemIncludes, p)
	}
}

// parseDefineLine splits a macro body at the first space or '='. A macro
// with no body is recorded as "1", matching compiler -D semantics.
func parseDefineLine(body string) (key, value string) {
	sep := strings.IndexAny(body, " =")
	if sep < 0 {
		return strings.TrimSpace(body), "1"
	}
	key = body[:sep]
	value = strings.TrimSpace(body[sep+1:])
	if value == "" {
		value = "1"
	}
	return key, value
}
