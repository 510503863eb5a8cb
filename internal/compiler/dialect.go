// Package compiler turns per-file compiler command lines and compiler probe
// output into normalized code-intelligence configurations. It understands
// two flag dialects, Clang-like and MSVC-like, as a closed set.
package compiler

import (
	"os"
	"strings"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// Language selects which of a folder's two compilers applies to a file.
type Language int

const (
	// C language sources (.c and headers with a same-named .c sibling)
	C Language = iota
	// CPP covers C++ sources and headers
	CPP
)

// String implements fmt.Stringer
func (l Language) String() string {
	if l == C {
		return "c"
	}
	return "c++"
}

// DefaultStandard is the language standard assumed when configuration does
// not override it.
func (l Language) DefaultStandard() string {
	if l == C {
		return "c99"
	}
	return "c++17"
}

// Dialect is the flag convention a compiler driver follows. The set is
// closed: new dialects are rare and each needs explicit support in the
// parser and prober anyway.
type Dialect int

const (
	// Clang covers clang and gcc style drivers
	Clang Dialect = iota
	// MSVC covers cl and clang-cl style drivers
	MSVC
)

// String implements fmt.Stringer
func (d Dialect) String() string {
	if d == MSVC {
		return "msvc"
	}
	return "clang"
}

// IntelliSenseMode is the dialect tag communicated to the code-intelligence
// host.
func (d Dialect) IntelliSenseMode() string {
	if d == MSVC {
		return "msvc-x64"
	}
	return "clang-x64"
}

// DialectForBinary infers the dialect from the compiler binary name.
// cl and clang-cl take MSVC-style flags; everything else is Clang-like.
func DialectForBinary(bin string) Dialect {
	base := strings.ToLower(strings.TrimSuffix(fspathBase(bin), ".exe"))
	switch base {
	case "cl", "clang-cl":
		return MSVC
	}
	return Clang
}

// definePrefixes are the spellings that introduce a macro definition.
func (d Dialect) definePrefixes() []string {
	if d == MSVC {
		return []string{"-D", "/D"}
	}
	return []string{"-D"}
}

// includePrefixes are the spellings that introduce an include directory.
func (d Dialect) includePrefixes() []string {
	if d == MSVC {
		return []string{"-I", "/I"}
	}
	return []string{"-I"}
}

// forcedIncludeFlags are the spellings that inject a header into every
// translation unit. Clang's -include only takes a separate argument; the
// MSVC spellings also accept the attached form.
func (d Dialect) forcedIncludeFlags() []string {
	if d == MSVC {
		return []string{"-FI", "/FI"}
	}
	return []string{"-include"}
}

// probeArgs builds the preprocessor-dump invocation used to discover the
// compiler's built-in defaults. stdFlag may be empty.
func (d Dialect) probeArgs(lang Language, stdFlag string) []fspath.Arg {
	var args []fspath.Arg
	if d == MSVC {
		if lang == C {
			args = append(args, fspath.StringArg("/TC"))
		} else {
			args = append(args, fspath.StringArg("/TP"))
		}
		args = append(args, fspath.StringArgs("-E", "-Xclang", "-dM", "-v")...)
	} else {
		if stdFlag != "" {
			args = append(args, fspath.StringArg(stdFlag))
		}
		args = append(args, fspath.StringArgs("-E", "-dD", "-Wp,-v", "-x", lang.String())...)
	}
	return append(args, fspath.StringArg(os.DevNull))
}

// StdFlag renders the standard-selection flag for this dialect, or "" when
// the dialect's probe does not take one.
func (d Dialect) StdFlag(standard string) string {
	if d == MSVC || standard == "" {
		return ""
	}
	return "-std=" + standard
}

func fspathBase(s string) string {
	// The value may use either separator regardless of platform; build
	// variables written by configure on Windows often carry forward slashes.
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		return s[i+1:]
	}
	return s
}
