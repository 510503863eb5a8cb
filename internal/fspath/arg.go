package fspath

// Arg is one element of a command line: either a literal string token or a
// Path. Keeping paths typed until execution lets platform-specific rendering
// (separator conversion for emulation-layer shells) happen at spawn time
// instead of at parse time.
type Arg struct {
	lit    string
	path   Path
	isPath bool
}

// StringArg wraps a literal token.
func StringArg(s string) Arg {
	return Arg{lit: s}
}

// PathArg wraps a path token.
func PathArg(p Path) Arg {
	return Arg{path: p, isPath: true}
}

// StringArgs wraps a sequence of literal tokens.
func StringArgs(ss ...string) []Arg {
	args := make([]Arg, len(ss))
	for i, s := range ss {
		args[i] = StringArg(s)
	}
	return args
}

// IsPath reports whether the argument is a typed path.
func (a Arg) IsPath() bool {
	return a.isPath
}

// Path returns the typed path, if the argument is one.
func (a Arg) Path() (Path, bool) {
	return a.path, a.isPath
}

// String renders the argument natively.
func (a Arg) String() string {
	if a.isPath {
		return a.path.String()
	}
	return a.lit
}

// RenderAll renders a command line to plain strings for execution.
func RenderAll(args []Arg) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.String()
	}
	return out
}
