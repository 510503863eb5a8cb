package proc

import "strings"

// Stream identifies which output stream a captured chunk came from.
type Stream int

const (
	// Stdout is the standard-output stream
	Stdout Stream = iota
	// Stderr is the standard-error stream
	Stderr
)

// Chunk is one captured write from a child process, tagged by stream.
// Chunks are recorded in arrival order, so concatenating them reconstructs
// the merged chronological output.
type Chunk struct {
	Stream Stream
	Text   string
}

// Result captures everything observed from one external command run. It is
// available even when the command failed, so callers can match known
// diagnostics in the output.
type Result struct {
	chunks   []Chunk
	cmdline  string
	exitCode int
}

// NewResult builds a Result directly. Intended for tests that fake a Runner.
func NewResult(cmdline string, exitCode int, chunks ...Chunk) *Result {
	return &Result{chunks: chunks, cmdline: cmdline, exitCode: exitCode}
}

// ExitCode returns the process exit status, or -1 if the process never ran.
func (r *Result) ExitCode() int {
	return r.exitCode
}

// Printable returns the command line formatted for logs, elided beyond the
// first nine arguments.
func (r *Result) Printable() string {
	return r.cmdline
}

// Stdout returns everything the command wrote to standard output.
func (r *Result) Stdout() string {
	return r.streamText(Stdout)
}

// Stderr returns everything the command wrote to standard error.
func (r *Result) Stderr() string {
	return r.streamText(Stderr)
}

// Combined returns both streams merged in arrival order.
func (r *Result) Combined() string {
	var sb strings.Builder
	for _, c := range r.chunks {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// Lines returns one stream split into lines, with line endings removed and
// a trailing empty line dropped.
func (r *Result) Lines(s Stream) []string {
	return splitLines(r.streamText(s))
}

// CombinedLines returns the merged output split into lines.
func (r *Result) CombinedLines() []string {
	return splitLines(r.Combined())
}

func (r *Result) streamText(s Stream) string {
	var sb strings.Builder
	for _, c := range r.chunks {
		if c.Stream == s {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func printable(argv []string) string {
	// command itself plus at most nine arguments
	const maxArgs = 9
	if len(argv) <= maxArgs+1 {
		return strings.Join(argv, " ")
	}
	return strings.Join(argv[:maxArgs+1], " ") + " ..."
}
