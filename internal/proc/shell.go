package proc

import (
	"runtime"
	"strings"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// bannerPrefix starts the line the MozillaBuild login profile prints to
// stdout before the wrapped command's own output.
const bannerPrefix = "MozillaBuild Install Directory:"

// loginShellInvocation decides whether to wrap the command through the
// MozillaBuild login shell. Only Windows needs the wrap; everywhere else
// the argv is rendered natively and executed directly.
func loginShellInvocation(argv []fspath.Arg, mozillaBuild fspath.Path) (name string, args []string, extraEnv []string, wrapped bool) {
	if mozillaBuild.IsZero() || runtime.GOOS != "windows" {
		rendered := fspath.RenderAll(argv)
		return rendered[0], rendered[1:], nil, false
	}
	return loginShellCommand(argv, mozillaBuild)
}

// loginShellCommand composes `sh.exe -l -c "<command>"` with MOZILLABUILD
// exported for the profile scripts. Path arguments are rendered in unixy
// notation since the msys shell treats backslashes as escapes.
func loginShellCommand(argv []fspath.Arg, mozillaBuild fspath.Path) (string, []string, []string, bool) {
	shell := mozillaBuild.Join("msys", "bin", "sh.exe")

	quoted := make([]string, len(argv))
	for i, a := range argv {
		s := a.String()
		if p, ok := a.Path(); ok {
			s = fspath.ToUnixy(p.String(), fspath.Windows)
		}
		quoted[i] = shellQuote(s)
	}

	args := []string{"-l", "-c", strings.Join(quoted, " ")}
	env := []string{"MOZILLABUILD=" + mozillaBuild.String()}
	return shell.String(), args, env, true
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t'\"\\$") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// stripBanner removes login-shell banner lines from captured stdout. All
// stdout chunks are merged into one in the process; stderr chunks keep
// their positions.
func stripBanner(chunks []Chunk) []Chunk {
	var stdoutText strings.Builder
	hasStdout := false
	for _, c := range chunks {
		if c.Stream == Stdout {
			hasStdout = true
			stdoutText.WriteString(c.Text)
		}
	}
	if !hasStdout {
		return chunks
	}

	stripped := stripBannerText(stdoutText.String())

	out := make([]Chunk, 0, len(chunks))
	placed := false
	for _, c := range chunks {
		if c.Stream == Stdout {
			if !placed {
				out = append(out, Chunk{Stream: Stdout, Text: stripped})
				placed = true
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

func stripBannerText(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSuffix(l, "\r"), bannerPrefix) {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}
