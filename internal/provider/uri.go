package provider

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// pathFromURI converts a file:// URI to a native absolute path. Plain
// absolute paths are accepted too; some hosts send them.
func pathFromURI(raw string) (fspath.Path, error) {
	if !strings.HasPrefix(raw, "file:") {
		return fspath.New(fspath.FromUnixy(raw, fspath.NativeFlavor()))
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fspath.Path{}, fmt.Errorf("failed to parse uri %q: %w", raw, err)
	}
	p := u.Path
	if runtime.GOOS == "windows" {
		// file:///C:/dir parses to /C:/dir.
		if len(p) >= 3 && p[0] == '/' && isDriveLetter(p[1]) && p[2] == ':' {
			p = p[1:]
		}
	}
	return fspath.New(p)
}

// uriFromPath renders a native absolute path as a file:// URI.
func uriFromPath(p fspath.Path) string {
	s := filepath.ToSlash(p.String())
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	u := url.URL{Scheme: "file", Path: s}
	return u.String()
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
