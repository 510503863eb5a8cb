// Package fspath provides the absolute-path value type used throughout
// geckocpp. Build tools on Windows run under an MSYS emulation layer and
// report paths in "unixy" notation (/c/mozilla/obj), so conversion between
// native and unixy forms lives here too.
package fspath

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Flavor selects the path notation rules used by unixy conversion.
type Flavor int

const (
	// Posix paths are already forward-slash absolute paths.
	Posix Flavor = iota
	// Windows paths use drive letters and backslashes; the unixy form is
	// the MSYS drive mapping (C:\x -> /c/x).
	Windows
)

// NativeFlavor returns the flavor matching the running platform.
func NativeFlavor() Flavor {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return Posix
}

// Path is an absolute filesystem path. The zero value is invalid; construct
// with New or MustNew, which reject relative paths.
type Path struct {
	raw string
}

// New validates that s is absolute and returns it as a cleaned Path.
func New(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("empty path")
	}
	if !filepath.IsAbs(s) {
		return Path{}, fmt.Errorf("path is not absolute: %s", s)
	}
	return Path{raw: filepath.Clean(s)}, nil
}

// MustNew is New for paths known to be absolute; it panics otherwise.
func MustNew(s string) Path {
	p, err := New(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the native form of the path.
func (p Path) String() string {
	return p.raw
}

// IsZero reports whether p is the invalid zero value.
func (p Path) IsZero() bool {
	return p.raw == ""
}

// Base returns the last element of the path.
func (p Path) Base() string {
	return filepath.Base(p.raw)
}

// Parent returns the containing directory. The parent of a root is the root
// itself.
func (p Path) Parent() Path {
	return Path{raw: filepath.Dir(p.raw)}
}

// Join appends path elements to p.
func (p Path) Join(elem ...string) Path {
	parts := append([]string{p.raw}, elem...)
	return Path{raw: filepath.Join(parts...)}
}

// foldCase selects case-insensitive comparison; Windows filesystems
// ignore case. Equal, Contains and Rebase all share this rule.
var foldCase = runtime.GOOS == "windows"

func fold(s string) string {
	if foldCase {
		return strings.ToLower(s)
	}
	return s
}

// Equal compares two paths, ignoring case on Windows.
func (p Path) Equal(o Path) bool {
	return fold(p.raw) == fold(o.raw)
}

// Contains reports whether o is p itself or lies underneath it, under
// the same case rule as Equal.
func (p Path) Contains(o Path) bool {
	if p.Equal(o) {
		return true
	}
	base := fold(p.raw)
	if !strings.HasSuffix(base, string(filepath.Separator)) {
		base += string(filepath.Separator)
	}
	return strings.HasPrefix(fold(o.raw), base)
}

// Rebase re-roots p from one base directory to another, preserving the
// relative suffix with its original case. p must lie under from.
func (p Path) Rebase(from, to Path) (Path, error) {
	if !from.Contains(p) {
		return Path{}, fmt.Errorf("path %s is not under %s", p.raw, from.raw)
	}
	if p.Equal(from) {
		return to, nil
	}
	suffix := strings.TrimLeft(p.raw[len(from.raw):], string(filepath.Separator))
	return to.Join(suffix), nil
}

// Unixy returns the path in the notation expected by shell-like tools on
// this platform.
func (p Path) Unixy() string {
	return ToUnixy(p.raw, NativeFlavor())
}

// MarshalJSON encodes the path as its native string form.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.raw)
}

// UnmarshalJSON decodes and validates an absolute path.
func (p *Path) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := New(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ToUnixy converts a native absolute path to unixy notation under the given
// flavor. Posix paths pass through; Windows drive paths get the MSYS
// mapping (C:\x\y -> /c/x/y).
func ToUnixy(native string, flavor Flavor) string {
	if flavor == Posix {
		return strings.ReplaceAll(native, "\\", "/")
	}
	s := strings.ReplaceAll(native, "\\", "/")
	if len(s) >= 2 && s[1] == ':' && isDriveLetter(s[0]) {
		s = "/" + strings.ToLower(s[:1]) + s[2:]
	}
	return s
}

// FromUnixy converts a unixy path back to native notation. It tolerates
// paths that are already native. Plain forward-slash paths with no drive
// prefix pass through unchanged under the posix flavor.
func FromUnixy(unixy string, flavor Flavor) string {
	if flavor == Posix {
		return unixy
	}
	if len(unixy) >= 2 && unixy[1] == ':' && isDriveLetter(unixy[0]) {
		// Already a native drive path.
		return strings.ReplaceAll(unixy, "/", "\\")
	}
	if len(unixy) >= 3 && unixy[0] == '/' && isDriveLetter(unixy[1]) && unixy[2] == '/' {
		return strings.ToUpper(unixy[1:2]) + ":" + strings.ReplaceAll(unixy[2:], "/", "\\")
	}
	if len(unixy) == 2 && unixy[0] == '/' && isDriveLetter(unixy[1]) {
		return strings.ToUpper(unixy[1:2]) + ":\\"
	}
	return strings.ReplaceAll(unixy, "/", "\\")
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
