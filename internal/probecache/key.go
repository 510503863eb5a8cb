package probecache

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/crypto/blake2b"

	"github.com/FractalBrew/geckocpp/internal/compiler"
)

// Key derives the cache key for a compiler binary and probe configuration.
// bin may be a bare command name; it is resolved through PATH the same way
// the probe itself would run it. The resolved file's size and modification
// time are part of the key, so replacing the compiler changes the key.
func Key(bin string, dialect compiler.Dialect, lang compiler.Language, stdFlag string) (string, error) {
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("failed to locate compiler %q: %w", bin, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to stat compiler %q: %w", resolved, err)
	}

	composite := fmt.Sprintf("%s:%d:%d:%s:%s:%s",
		resolved, info.Size(), info.ModTime().UnixNano(), dialect, lang, stdFlag)
	sum := blake2b.Sum256([]byte(composite))
	return fmt.Sprintf("%x", sum), nil
}
