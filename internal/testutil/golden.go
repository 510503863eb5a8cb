// Package testutil provides golden-file helpers for parser tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./... -run TestName -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// CompareJSON compares got against the golden JSON file at path. The
// comparison is on parsed values, so formatting and key order in the
// golden file do not matter. With -update the file is rewritten instead.
func CompareJSON(t *testing.T, path string, got any) {
	t.Helper()

	raw, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal result: %v", err)
	}
	raw = append(raw, '\n')

	if ShouldUpdate() {
		Update(t, path, raw)
		t.Logf("Updated golden: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				path, raw, t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	var gotVal, wantVal any
	if err := json.Unmarshal(raw, &gotVal); err != nil {
		t.Fatalf("Failed to parse marshaled result: %v", err)
	}
	if err := json.Unmarshal(expected, &wantVal); err != nil {
		t.Fatalf("Golden file %s is not valid JSON: %v", path, err)
	}

	if !reflect.DeepEqual(gotVal, wantVal) {
		diff := unifiedDiff(string(expected), string(raw), path)
		t.Fatalf("Golden mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			path, diff, t.Name())
	}
}

// Update writes data to the golden file, creating parent directories as
// needed.
func Update(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create golden directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write golden file: %v", err)
	}
}

// unifiedDiff produces a simple unified diff between two strings.
func unifiedDiff(expected, got, path string) string {
	var buf bytes.Buffer

	expectedLines := strings.Split(expected, "\n")
	gotLines := strings.Split(got, "\n")

	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	maxLines := len(expectedLines)
	if len(gotLines) > maxLines {
		maxLines = len(gotLines)
	}

	inHunk := false
	hunkStart := 0
	var hunkLines []string

	flushHunk := func() {
		if len(hunkLines) > 0 {
			fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", hunkStart+1, len(hunkLines), hunkStart+1, len(hunkLines))
			for _, line := range hunkLines {
				buf.WriteString(line)
				buf.WriteString("\n")
			}
			hunkLines = nil
		}
	}

	for i := 0; i < maxLines; i++ {
		var expLine, gotLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(gotLines) {
			gotLine = gotLines[i]
		}

		if expLine == gotLine {
			if inHunk {
				hunkLines = append(hunkLines, " "+expLine)
				if len(hunkLines) > 6 {
					flushHunk()
					inHunk = false
				}
			}
		} else {
			if !inHunk {
				inHunk = true
				hunkStart = i
				for j := max(0, i-3); j < i; j++ {
					if j < len(expectedLines) {
						hunkLines = append(hunkLines, " "+expectedLines[j])
					}
				}
			}

			if i < len(expectedLines) && expLine != "" {
				hunkLines = append(hunkLines, "-"+expLine)
			}
			if i < len(gotLines) && gotLine != "" {
				hunkLines = append(hunkLines, "+"+gotLine)
			}
		}
	}

	flushHunk()

	return buf.String()
}
