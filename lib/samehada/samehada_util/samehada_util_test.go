package samehada_util

import (
	"os"
	"path/filepath"
	"testing"

	testingpkg "github.com/ryogrid/SamehadaWAL/lib/testing/testing_assert"
)

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exists.txt")
	testingpkg.AssertFalse(t, FileExists(path), "")
	testingpkg.Ok(t, os.WriteFile(path, []byte("x"), 0666))
	testingpkg.Assert(t, FileExists(path), "")
}

func TestFormatContents(t *testing.T) {
	contents := map[string]map[string]string{
		"b": {"y": "2", "x": "1"},
		"a": {"z": "3"},
	}
	testingpkg.Equals(t, "  a.z = 3\n  b.x = 1\n  b.y = 2\n", FormatContents(contents))
	testingpkg.Equals(t, "", FormatContents(map[string]map[string]string{}))
}
