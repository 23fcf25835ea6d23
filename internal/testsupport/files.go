package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// jpegStub is the smallest payload the pipeline treats as a frame image: a
// JPEG SOI marker plus a little padding. Nothing in the pipeline decodes
// image contents, so existence and a plausible header are enough.
var jpegStub = append([]byte{0xff, 0xd8, 0xff, 0xdb}, make([]byte, 60)...)

// WriteFrameFile places a stand-in frame image at path, creating parent
// directories as needed.
func WriteFrameFile(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, jpegStub, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
