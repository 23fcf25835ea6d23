package frames

import (
	"os"
	"path/filepath"
	"strings"

	"framed/internal/config"
	"framed/internal/services"
)

// Paths maps frame ids to files on disk.
type Paths struct {
	dir       string
	extension string
}

// NewPaths builds the id-to-file mapping from configuration.
func NewPaths(cfg *config.Config) Paths {
	return Paths{
		dir:       cfg.Paths.FramesDir,
		extension: cfg.Frames.Extension,
	}
}

// Dir returns the frames directory.
func (p Paths) Dir() string {
	return p.dir
}

// ImagePath returns the on-disk location for a frame id.
func (p Paths) ImagePath(id string) string {
	return filepath.Join(p.dir, id+"."+p.extension)
}

// IDFromName extracts the frame id from a directory entry name. It reports
// false for files that do not carry the configured extension.
func (p Paths) IDFromName(name string) (string, bool) {
	suffix := "." + p.extension
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(name, suffix)
	if id == "" {
		return "", false
	}
	return id, true
}

// ListIDs returns the ids of all frame files currently on disk.
func (p Paths) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "frames", "list",
			"failed to read frames directory", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := p.IDFromName(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
