// Package preflight validates the runtime environment before the daemon
// starts producing frames.
package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"framed/internal/config"
	"framed/internal/deps"
)

// minFreeBytes is the least free space the frames volume may have at startup.
const minFreeBytes = 256 << 20

// Check validates directories, free space, and external binaries. It returns
// the first problem found; startup aborts on any of them.
func Check(cfg *config.Config) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.FramesDir, cfg.Paths.LogDir} {
		if err := checkWritable(dir); err != nil {
			return err
		}
	}
	if err := checkFreeSpace(cfg.Paths.FramesDir); err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Paths.CatalogPath); err != nil {
		return fmt.Errorf("catalog file: %w", err)
	}
	return deps.Verify(cfg)
}

func checkWritable(dir string) error {
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	return nil
}

func checkFreeSpace(dir string) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return fmt.Errorf("volume holding %s has %d bytes free, need at least %d",
			dir, free, uint64(minFreeBytes))
	}
	return nil
}
