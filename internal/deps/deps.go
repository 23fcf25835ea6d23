// Package deps verifies the external binaries frame generation shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"framed/internal/config"
)

// Requirement names one external binary and what it is used for.
type Requirement struct {
	Binary  string
	Purpose string
	// Optional requirements degrade a feature instead of blocking startup.
	Optional bool
}

// Status is the lookup result for one requirement.
type Status struct {
	Requirement
	Found bool
	Path  string
}

// Requirements returns the external binaries the current configuration needs.
// The image statistics tool is only required while the quality gate is on.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Binary: cfg.FFmpegBinary(), Purpose: "frame extraction"},
		{Binary: cfg.MagickBinary(), Purpose: "quality gate statistics",
			Optional: !cfg.QualityGateEnabled()},
	}
}

// Check resolves every requirement against PATH.
func Check(requirements []Requirement) []Status {
	statuses := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{Requirement: req}
		if path, err := exec.LookPath(req.Binary); err == nil {
			status.Found = true
			status.Path = path
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Verify checks all requirements and returns an error naming every missing
// non-optional binary.
func Verify(cfg *config.Config) error {
	var missing []string
	for _, status := range Check(Requirements(cfg)) {
		if !status.Found && !status.Optional {
			missing = append(missing, fmt.Sprintf("%s (%s)", status.Binary, status.Purpose))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required binaries: %s", strings.Join(missing, ", "))
	}
	return nil
}
