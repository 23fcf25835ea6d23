package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"framed/internal/services"
)

// StdDev executes the image statistics tool against an image and returns its
// pixel standard deviation, normalized to 0..1. Used as the quality gate for
// freshly extracted frames: near-zero deviation means a black or single-color
// frame that makes for an unguessable puzzle.
func StdDev(ctx context.Context, binary, imagePath string) (float64, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "magick"
	}
	imagePath = strings.TrimSpace(imagePath)
	if imagePath == "" {
		return 0, services.Wrap(services.ErrValidation, "media", "stats", "empty image path", nil)
	}

	cmd := exec.CommandContext(ctx, binary,
		"identify",
		"-format", "%[fx:standard_deviation]",
		"--", imagePath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return 0, services.Wrap(services.ErrTimeout, "media", "stats",
				"statistics tool did not finish before the deadline", ctx.Err())
		}
		return 0, services.Wrap(services.ErrExternalTool, "media", "stats",
			strings.TrimSpace(string(output)), err)
	}

	raw := strings.TrimSpace(string(output))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "media", "stats",
			fmt.Sprintf("unparseable output %q", raw), err)
	}
	return value, nil
}
