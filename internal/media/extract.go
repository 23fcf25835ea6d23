package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"framed/internal/services"
)

// ExtractFrame executes ffmpeg to write a single still image from the source
// video at the given seek offset (seconds). The caller supplies a context with
// a deadline; a stalled extraction is killed when the deadline passes instead
// of blocking its production slot.
func ExtractFrame(ctx context.Context, binary, sourcePath string, seekSeconds float64, outputPath string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return services.Wrap(services.ErrValidation, "media", "extract", "empty source path", nil)
	}
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		return services.Wrap(services.ErrValidation, "media", "extract", "empty output path", nil)
	}
	if seekSeconds < 0 {
		return services.Wrap(services.ErrValidation, "media", "extract",
			fmt.Sprintf("negative seek %f", seekSeconds), nil)
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-hide_banner",
		"-ss", formatSeek(seekSeconds),
		"-i", sourcePath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "media", "extract",
				"ffmpeg did not finish before the deadline", ctx.Err())
		}
		return services.Wrap(services.ErrExternalTool, "media", "extract",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

func formatSeek(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
