package recovery

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"framed/internal/frames"
	"framed/internal/logging"
)

// Category classifies one previously tracked frame id during the startup scan.
type Category string

const (
	// CategoryNoAnswer marks a tracking record whose answer was lost. The
	// frame is unusable and its traces are removed.
	CategoryNoAnswer Category = "no_answer"
	// CategoryUnservedAnswer marks an unserved answer with no tracking
	// record and no backing file. The answer is removed.
	CategoryUnservedAnswer Category = "unserved_answer"
	// CategoryCleanedFileAnswer marks a served answer whose file and
	// tracking record were already cleaned up. It stays for grading.
	CategoryCleanedFileAnswer Category = "cleaned_file_answer"
	// CategoryServedFile marks a served frame the cleanup sweep has not
	// reaped yet. It is left alone.
	CategoryServedFile Category = "served_file"
	// CategoryRecovered marks a pending frame that survived the restart
	// intact and re-seeds the pregeneration queue.
	CategoryRecovered Category = "recovered"
	// CategoryMissingFile marks a pending frame whose image vanished. Its
	// records are removed.
	CategoryMissingFile Category = "missing_file"
)

// Report is the outcome of a startup scan.
type Report struct {
	// Seeds are the intact pending frames, ready for the queue.
	Seeds []frames.Item
	// Counts holds how many ids landed in each category.
	Counts map[Category]int
}

// Scanned returns the total number of classified ids.
func (r Report) Scanned() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Scan reconciles the tracking and answer stores with the frames directory
// after a restart. Every id known to either store falls into exactly one
// category. The scan runs once, before the pregeneration queue is built; it
// never runs during normal operation.
func Scan(ctx context.Context, stores *frames.Stores, paths frames.Paths, logger *slog.Logger) (Report, error) {
	logger = logging.WithComponent(logger, "recovery")

	stateKeys, err := stores.States.Keys(ctx)
	if err != nil {
		return Report{}, err
	}
	answerKeys, err := stores.Answers.Keys(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Counts: make(map[Category]int)}
	for _, id := range unionKeys(stateKeys, answerKeys) {
		category, err := classify(ctx, stores, paths, id)
		if err != nil {
			logger.Warn("skipping id after scan failure",
				logging.FieldImageID, id, logging.Error(err))
			continue
		}
		report.Counts[category]++
		if category == CategoryRecovered {
			report.Seeds = append(report.Seeds, frames.Item{ImageID: id})
		}
		logger.Debug("classified frame id",
			logging.FieldImageID, id,
			logging.FieldCategory, string(category))
	}

	logger.Info("startup scan complete",
		"scanned", report.Scanned(),
		"recovered", len(report.Seeds))
	return report, nil
}

// classify resolves one id to its category and applies the repair the
// category calls for.
func classify(ctx context.Context, stores *frames.Stores, paths frames.Paths, id string) (Category, error) {
	state, err := stores.States.Get(ctx, id)
	if err != nil {
		return "", err
	}
	answer, err := stores.Answers.Get(ctx, id)
	if err != nil {
		return "", err
	}

	switch {
	case state == nil && answer == nil:
		// Both records vanished after the key listing; nothing to repair.
		return CategoryMissingFile, nil

	case state != nil && answer == nil:
		if err := stores.States.Remove(ctx, id); err != nil {
			return "", err
		}
		// Best effort; a file that lingers is caught by the orphan sweep.
		_ = os.Remove(paths.ImagePath(id))
		return CategoryNoAnswer, nil

	case state == nil && answer != nil:
		if answer.ExpiresAt != nil {
			return CategoryCleanedFileAnswer, nil
		}
		if err := stores.Answers.Remove(ctx, id); err != nil {
			return "", err
		}
		return CategoryUnservedAnswer, nil

	case state.ExpiresAt != nil:
		return CategoryServedFile, nil
	}

	if _, err := os.Stat(paths.ImagePath(id)); err == nil {
		if answer.ExpiresAt != nil {
			// A served stamp on the answer alone still disqualifies
			// the frame from re-seeding.
			return CategoryServedFile, nil
		}
		return CategoryRecovered, nil
	}

	if err := stores.States.Remove(ctx, id); err != nil {
		return "", err
	}
	if answer.ExpiresAt == nil {
		if err := stores.Answers.Remove(ctx, id); err != nil {
			return "", err
		}
	}
	return CategoryMissingFile, nil
}

func unionKeys(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))
	for _, keys := range [][]string{a, b} {
		for _, key := range keys {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			union = append(union, key)
		}
	}
	sort.Strings(union)
	return union
}
