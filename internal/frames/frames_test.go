package frames_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"framed/internal/catalog"
	"framed/internal/config"
	"framed/internal/frames"
	"framed/internal/logging"
	"framed/internal/services"
	"framed/internal/testsupport"
)

// touchScript stands in for ffmpeg and creates the output file it was asked
// to write.
const touchScript = "#!/bin/sh\nfor a in \"$@\"; do last=\"$a\"; done\n: > \"$last\"\n"

// countingStdDev returns a stub script that reports lowValue for the first
// low invocations and highValue afterwards, persisting a call counter so the
// test can assert how often the tool ran.
func countingStdDev(counterPath string, low int, lowValue, highValue string) string {
	return fmt.Sprintf(`#!/bin/sh
n=$(cat %q 2>/dev/null || echo 0)
n=$((n+1))
echo "$n" > %q
if [ "$n" -le %d ]; then echo %s; else echo %s; fi
`, counterPath, counterPath, low, lowValue, highValue)
}

func readCounter(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse counter %q: %v", data, err)
	}
	return n
}

func newService(t *testing.T, cfg *config.Config, episodes ...catalog.Episode) *frames.Service {
	t.Helper()
	if len(episodes) == 0 {
		episodes = []catalog.Episode{testsupport.SampleEpisode(cfg, "s01e01", 1, 1)}
	}
	cat := testsupport.MustLoadCatalog(t, cfg, episodes...)
	stores := frames.NewStores(testsupport.MustOpenStore(t, cfg))
	svc, err := frames.NewService(cfg, cat, stores, logging.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestProduceWritesImageAndRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithScriptedBinary("ffmpeg", touchScript))
	episode := testsupport.SampleEpisode(cfg, "s02e05", 2, 5)
	episode.SkipIntroSeconds = 60
	episode.SkipOutroSeconds = 30

	cat := testsupport.MustLoadCatalog(t, cfg, episode)
	stores := frames.NewStores(testsupport.MustOpenStore(t, cfg))
	svc, err := frames.NewService(cfg, cat, stores, logging.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	ctx := context.Background()
	item, err := svc.Produce(ctx)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if _, err := uuid.Parse(item.ImageID); err != nil {
		t.Fatalf("item id %q is not a UUID: %v", item.ImageID, err)
	}

	if _, err := os.Stat(svc.ImagePath(item.ImageID)); err != nil {
		t.Fatalf("image file missing: %v", err)
	}

	state, err := stores.States.Get(ctx, item.ImageID)
	if err != nil {
		t.Fatalf("States.Get: %v", err)
	}
	if state == nil {
		t.Fatal("tracking record missing after Produce")
	}
	if state.Served() {
		t.Fatal("fresh frame must not carry a served expiry")
	}

	answer, err := stores.Answers.Get(ctx, item.ImageID)
	if err != nil {
		t.Fatalf("Answers.Get: %v", err)
	}
	if answer == nil {
		t.Fatal("answer record missing after Produce")
	}
	if answer.Season != 2 || answer.Episode != 5 {
		t.Fatalf("answer points at s%02de%02d, want s02e05", answer.Season, answer.Episode)
	}
	if answer.SeekTime < 60 || answer.SeekTime > episode.DurationSeconds-30 {
		t.Fatalf("seek %f escaped the seekable range", answer.SeekTime)
	}
	onFrame := answer.SeekTime * episode.FPS
	if math.Abs(onFrame-math.Round(onFrame)) > 1e-9 {
		t.Fatalf("seek %f is not frame aligned", answer.SeekTime)
	}
}

func TestProduceIDsAreUnique(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithScriptedBinary("ffmpeg", touchScript))
	svc := newService(t, cfg)

	ctx := context.Background()
	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		item, err := svc.Produce(ctx)
		if err != nil {
			t.Fatalf("Produce %d: %v", i, err)
		}
		if _, dup := seen[item.ImageID]; dup {
			t.Fatalf("duplicate id %s", item.ImageID)
		}
		seen[item.ImageID] = struct{}{}
	}
}

func TestProduceQualityGateReseeks(t *testing.T) {
	counter := filepath.Join(t.TempDir(), "calls")
	cfg := testsupport.NewConfig(t,
		testsupport.WithQualityGate(0.2, 5),
		testsupport.WithScriptedBinary("ffmpeg", touchScript),
		testsupport.WithScriptedBinary("magick", countingStdDev(counter, 2, "0.01", "0.9")))
	svc := newService(t, cfg)

	if _, err := svc.Produce(context.Background()); err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if got := readCounter(t, counter); got != 3 {
		t.Fatalf("quality gate ran %d times, want 3 (two rejects, one accept)", got)
	}
}

func TestProduceQualityGateExhaustionKeepsLastCandidate(t *testing.T) {
	counter := filepath.Join(t.TempDir(), "calls")
	cfg := testsupport.NewConfig(t,
		testsupport.WithQualityGate(0.2, 3),
		testsupport.WithScriptedBinary("ffmpeg", touchScript),
		testsupport.WithScriptedBinary("magick", countingStdDev(counter, 99, "0.01", "0.01")))
	svc := newService(t, cfg)

	ctx := context.Background()
	item, err := svc.Produce(ctx)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if got := readCounter(t, counter); got != 4 {
		t.Fatalf("quality gate ran %d times, want max_rejects+1 = 4", got)
	}
	if _, err := os.Stat(svc.ImagePath(item.ImageID)); err != nil {
		t.Fatalf("kept candidate missing on disk: %v", err)
	}
}

func TestProduceQualityGateExhaustionCanFail(t *testing.T) {
	counter := filepath.Join(t.TempDir(), "calls")
	cfg := testsupport.NewConfig(t,
		testsupport.WithQualityGate(0.2, 2),
		testsupport.WithScriptedBinary("ffmpeg", touchScript),
		testsupport.WithScriptedBinary("magick", countingStdDev(counter, 99, "0.01", "0.01")))
	cfg.Frames.AcceptOnExhaust = false
	svc := newService(t, cfg)
	stores := frames.NewStores(testsupport.MustOpenStore(t, cfg))

	_, err := svc.Produce(context.Background())
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	count, err := stores.States.Count(context.Background())
	if err != nil {
		t.Fatalf("States.Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed generation left %d tracking records behind", count)
	}
}

func TestProduceExtractionFailureCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithScriptedBinary("ffmpeg", "#!/bin/sh\necho 'boom' >&2\nexit 1\n"))
	svc := newService(t, cfg)
	stores := frames.NewStores(testsupport.MustOpenStore(t, cfg))

	ctx := context.Background()
	if _, err := svc.Produce(ctx); err == nil {
		t.Fatal("expected extraction error")
	}
	count, err := stores.States.Count(ctx)
	if err != nil {
		t.Fatalf("States.Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed generation left %d tracking records behind", count)
	}
	entries, err := os.ReadDir(cfg.Paths.FramesDir)
	if err != nil {
		t.Fatalf("read frames dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed generation left %d files behind", len(entries))
	}
}

func TestMarkServedStampsBothRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithScriptedBinary("ffmpeg", touchScript))
	svc := newService(t, cfg)
	stores := frames.NewStores(testsupport.MustOpenStore(t, cfg))

	ctx := context.Background()
	item, err := svc.Produce(ctx)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}

	before := time.Now()
	if err := svc.MarkServed(ctx, item.ImageID); err != nil {
		t.Fatalf("MarkServed: %v", err)
	}

	state, err := stores.States.Get(ctx, item.ImageID)
	if err != nil || state == nil {
		t.Fatalf("States.Get: %v %v", state, err)
	}
	answer, err := stores.Answers.Get(ctx, item.ImageID)
	if err != nil || answer == nil {
		t.Fatalf("Answers.Get: %v %v", answer, err)
	}
	if state.ExpiresAt == nil || answer.ExpiresAt == nil {
		t.Fatal("served frame must carry expiries on both records")
	}
	ttl := time.Duration(cfg.Frames.ServedTTL) * time.Second
	if state.ExpiresAt.Before(before.Add(ttl - time.Minute)) {
		t.Fatalf("expiry %v not pushed out by the served ttl", state.ExpiresAt)
	}
	if !state.ExpiresAt.Equal(*answer.ExpiresAt) {
		t.Fatalf("record expiries diverge: %v vs %v", state.ExpiresAt, answer.ExpiresAt)
	}
}

func TestMarkServedUnknownID(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithScriptedBinary("ffmpeg", touchScript))
	svc := newService(t, cfg)

	err := svc.MarkServed(context.Background(), "11111111-2222-3333-4444-555555555555")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPathsIDFromName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	paths := frames.NewPaths(cfg)

	cases := []struct {
		name string
		id   string
		ok   bool
	}{
		{"abc123.jpg", "abc123", true},
		{"abc123.png", "", false},
		{".jpg", "", false},
		{"abc123", "", false},
	}
	for _, tc := range cases {
		id, ok := paths.IDFromName(tc.name)
		if id != tc.id || ok != tc.ok {
			t.Fatalf("IDFromName(%q) = %q,%t want %q,%t", tc.name, id, ok, tc.id, tc.ok)
		}
	}
}
