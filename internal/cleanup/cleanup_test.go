package cleanup

import (
	"context"
	"os"
	"testing"
	"time"

	"framed/internal/frames"
	"framed/internal/logging"
	"framed/internal/testsupport"
)

func newScheduler(t *testing.T) (*Scheduler, *frames.Stores) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	stores := frames.NewStores(testsupport.MustOpenStore(t, cfg))
	s := NewScheduler(cfg, stores, logging.NewNop())
	s.listingGap = 10 * time.Millisecond
	return s, stores
}

func ptr(t time.Time) *time.Time { return &t }

func TestSweepAnswersHonorsExpiry(t *testing.T) {
	s, stores := newScheduler(t)
	ctx := context.Background()

	elapsed := frames.Answer{Season: 1, Episode: 1, ExpiresAt: ptr(time.Now().Add(-time.Second))}
	pending := frames.Answer{Season: 1, Episode: 2, ExpiresAt: ptr(time.Now().Add(1000 * time.Second))}
	unserved := frames.Answer{Season: 1, Episode: 3}
	for id, answer := range map[string]frames.Answer{
		"elapsed": elapsed, "pending": pending, "unserved": unserved,
	} {
		if err := stores.Answers.Set(ctx, id, answer); err != nil {
			t.Fatalf("Answers.Set: %v", err)
		}
	}

	s.Sweep(ctx)

	if got, _ := stores.Answers.Get(ctx, "elapsed"); got != nil {
		t.Fatal("elapsed answer must be deleted")
	}
	if got, _ := stores.Answers.Get(ctx, "pending"); got == nil {
		t.Fatal("answer with future expiry must survive")
	}
	if got, _ := stores.Answers.Get(ctx, "unserved"); got == nil {
		t.Fatal("unserved answer must survive")
	}
}

func TestSweepExpiredImagesRemovesRecordAndFile(t *testing.T) {
	s, stores := newScheduler(t)
	ctx := context.Background()

	if err := stores.States.Set(ctx, "gone", frames.FileState{ExpiresAt: ptr(time.Now().Add(-time.Minute))}); err != nil {
		t.Fatalf("States.Set: %v", err)
	}
	testsupport.WriteFrameFile(t, s.paths.ImagePath("gone"))
	if err := stores.States.Set(ctx, "fresh", frames.FileState{}); err != nil {
		t.Fatalf("States.Set: %v", err)
	}
	testsupport.WriteFrameFile(t, s.paths.ImagePath("fresh"))
	// Expired record whose file already vanished; must not log an error
	// path that aborts the sweep.
	if err := stores.States.Set(ctx, "vanished", frames.FileState{ExpiresAt: ptr(time.Now().Add(-time.Minute))}); err != nil {
		t.Fatalf("States.Set: %v", err)
	}

	s.sweepExpiredImages(ctx)

	if got, _ := stores.States.Get(ctx, "gone"); got != nil {
		t.Fatal("expired tracking record must be deleted")
	}
	if _, err := os.Stat(s.paths.ImagePath("gone")); !os.IsNotExist(err) {
		t.Fatalf("expired image must be deleted, stat err = %v", err)
	}
	if got, _ := stores.States.Get(ctx, "fresh"); got == nil {
		t.Fatal("unexpired tracking record must survive")
	}
	if _, err := os.Stat(s.paths.ImagePath("fresh")); err != nil {
		t.Fatalf("unexpired image must survive: %v", err)
	}
	if got, _ := stores.States.Get(ctx, "vanished"); got != nil {
		t.Fatal("expired record with missing file must still be deleted")
	}
}

func TestSweepOrphansDeletesUntrackedFiles(t *testing.T) {
	s, stores := newScheduler(t)
	ctx := context.Background()

	testsupport.WriteFrameFile(t, s.paths.ImagePath("orphan"))
	testsupport.WriteFrameFile(t, s.paths.ImagePath("tracked"))
	if err := stores.States.Set(ctx, "tracked", frames.FileState{}); err != nil {
		t.Fatalf("States.Set: %v", err)
	}

	s.sweepOrphans(ctx)

	if _, err := os.Stat(s.paths.ImagePath("orphan")); !os.IsNotExist(err) {
		t.Fatalf("untracked file must be deleted, stat err = %v", err)
	}
	if _, err := os.Stat(s.paths.ImagePath("tracked")); err != nil {
		t.Fatalf("tracked file must survive: %v", err)
	}
}

func TestSweepOrphansSparesFileSeenOnlyOnce(t *testing.T) {
	s, _ := newScheduler(t)

	// The directory must be non-empty or the sweep short-circuits before
	// the second listing.
	testsupport.WriteFrameFile(t, s.paths.ImagePath("existing"))
	s.betweenListings = func() {
		testsupport.WriteFrameFile(t, s.paths.ImagePath("late"))
	}

	s.sweepOrphans(context.Background())

	if _, err := os.Stat(s.paths.ImagePath("late")); err != nil {
		t.Fatalf("file appearing after the first listing must survive: %v", err)
	}
}

func TestSweepRunsArchivesLongHistories(t *testing.T) {
	s, stores := newScheduler(t)
	s.threshold = 5
	ctx := context.Background()

	history := make([]frames.Interaction, 10)
	for i := range history {
		history[i] = frames.Interaction{ImageID: "f1", At: time.Now()}
	}
	long := frames.Run{History: history, ExpiresAt: ptr(time.Now().Add(-time.Second))}
	short := frames.Run{History: history[:2], ExpiresAt: ptr(time.Now().Add(-time.Second))}
	live := frames.Run{History: history[:2], ExpiresAt: ptr(time.Now().Add(time.Hour))}
	abandoned := frames.Run{History: history}
	for id, run := range map[string]frames.Run{
		"long": long, "short": short, "live": live, "abandoned": abandoned,
	} {
		if err := stores.Runs.Set(ctx, id, run); err != nil {
			t.Fatalf("Runs.Set: %v", err)
		}
	}

	s.sweepRuns(ctx)

	if got, _ := stores.Runs.Get(ctx, "long"); got != nil {
		t.Fatal("expired run must leave the live store")
	}
	archived, err := stores.Archive.Get(ctx, "long")
	if err != nil || archived == nil {
		t.Fatalf("run with long history must be archived: %v %v", archived, err)
	}
	if archived.ExpiresAt != nil {
		t.Fatal("archived run must carry no expiry")
	}
	if len(archived.History) != 10 {
		t.Fatalf("archived run lost history, got %d interactions", len(archived.History))
	}

	if got, _ := stores.Runs.Get(ctx, "short"); got != nil {
		t.Fatal("expired short run must be dropped")
	}
	if got, _ := stores.Archive.Get(ctx, "short"); got != nil {
		t.Fatal("short run must not be archived")
	}

	if got, _ := stores.Runs.Get(ctx, "live"); got == nil {
		t.Fatal("unexpired run must survive")
	}

	// A run that never received an expiry is abandoned; with 10
	// interactions it is archived.
	if got, _ := stores.Runs.Get(ctx, "abandoned"); got != nil {
		t.Fatal("run without expiry must be swept")
	}
	if got, _ := stores.Archive.Get(ctx, "abandoned"); got == nil {
		t.Fatal("abandoned run with long history must be archived")
	}
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cleanup.Interval = 1
	stores := frames.NewStores(testsupport.MustOpenStore(t, cfg))
	s := NewScheduler(cfg, stores, logging.NewNop())
	s.listingGap = 10 * time.Millisecond

	ctx := context.Background()
	if err := stores.Answers.Set(ctx, "stale", frames.Answer{ExpiresAt: ptr(time.Now().Add(-time.Minute))}); err != nil {
		t.Fatalf("Answers.Set: %v", err)
	}

	s.Start(ctx)
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := stores.Answers.Get(ctx, "stale"); got == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("scheduler never swept the stale answer")
}
