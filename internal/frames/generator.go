package frames

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"framed/internal/catalog"
	"framed/internal/config"
	"framed/internal/logging"
	"framed/internal/media"
	"framed/internal/services"
)

// Service generates frames and owns the record lifecycle around them. Its
// Produce method is the producer the pregeneration queue runs; the queue may
// invoke it from several goroutines at once.
type Service struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	stores  *Stores
	paths   Paths
	idSpace uuid.UUID
	logger  *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService builds a frame generation service. The id namespace comes from
// configuration and has already been validated as a UUID.
func NewService(cfg *config.Config, cat *catalog.Catalog, stores *Stores, logger *slog.Logger) (*Service, error) {
	idSpace, err := uuid.Parse(cfg.Frames.IDNamespace)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "frames", "init",
			"invalid id namespace", err)
	}
	if cat.Len() == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "frames", "init",
			"catalog has no episodes", nil)
	}
	return &Service{
		cfg:     cfg,
		catalog: cat,
		stores:  stores,
		paths:   NewPaths(cfg),
		idSpace: idSpace,
		logger:  logging.WithComponent(logger, "frames"),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

// ImagePath returns the on-disk location for a frame id.
func (s *Service) ImagePath(id string) string {
	return s.paths.ImagePath(id)
}

// Paths exposes the id-to-file mapping for components that scan the frames
// directory.
func (s *Service) Paths() Paths {
	return s.paths
}

// Produce generates one frame end to end and returns its id. The tracking
// record is written before the image file ever exists, so a crash at any
// point leaves either no trace or a record the startup scan can attribute.
func (s *Service) Produce(ctx context.Context) (Item, error) {
	id := s.newID()
	outputPath := s.paths.ImagePath(id)

	if err := s.stores.States.Set(ctx, id, FileState{}); err != nil {
		return Item{}, services.Wrap(services.ErrTransient, "frames", "generate",
			"failed to write tracking record", err)
	}

	episode, seek, err := s.generateImage(ctx, outputPath)
	if err != nil {
		s.discard(ctx, id, outputPath)
		return Item{}, err
	}

	answer := Answer{
		Season:   episode.Season,
		Episode:  episode.Episode,
		SeekTime: seek,
	}
	if err := s.stores.Answers.Set(ctx, id, answer); err != nil {
		s.discard(ctx, id, outputPath)
		return Item{}, services.Wrap(services.ErrTransient, "frames", "generate",
			"failed to write answer record", err)
	}

	s.logger.Debug("frame generated",
		logging.FieldImageID, id,
		logging.FieldEpisode, episode.ID,
		"seek", seek)
	return Item{ImageID: id}, nil
}

// generateImage picks random candidates until one clears the quality gate,
// writing each candidate over the same output path.
func (s *Service) generateImage(ctx context.Context, outputPath string) (catalog.Episode, float64, error) {
	rejects := 0
	for {
		episode, seek := s.randomCandidate()

		if err := s.extract(ctx, episode, seek, outputPath); err != nil {
			return catalog.Episode{}, 0, err
		}
		if !s.cfg.QualityGateEnabled() {
			return episode, seek, nil
		}

		deviation, err := s.measure(ctx, outputPath)
		if err != nil {
			return catalog.Episode{}, 0, err
		}
		if deviation >= s.cfg.Frames.MinStdDev {
			return episode, seek, nil
		}

		rejects++
		if rejects > s.cfg.Frames.MaxRejects {
			if s.cfg.Frames.AcceptOnExhaust {
				s.logger.Warn("quality gate exhausted, keeping last candidate",
					logging.FieldEpisode, episode.ID,
					"seek", seek,
					"std_dev", deviation)
				return episode, seek, nil
			}
			return catalog.Episode{}, 0, services.Wrap(services.ErrTransient, "frames", "generate",
				"quality gate rejected all candidates", nil)
		}
		s.logger.Debug("frame rejected by quality gate",
			logging.FieldEpisode, episode.ID,
			"seek", seek,
			"std_dev", deviation,
			"rejects", rejects)
	}
}

func (s *Service) extract(ctx context.Context, episode catalog.Episode, seek float64, outputPath string) error {
	extractCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Frames.ExtractTimeout)*time.Second)
	defer cancel()
	return media.ExtractFrame(extractCtx, s.cfg.FFmpegBinary(), episode.Source, seek, outputPath)
}

func (s *Service) measure(ctx context.Context, outputPath string) (float64, error) {
	statsCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Frames.StatsTimeout)*time.Second)
	defer cancel()
	return media.StdDev(statsCtx, s.cfg.MagickBinary(), outputPath)
}

// MarkServed stamps the served expiry onto the frame's records. The tracking
// record is updated first so a crash between the two writes leaves a state the
// startup scan resolves in the player's favor.
func (s *Service) MarkServed(ctx context.Context, id string) error {
	state, err := s.stores.States.Get(ctx, id)
	if err != nil {
		return err
	}
	if state == nil {
		return services.Wrap(services.ErrNotFound, "frames", "serve",
			"no tracking record for frame "+id, nil)
	}
	answer, err := s.stores.Answers.Get(ctx, id)
	if err != nil {
		return err
	}
	if answer == nil {
		return services.Wrap(services.ErrNotFound, "frames", "serve",
			"no answer record for frame "+id, nil)
	}

	expiry := time.Now().Add(time.Duration(s.cfg.Frames.ServedTTL) * time.Second)
	state.ExpiresAt = &expiry
	if err := s.stores.States.Set(ctx, id, *state); err != nil {
		return err
	}
	answer.ExpiresAt = &expiry
	return s.stores.Answers.Set(ctx, id, *answer)
}

// newID derives a fresh frame id inside the configured UUID namespace.
func (s *Service) newID() string {
	return uuid.NewSHA1(s.idSpace, []byte(uuid.NewString())).String()
}

// randomCandidate picks an episode and a frame-aligned seek inside its
// seekable range.
func (s *Service) randomCandidate() (catalog.Episode, float64) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	episode := s.catalog.Random(s.rng)
	return episode, alignSeek(episode, seekOffset(s.rng, episode))
}

func seekOffset(rng *rand.Rand, episode catalog.Episode) float64 {
	return episode.SkipIntroSeconds + rng.Float64()*episode.SeekableSeconds()
}

// alignSeek rounds a seek time to the nearest frame boundary and clamps it
// back into the seekable range when rounding pushed it over an edge.
func alignSeek(episode catalog.Episode, seek float64) float64 {
	if episode.FPS > 0 {
		seek = math.Round(seek*episode.FPS) / episode.FPS
	}
	lower := episode.SkipIntroSeconds
	upper := episode.DurationSeconds - episode.SkipOutroSeconds
	if seek < lower {
		seek = lower
	}
	if seek > upper {
		seek = upper
	}
	return seek
}

// discard removes the traces of a failed generation attempt so retries do not
// accumulate orphaned records or files.
func (s *Service) discard(ctx context.Context, id, outputPath string) {
	if err := s.stores.States.Remove(ctx, id); err != nil {
		s.logger.Warn("failed to remove tracking record for failed generation",
			logging.FieldImageID, id, logging.Error(err))
	}
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove image for failed generation",
			logging.FieldImageID, id, logging.Error(err))
	}
}
