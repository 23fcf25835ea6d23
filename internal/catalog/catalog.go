package catalog

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Episode describes one source video file frames can be extracted from.
type Episode struct {
	ID      string `toml:"id"`
	Title   string `toml:"title"`
	Season  int    `toml:"season"`
	Episode int    `toml:"episode"`
	// Source is the absolute path to the video file.
	Source string `toml:"source"`
	// DurationSeconds is the playable length of the episode.
	DurationSeconds float64 `toml:"duration_seconds"`
	// FPS is the frame rate used to round seek times to frame boundaries.
	FPS float64 `toml:"fps"`
	// SkipIntroSeconds excludes the opening range from random seeks.
	SkipIntroSeconds float64 `toml:"skip_intro_seconds"`
	// SkipOutroSeconds excludes the closing range from random seeks.
	SkipOutroSeconds float64 `toml:"skip_outro_seconds"`
}

// DisplayTitle returns a human-readable title, derived from the source path
// when no explicit title is configured.
func (e Episode) DisplayTitle() string {
	if title := strings.TrimSpace(e.Title); title != "" {
		return title
	}
	return deriveTitle(e.Source)
}

// SeekableSeconds returns the length of the range random seeks may land in.
func (e Episode) SeekableSeconds() float64 {
	usable := e.DurationSeconds - e.SkipIntroSeconds - e.SkipOutroSeconds
	if usable < 0 {
		return 0
	}
	return usable
}

// Catalog holds the episode list loaded once at startup.
type Catalog struct {
	episodes []Episode
}

type catalogFile struct {
	Episodes []Episode `toml:"episodes"`
}

// Load reads and validates an episode catalog from a TOML file. The catalog is
// loaded exactly once during process startup and passed down by reference.
func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	var parsed catalogFile
	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if len(parsed.Episodes) == 0 {
		return nil, errors.New("catalog contains no episodes")
	}

	seen := make(map[string]struct{}, len(parsed.Episodes))
	for i := range parsed.Episodes {
		ep := &parsed.Episodes[i]
		ep.ID = strings.TrimSpace(ep.ID)
		if ep.ID == "" {
			return nil, fmt.Errorf("catalog episode %d: id is required", i)
		}
		if _, ok := seen[ep.ID]; ok {
			return nil, fmt.Errorf("catalog episode %q: duplicate id", ep.ID)
		}
		seen[ep.ID] = struct{}{}
		if strings.TrimSpace(ep.Source) == "" {
			return nil, fmt.Errorf("catalog episode %q: source is required", ep.ID)
		}
		if ep.FPS <= 0 {
			return nil, fmt.Errorf("catalog episode %q: fps must be positive", ep.ID)
		}
		if ep.DurationSeconds <= 0 {
			return nil, fmt.Errorf("catalog episode %q: duration_seconds must be positive", ep.ID)
		}
		if ep.SeekableSeconds() <= 0 {
			return nil, fmt.Errorf("catalog episode %q: skip ranges leave no seekable span", ep.ID)
		}
	}

	return &Catalog{episodes: parsed.Episodes}, nil
}

// Episodes returns the loaded episode list.
func (c *Catalog) Episodes() []Episode {
	return c.episodes
}

// Len returns the number of episodes.
func (c *Catalog) Len() int {
	return len(c.episodes)
}

// Random returns a uniformly chosen episode.
func (c *Catalog) Random(rng *rand.Rand) Episode {
	return c.episodes[rng.IntN(len(c.episodes))]
}

func deriveTitle(sourcePath string) string {
	if sourcePath == "" {
		return "Unknown Episode"
	}
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		title = "Unknown Episode"
	}
	return cases.Title(language.Und).String(title)
}
