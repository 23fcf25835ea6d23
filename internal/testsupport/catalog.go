package testsupport

import (
	"os"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"framed/internal/catalog"
	"framed/internal/config"
)

// SampleEpisode returns a valid catalog episode rooted in the test tree.
func SampleEpisode(cfg *config.Config, id string, season, episode int) catalog.Episode {
	return catalog.Episode{
		ID:              id,
		Season:          season,
		Episode:         episode,
		Source:          BaseDir(cfg) + "/" + id + ".mkv",
		DurationSeconds: 1320,
		FPS:             24,
	}
}

// MustLoadCatalog writes the episodes to the configured catalog path and
// loads them back, failing the test on any error.
func MustLoadCatalog(t testing.TB, cfg *config.Config, episodes ...catalog.Episode) *catalog.Catalog {
	t.Helper()

	payload := struct {
		Episodes []catalog.Episode `toml:"episodes"`
	}{Episodes: episodes}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal catalog: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.CatalogPath, data, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	loaded, err := catalog.Load(cfg.Paths.CatalogPath)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return loaded
}
