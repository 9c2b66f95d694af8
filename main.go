package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache/memory"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache/sqlite"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal("❌ ", err)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wildlife-atlas",
		Short: "Wildlife catalogue with an offline-first cache proxy",
		Long: `Wildlife Atlas serves a catalogue of local animals, a favourites list and a
map, and fronts them with a versioned cache proxy so visited pages keep
working offline.

Configuration is read from the environment (PORT, ANIMALS_FEED_URL,
CACHE_VERSION, CACHE_BACKEND, ...); flags override it.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCommand(), newProxyCommand(), newCacheCommand())
	return root
}

// openStorage picks the cache backend named in cfg.
func openStorage(cfg *config.Config) (cache.Storage, error) {
	if cfg.CacheBackend == config.BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
			return nil, err
		}
		return sqlite.Open(cfg.CachePath)
	}
	return memory.New(), nil
}
