package ruleset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store memoizes Loader results until a source file changes.
type Store struct {
	loader *Loader

	mu          sync.Mutex
	cached      *Config
	fingerprint string
}

// NewStore creates a caching store over loader.
func NewStore(loader *Loader) *Store {
	return &Store{
		loader: loader,
	}
}

// Load returns the merged configuration, reloading only when the
// fingerprint of the source files differs from the cached one.
func (s *Store) Load() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	fingerprint := Fingerprint(s.loader.Sources())
	if s.cached != nil && fingerprint == s.fingerprint {
		return s.cached
	}

	s.cached = s.loader.Load()
	s.fingerprint = fingerprint
	return s.cached
}

// Fingerprint hashes the path, size and modification time of every file the
// loader could read from sources, plus scripts directory presence.
func Fingerprint(sources []string) string {
	hasher := sha256.New()
	for _, source := range sources {
		for _, name := range []string{rulesFileName, rulesAliasFileName, conditionsFileName, actionsFileName, scriptsDirName} {
			path := filepath.Join(source, name)
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			fmt.Fprintf(hasher, "%s\x00%d\x00%d\x00%t\n", path, info.Size(), info.ModTime().UnixNano(), info.IsDir())
		}
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
