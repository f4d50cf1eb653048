// Package previewcache keeps a versioned on-disk copy of the style preview
// images so the front ends can show them offline.
//
// The cache is cache-first: Fetch serves a stored copy when there is one,
// otherwise it downloads the URL and stores successful (200) responses.
package previewcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Name is the directory of the current cache version. Bump the suffix to
// invalidate every stored preview; Activate then purges the old version.
const Name = "toon-nation-cache-v1"

// namePrefix identifies sibling cache versions under the root.
const namePrefix = "toon-nation-cache-"

const defaultTimeout = 30 * time.Second

// Cache stores previews under <root>/<Name>.
type Cache struct {
	root   string
	client *http.Client

	mu sync.Mutex
}

// New returns a cache rooted at root. A nil client gets a 30s timeout.
func New(root string, client *http.Client) *Cache {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Cache{root: root, client: client}
}

// DefaultRoot is ~/.toon-nation, or the temp dir if there is no home.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "toon-nation")
	}
	return filepath.Join(home, ".toon-nation")
}

// Dir returns the directory of the current cache version.
func (c *Cache) Dir() string {
	return filepath.Join(c.root, Name)
}

func (c *Cache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.Dir(), hex.EncodeToString(sum[:]))
}

// Install downloads every URL into the cache. A URL that fails is logged
// and skipped. It returns how many URLs are now cached.
func (c *Cache) Install(ctx context.Context, urls []string) (int, error) {
	if err := os.MkdirAll(c.Dir(), 0700); err != nil {
		return 0, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cached := 0
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return cached, err
		}
		if _, err := c.Fetch(ctx, url); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Failed to cache preview")
			continue
		}
		cached++
	}
	log.Info().Int("cached", cached).Int("total", len(urls)).Str("dir", c.Dir()).Msg("Preview cache installed")
	return cached, nil
}

// Fetch returns the body for url from the cache, falling back to the
// network. Only 200 responses are stored.
func (c *Cache) Fetch(ctx context.Context, url string) ([]byte, error) {
	p := c.path(url)

	c.mu.Lock()
	data, err := os.ReadFile(p)
	c.mu.Unlock()
	if err == nil {
		log.Trace().Str("url", url).Msg("Preview cache hit")
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("path", p).Msg("Unreadable cache entry, refetching")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	c.mu.Lock()
	err = c.store(p, body)
	c.mu.Unlock()
	if err != nil {
		// The caller still gets the body.
		log.Warn().Err(err).Str("url", url).Msg("Failed to store preview")
	}
	return body, nil
}

func (c *Cache) store(p string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Activate deletes every other cache version under the root and returns
// the names it removed.
func (c *Cache) Activate() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cache root: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == Name || !strings.HasPrefix(e.Name(), namePrefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to delete cache %s: %w", e.Name(), err)
		}
		log.Info().Str("cache", e.Name()).Msg("Deleted old preview cache")
		removed = append(removed, e.Name())
	}
	return removed, nil
}
