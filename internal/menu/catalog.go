package menu

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Dishes []Dish `yaml:"dishes"`
}

// Load reads a YAML dish catalog. An empty catalog yields the default lineup.
func Load(path string) ([]Dish, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("parse menu file: %w", err)
	}
	if len(file.Dishes) == 0 {
		return Default(), nil
	}
	if err := validate(file.Dishes); err != nil {
		return nil, err
	}
	return file.Dishes, nil
}

// validate rejects unusable entries and trims ids in place so lookups by a
// trimmed id find them.
func validate(dishes []Dish) error {
	seen := make(map[string]struct{}, len(dishes))
	for i, d := range dishes {
		id := strings.TrimSpace(d.ID)
		dishes[i].ID = id
		if id == "" {
			return fmt.Errorf("menu: dish %d has no id", i)
		}
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("menu: dish %q has no name", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("menu: duplicate dish id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Catalog holds the current dish list and optionally follows a catalog file.
type Catalog struct {
	mu     sync.RWMutex
	dishes []Dish
	path   string
	logger *zap.Logger
}

// NewCatalog builds a catalog from path, or from the default lineup when path is empty.
func NewCatalog(path string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{path: path, logger: logger.Named("menu")}
	if path == "" {
		c.dishes = Default()
		return c, nil
	}
	dishes, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.dishes = dishes
	return c, nil
}

// All returns a copy of every dish.
func (c *Catalog) All() []Dish {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Dish, len(c.dishes))
	copy(out, c.dishes)
	return out
}

// Available returns dishes currently on offer.
func (c *Catalog) Available() []Dish {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Dish, 0, len(c.dishes))
	for _, d := range c.dishes {
		if d.Available {
			out = append(out, d)
		}
	}
	return out
}

// Get looks up a dish by id.
func (c *Catalog) Get(id string) (Dish, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.dishes {
		if d.ID == id {
			return d, true
		}
	}
	return Dish{}, false
}

// Reload re-reads the catalog file. A bad file leaves the current list untouched.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	dishes, err := Load(c.path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.dishes = dishes
	c.mu.Unlock()
	c.logger.Info("catalog reloaded", zap.String("path", c.path), zap.Int("dishes", len(dishes)))
	return nil
}

// Watch reloads the catalog whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are handled.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create menu watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("watch menu dir: %w", err)
	}
	target := filepath.Clean(c.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := c.Reload(); err != nil {
				c.logger.Warn("catalog reload failed, keeping previous menu", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				_ = c.Reload()
				continue
			}
			c.logger.Warn("menu watcher error", zap.Error(err))
		}
	}
}
