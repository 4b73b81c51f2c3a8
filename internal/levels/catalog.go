package levels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CatalogIndex is the on-disk index.yaml shape listing the available
// levels of a course.
type CatalogIndex struct {
	Course      string      `yaml:"course"`
	Description string      `yaml:"description,omitempty"`
	Levels      []IndexItem `yaml:"levels"`
}

type IndexItem struct {
	ID    string `yaml:"id"`
	File  string `yaml:"file"`
	Order int    `yaml:"order,omitempty"`
}

// Catalog resolves level IDs to loaded, validated level definitions.
type Catalog struct {
	loader      *Loader
	logger      *zap.Logger
	searchPaths []string

	mu      sync.RWMutex
	byID    map[string]IndexItem
	ordered []IndexItem
}

func NewCatalog(searchPaths []string, logger *zap.Logger) (*Catalog, error) {
	loader, err := NewLoader(searchPaths)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		loader:      loader,
		logger:      logger,
		searchPaths: searchPaths,
		byID:        make(map[string]IndexItem),
	}

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads index.yaml from the first search path that has one.
func (c *Catalog) Reload() error {
	var index *CatalogIndex
	var foundPath string

	for _, searchPath := range c.searchPaths {
		fullPath := filepath.Join(searchPath, "index.yaml")
		data, err := os.ReadFile(fullPath)
		if err != nil {
			continue
		}

		var idx CatalogIndex
		if err := yaml.Unmarshal(data, &idx); err != nil {
			return fmt.Errorf("failed to parse %s: %w", fullPath, err)
		}
		index = &idx
		foundPath = fullPath
		break
	}

	if index == nil {
		return fmt.Errorf("no index.yaml found (searched in: %v)", c.searchPaths)
	}

	byID := make(map[string]IndexItem, len(index.Levels))
	for _, item := range index.Levels {
		if _, dup := byID[item.ID]; dup {
			return fmt.Errorf("duplicate level id %q in %s", item.ID, foundPath)
		}
		byID[item.ID] = item
	}

	ordered := make([]IndexItem, len(index.Levels))
	copy(ordered, index.Levels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	c.mu.Lock()
	c.byID = byID
	c.ordered = ordered
	c.mu.Unlock()

	c.loader.ClearCache()
	c.logger.Info("Level catalog loaded",
		zap.String("index", foundPath),
		zap.Int("levels", len(ordered)))
	return nil
}

// Add persists a new level definition into the first search path and
// appends it to index.yaml. The definition must already be validated.
func (c *Catalog) Add(level *Level) error {
	if len(c.searchPaths) == 0 {
		return fmt.Errorf("no search path configured")
	}

	c.mu.RLock()
	_, exists := c.byID[level.ID]
	order := len(c.ordered) + 1
	c.mu.RUnlock()
	if exists {
		return fmt.Errorf("level already exists: %s", level.ID)
	}

	dir := c.searchPaths[0]
	data, err := json.MarshalIndent(level, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, level.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	indexPath := filepath.Join(dir, "index.yaml")
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	var index CatalogIndex
	if err := yaml.Unmarshal(raw, &index); err != nil {
		return fmt.Errorf("failed to parse index: %w", err)
	}

	index.Levels = append(index.Levels, IndexItem{
		ID:    level.ID,
		File:  level.ID,
		Order: order,
	})

	out, err := yaml.Marshal(&index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.WriteFile(indexPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	return c.Reload()
}

// List returns the learner-facing views of all catalogued levels.
// Levels whose files fail to load are skipped with a warning.
func (c *Catalog) List() []Public {
	c.mu.RLock()
	ordered := c.ordered
	c.mu.RUnlock()

	out := make([]Public, 0, len(ordered))
	for _, item := range ordered {
		level, err := c.loader.Load(item.File)
		if err != nil {
			c.logger.Warn("Skipping unloadable level",
				zap.String("id", item.ID), zap.Error(err))
			continue
		}
		out = append(out, level.Public())
	}
	return out
}

// Get loads the full level definition for an ID.
func (c *Catalog) Get(id string) (*Level, error) {
	c.mu.RLock()
	item, ok := c.byID[id]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("level not found: %s", id)
	}
	return c.loader.Load(item.File)
}

func (c *Catalog) Validator() *Validator {
	return c.loader.Validator()
}

func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ordered)
}
