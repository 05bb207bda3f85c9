package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

// SeedFile is the categories file looked up in a data directory.
const SeedFile = "categories.yaml"

type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
}

type seedCategory struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Color string `yaml:"color"`
	Type  string `yaml:"type"`
}

// LoadSeedCategories reads dir/categories.yaml. A missing file returns no
// categories and no error.
//
//	categories:
//	  - id: "1"
//	    name: Groceries
//	    icon: "🛒"
//	    color: "#FF6B6B"
//	    type: expense
func LoadSeedCategories(dir string) ([]core.Category, error) {
	if dir == "" {
		return nil, nil
	}
	path := filepath.Join(dir, SeedFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cats := make([]core.Category, 0, len(f.Categories))
	seen := make(map[string]struct{}, len(f.Categories))
	for i, sc := range f.Categories {
		c := core.Category{
			ID:    sc.ID,
			Name:  sc.Name,
			Icon:  sc.Icon,
			Color: sc.Color,
			Type:  core.TransactionType(sc.Type),
		}
		if c.ID == "" {
			c.ID = fmt.Sprint(i + 1)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s: category %d: %w", path, i+1, err)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate category id %q", path, c.ID)
		}
		seen[c.ID] = struct{}{}
		cats = append(cats, c)
	}
	return cats, nil
}
