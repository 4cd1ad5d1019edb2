// Package catalog holds the course units and their page ranges.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"coursecoach/internal/domain"
)

// Catalog is an ordered, read-only list of course units.
type Catalog struct {
	units []domain.CourseUnit
	index map[string]int
}

// New builds a catalog from units in course order.
func New(units []domain.CourseUnit) (*Catalog, error) {
	if len(units) == 0 {
		return nil, errors.New("catalog has no units")
	}
	c := &Catalog{units: make([]domain.CourseUnit, len(units)), index: make(map[string]int, len(units))}
	for i, u := range units {
		if u.ID == "" {
			return nil, fmt.Errorf("unit %d has empty id", i)
		}
		if u.StartPage <= 0 || u.EndPage < u.StartPage {
			return nil, fmt.Errorf("unit %s has invalid page range %d-%d", u.ID, u.StartPage, u.EndPage)
		}
		if _, dup := c.index[u.ID]; dup {
			return nil, fmt.Errorf("duplicate unit id %s", u.ID)
		}
		c.index[u.ID] = i
		u.LearningObjectives = append([]string(nil), u.LearningObjectives...)
		c.units[i] = u
	}
	return c, nil
}

// Default returns the built-in course catalog.
func Default() *Catalog {
	c, err := New(defaultUnits)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads units from a YAML file. A missing file yields the built-in
// catalog, which is written to path so it can be edited.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c := Default()
			if err := c.Save(path); err != nil {
				return nil, err
			}
			return c, nil
		}
		return nil, err
	}
	var units []domain.CourseUnit
	if err := yaml.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("parse units %s: %w", path, err)
	}
	return New(units)
}

// Save writes the units to path as YAML.
func (c *Catalog) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c.units)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Units returns the units in course order.
func (c *Catalog) Units() []domain.CourseUnit {
	return append([]domain.CourseUnit(nil), c.units...)
}

// IDs returns unit ids in course order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.units))
	for i, u := range c.units {
		ids[i] = u.ID
	}
	return ids
}

// ByID looks up a unit.
func (c *Catalog) ByID(id string) (domain.CourseUnit, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.CourseUnit{}, false
	}
	return c.units[i], true
}

// Next returns the id of the unit following id, if any.
func (c *Catalog) Next(id string) (string, bool) {
	i, ok := c.index[id]
	if !ok || i+1 >= len(c.units) {
		return "", false
	}
	return c.units[i+1].ID, true
}

// UnitForPage returns the unit whose range contains page.
func (c *Catalog) UnitForPage(page int) (domain.CourseUnit, bool) {
	for _, u := range c.units {
		if page >= u.StartPage && page <= u.EndPage {
			return u, true
		}
	}
	return domain.CourseUnit{}, false
}

// UnitLayout is the page-range fingerprint used to invalidate derived caches.
type UnitLayout struct {
	UnitCount int          `json:"unit_count"`
	Units     []UnitBounds `json:"units"`
}

// UnitBounds is one unit's entry in a UnitLayout.
type UnitBounds struct {
	ID        string `json:"id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// Layout fingerprints the catalog's unit boundaries.
func (c *Catalog) Layout() UnitLayout {
	return LayoutOf(c.units)
}

// LayoutOf fingerprints the given units.
func LayoutOf(units []domain.CourseUnit) UnitLayout {
	l := UnitLayout{UnitCount: len(units), Units: make([]UnitBounds, len(units))}
	for i, u := range units {
		l.Units[i] = UnitBounds{ID: u.ID, StartPage: u.StartPage, EndPage: u.EndPage}
	}
	return l
}

// Equal reports whether two layouts describe the same boundaries.
func (l UnitLayout) Equal(o UnitLayout) bool {
	if l.UnitCount != o.UnitCount || len(l.Units) != len(o.Units) {
		return false
	}
	for i := range l.Units {
		if l.Units[i] != o.Units[i] {
			return false
		}
	}
	return true
}
