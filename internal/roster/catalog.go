package roster

import "fmt"

// Catalog is the read-mostly table of shift type definitions.
// Like Registry, it is immutable once built; reloads replace it wholesale.
type Catalog struct {
	byID   map[string]ShiftType
	byName map[string]ShiftType
	order  []string
}

// NewCatalog validates and indexes shift types.
func NewCatalog(shifts []ShiftType) (*Catalog, error) {
	if len(shifts) == 0 {
		return nil, ErrEmptyRegistry
	}
	c := &Catalog{
		byID:   make(map[string]ShiftType, len(shifts)),
		byName: make(map[string]ShiftType, len(shifts)),
		order:  make([]string, 0, len(shifts)),
	}
	for _, s := range shifts {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate shift type id %q", s.ID)
		}
		if prev, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate shift type name %q (ids %s and %s)", s.Name, prev.ID, s.ID)
		}
		c.byID[s.ID] = s
		c.byName[s.Name] = s
		c.order = append(c.order, s.ID)
	}
	return c, nil
}

// ByID resolves a shift type by id.
func (c *Catalog) ByID(id string) (ShiftType, error) {
	s, ok := c.byID[id]
	if !ok {
		return ShiftType{}, fmt.Errorf("shift type id %q: %w", id, ErrNotFound)
	}
	return s, nil
}

// ByName resolves a shift type by name.
func (c *Catalog) ByName(name string) (ShiftType, error) {
	s, ok := c.byName[name]
	if !ok {
		return ShiftType{}, fmt.Errorf("shift type name %q: %w", name, ErrNotFound)
	}
	return s, nil
}

// All returns shift types in registration order.
func (c *Catalog) All() []ShiftType {
	out := make([]ShiftType, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of shift types.
func (c *Catalog) Len() int { return len(c.byID) }
