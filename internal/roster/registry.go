package roster

import (
	"fmt"
	"sort"
)

// Registry is the read-mostly table of teams.
//
// It is built once from configuration data and treated as immutable; reloads
// replace the whole Registry (see engine.ReloadRegistry). That keeps lookups
// lock-free.
type Registry struct {
	byID   map[string]Team
	byName map[string]Team
	order  []string // ids in registration order, for stable All()
}

// NewRegistry validates and indexes teams.
//
// Enforced here, once, so the rest of the engine can assume them:
//   - team ids and names are unique
//   - half-teams partition: no half-team belongs to two teams
func NewRegistry(teams []Team) (*Registry, error) {
	if len(teams) == 0 {
		return nil, ErrEmptyRegistry
	}
	r := &Registry{
		byID:   make(map[string]Team, len(teams)),
		byName: make(map[string]Team, len(teams)),
		order:  make([]string, 0, len(teams)),
	}
	halves := make(map[string]string, len(teams)*2) // half name -> owning team id
	for _, t := range teams {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate team id %q", t.ID)
		}
		if prev, dup := r.byName[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate team name %q (teams %s and %s)", t.Name(), prev.ID, t.ID)
		}
		for _, h := range []string{t.HalfA.Name, t.HalfB.Name} {
			if owner, taken := halves[h]; taken {
				return nil, fmt.Errorf("half-team %q assigned to both team %s and team %s", h, owner, t.ID)
			}
			halves[h] = t.ID
		}
		r.byID[t.ID] = t
		r.byName[t.Name()] = t
		r.order = append(r.order, t.ID)
	}
	return r, nil
}

// ByID resolves a team by id.
func (r *Registry) ByID(id string) (Team, error) {
	t, ok := r.byID[id]
	if !ok {
		return Team{}, fmt.Errorf("team id %q: %w", id, ErrNotFound)
	}
	return t, nil
}

// ByName resolves a team by display name.
func (r *Registry) ByName(name string) (Team, error) {
	t, ok := r.byName[name]
	if !ok {
		return Team{}, fmt.Errorf("team name %q: %w", name, ErrNotFound)
	}
	return t, nil
}

// ByHalf resolves the team owning the named half-team.
func (r *Registry) ByHalf(half string) (Team, error) {
	for _, t := range r.byID {
		if t.Has(half) {
			return t, nil
		}
	}
	return Team{}, fmt.Errorf("half-team %q: %w", half, ErrNotFound)
}

// All returns teams in registration order.
func (r *Registry) All() []Team {
	out := make([]Team, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns all team ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of teams.
func (r *Registry) Len() int { return len(r.byID) }
