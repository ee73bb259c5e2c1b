package catalog

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Filter returns the ids whose title or description contains query,
// case-insensitively, in catalog order. An empty query means no filter and
// yields nil; a query without matches yields an empty, non-nil slice.
func (c *Catalog) Filter(query string) []string {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.order))
	for _, id := range c.order {
		p := c.byID[id]
		if strings.Contains(strings.ToLower(p.Title), q) ||
			(p.Description != "" && strings.Contains(strings.ToLower(p.Description), q)) {
			out = append(out, id)
		}
	}
	return out
}

// Suggest returns the persona whose title is closest to query by edit
// distance, provided it is close enough to be a plausible typo.
func (c *Catalog) Suggest(query string) (Persona, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Persona{}, false
	}
	limit := len(q)/2 + 1

	c.mu.RLock()
	defer c.mu.RUnlock()
	bestID, bestDist := "", -1
	for _, id := range c.order {
		d := levenshtein.ComputeDistance(q, strings.ToLower(c.byID[id].Title))
		if d > limit {
			continue
		}
		if bestDist < 0 || d < bestDist {
			bestID, bestDist = id, d
		}
	}
	if bestID == "" {
		return Persona{}, false
	}
	return c.byID[bestID].clone(), true
}
