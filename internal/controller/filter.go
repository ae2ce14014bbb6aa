package controller

import (
	"strings"
	"sync"

	"github.com/yash24113/shofy-listsync/internal/domain"
)

// Matcher is the local row-visibility predicate for an active text filter.
// The query is lower-cased and split on whitespace; every term must appear
// as a substring of at least one of the entry's title, slug, design, or
// color. Filtering hides rows, it never removes them from the list.
type Matcher struct {
	terms []string
}

// NewMatcher builds a matcher from raw search text.
func NewMatcher(query string) Matcher {
	return Matcher{terms: strings.Fields(strings.ToLower(query))}
}

// Empty reports whether the matcher has no active terms. An empty matcher
// matches every entry.
func (m Matcher) Empty() bool {
	return len(m.terms) == 0
}

// Match reports whether the entry is visible under the filter.
func (m Matcher) Match(e domain.ListEntry) bool {
	if len(m.terms) == 0 {
		return true
	}
	fields := []string{
		strings.ToLower(e.Title),
		strings.ToLower(e.Slug),
		strings.ToLower(e.Design),
		strings.ToLower(e.Color),
	}
	for _, term := range m.terms {
		hit := false
		for _, f := range fields {
			if strings.Contains(f, term) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// VisibleCounter tracks how many mounted rows of one list are currently
// visible. The enclosing list shows its empty banner exactly when the
// visible count is zero.
type VisibleCounter struct {
	mu   sync.Mutex
	rows map[string]bool
}

// NewVisibleCounter creates an empty counter.
func NewVisibleCounter() *VisibleCounter {
	return &VisibleCounter{rows: make(map[string]bool)}
}

// Mount registers a row with its initial visibility.
func (c *VisibleCounter) Mount(productID string, visible bool) {
	c.mu.Lock()
	c.rows[productID] = visible
	c.mu.Unlock()
}

// Update records a visibility change for a mounted row.
func (c *VisibleCounter) Update(productID string, visible bool) {
	c.mu.Lock()
	c.rows[productID] = visible
	c.mu.Unlock()
}

// Unmount removes a row from the counter.
func (c *VisibleCounter) Unmount(productID string) {
	c.mu.Lock()
	delete(c.rows, productID)
	c.mu.Unlock()
}

// Visible returns the count of currently visible rows.
func (c *VisibleCounter) Visible() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.rows {
		if v {
			n++
		}
	}
	return n
}

// Empty reports whether the list should show its empty banner.
func (c *VisibleCounter) Empty() bool {
	return c.Visible() == 0
}

// Recount resets the counter from a snapshot and matcher, returning the
// visible count. Used when the filter text changes wholesale.
func (c *VisibleCounter) Recount(s domain.Snapshot, m Matcher) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = make(map[string]bool, len(s))
	n := 0
	for id, e := range s {
		v := m.Match(e)
		c.rows[id] = v
		if v {
			n++
		}
	}
	return n
}
