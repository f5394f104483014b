package form

import (
	"fmt"
	"sort"

	"github.com/go-admin-auth/internal/domain"
)

// Consumer is an ordered element registry. Consume marks an element as placed so
// Rest can return what is left for the default layout.
type Consumer struct {
	items    []*Element
	consumed map[string]bool
}

// Add registers elements. An element whose ID is already present replaces it.
func (c *Consumer) Add(elems ...*Element) {
	for _, e := range elems {
		if i := c.index(e.ID); i >= 0 {
			c.items[i] = e
			continue
		}
		c.items = append(c.items, e)
	}
}

// Update applies fn to the element with the given ID.
func (c *Consumer) Update(id string, fn func(e *Element)) error {
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("form element %q: %w", id, domain.ErrNotFound)
	}
	fn(c.items[i])
	return nil
}

func (c *Consumer) Remove(ids ...string) {
	for _, id := range ids {
		if i := c.index(id); i >= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		}
	}
}

// Find returns the element with the given ID or nil.
func (c *Consumer) Find(id string) *Element {
	if i := c.index(id); i >= 0 {
		return c.items[i]
	}
	return nil
}

// Consume returns the element and excludes it from Rest.
func (c *Consumer) Consume(id string) *Element {
	e := c.Find(id)
	if e == nil {
		return nil
	}
	if c.consumed == nil {
		c.consumed = make(map[string]bool)
	}
	c.consumed[id] = true
	return e
}

// Rest returns the elements not yet consumed, by Order then insertion.
func (c *Consumer) Rest() []*Element {
	out := make([]*Element, 0, len(c.items))
	for _, e := range c.items {
		if !c.consumed[e.ID] {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// All returns every registered element in insertion order.
func (c *Consumer) All() []*Element {
	return append([]*Element(nil), c.items...)
}

// ResetConsumed forgets previous Consume calls.
func (c *Consumer) ResetConsumed() { c.consumed = nil }

func (c *Consumer) index(id string) int {
	for i, e := range c.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}
