// Package carousel provides paged windowing over a ranked list for the
// suggestion surfaces. Pages are fixed-size; the last page is padded with
// placeholders so every page renders the same width.
package carousel

// PageSize is the number of cards per page. The product shipped a two-wide
// variant at one point; three is the settled size.
const PageSize = 3

// Carousel pages over a fixed list of items. The zero value is unusable;
// construct with New.
type Carousel[T any] struct {
	items []T
	page  int
}

// New builds a carousel over items. An empty list yields zero pages and the
// carousel stays pinned on page 0.
func New[T any](items []T) *Carousel[T] {
	c := &Carousel[T]{items: make([]T, len(items))}
	copy(c.items, items)
	return c
}

// Len returns the number of underlying items, excluding padding.
func (c *Carousel[T]) Len() int { return len(c.items) }

// PageCount returns how many pages the items fill.
func (c *Carousel[T]) PageCount() int {
	return (len(c.items) + PageSize - 1) / PageSize
}

// Page returns the current page index.
func (c *Carousel[T]) Page() int { return c.page }

// Current returns the items on the current page, padded with nils to exactly
// PageSize entries. With no items it returns nil.
func (c *Carousel[T]) Current() []*T {
	if len(c.items) == 0 {
		return nil
	}
	out := make([]*T, PageSize)
	start := c.page * PageSize
	for i := 0; i < PageSize; i++ {
		if idx := start + i; idx < len(c.items) {
			out[i] = &c.items[idx]
		}
	}
	return out
}

// Next advances one page, wrapping from the last page back to the first, and
// returns the new page index.
func (c *Carousel[T]) Next() int {
	if n := c.PageCount(); n > 0 {
		c.page = (c.page + 1) % n
	}
	return c.page
}

// Prev steps back one page, wrapping from the first page to the last, and
// returns the new page index.
func (c *Carousel[T]) Prev() int {
	if n := c.PageCount(); n > 0 {
		c.page = (c.page - 1 + n) % n
	}
	return c.page
}

// Select jumps directly to page i, as the pagination dots do. Out-of-range
// selections are ignored.
func (c *Carousel[T]) Select(i int) {
	if i >= 0 && i < c.PageCount() {
		c.page = i
	}
}
