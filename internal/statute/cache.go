package statute

import "sync"

// Cache holds fetched articles for the lifetime of the process, keyed by
// law name. Concurrent writers for the same law are last-writer-wins;
// article content for a given revision is identical either way.
type Cache struct {
	mu   sync.RWMutex
	laws map[string][]Article
}

// NewCache creates an empty article cache.
func NewCache() *Cache {
	return &Cache{laws: make(map[string][]Article)}
}

// Put stores the articles fetched for a law, replacing any previous set.
func (c *Cache) Put(lawName string, articles []Article) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.laws[lawName] = append([]Article(nil), articles...)
}

// Get returns the cached articles for a law and whether the law is cached.
func (c *Cache) Get(lawName string) ([]Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	articles, ok := c.laws[lawName]
	return articles, ok
}

// Article looks up one article by law name and number label, e.g.
// ("민법", "제618조").
func (c *Cache) Article(lawName, number string) (Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.laws[lawName] {
		if a.Number == number {
			return a, true
		}
	}
	return Article{}, false
}

// Laws returns the names of all cached laws.
func (c *Cache) Laws() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.laws))
	for name := range c.laws {
		names = append(names, name)
	}
	return names
}

// Len returns the total number of cached articles across all laws.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, articles := range c.laws {
		n += len(articles)
	}
	return n
}

// Clear drops all cached articles.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.laws = make(map[string][]Article)
}
