package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// glamour.TermRenderer is not safe for concurrent Render calls, so each
// option set gets its own pool of renderers.
var renderers = &rendererCache{pools: make(map[Options]*sync.Pool)}

type rendererCache struct {
	mu    sync.Mutex
	pools map[Options]*sync.Pool
}

// cacheKey normalizes style aliases so "tokyonight" and "tokyo-night" share
// renderers
func cacheKey(opts Options) Options {
	opts.Style = resolveStyle(opts.Style)
	return opts
}

func (c *rendererCache) pool(opts Options) *sync.Pool {
	key := cacheKey(opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pools[key]
	if !ok {
		p = &sync.Pool{}
		c.pools[key] = p
	}
	return p
}

// acquire hands out a pooled renderer, building one when the pool is empty
func (c *rendererCache) acquire(opts Options) (*glamour.TermRenderer, func(), error) {
	p := c.pool(opts)

	r, _ := p.Get().(*glamour.TermRenderer)
	if r == nil {
		var err error
		if r, err = newRenderer(opts); err != nil {
			return nil, nil, err
		}
	}
	return r, func() { p.Put(r) }, nil
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	options := []glamour.TermRendererOption{
		glamour.WithStylePath(resolveStyle(opts.Style)),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		options = append(options, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		options = append(options, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(options...)
}

// ClearCache drops every pooled renderer.
func ClearCache() {
	renderers.mu.Lock()
	renderers.pools = make(map[Options]*sync.Pool)
	renderers.mu.Unlock()
}

// CacheSize returns the number of distinct option sets seen since the last
// ClearCache.
func CacheSize() int {
	renderers.mu.Lock()
	defer renderers.mu.Unlock()
	return len(renderers.pools)
}
