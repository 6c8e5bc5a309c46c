package shader

import "github.com/Carmen-Shannon/oxy-render/common"

// CacheBuilderOption is a function that configures a cache instance during construction.
type CacheBuilderOption func(*cache)

// WithPreProcessor is an option builder that sets the preprocessor the cache delegates to.
//
// Parameters:
//   - pp: the preprocessor to use
//
// Returns:
//   - CacheBuilderOption: a function that applies the preprocessor option to a cache
func WithPreProcessor(pp PreProcessor) CacheBuilderOption {
	return func(c *cache) {
		c.pp = pp
	}
}

// WithChunk is an option builder that registers a chunk at construction. A chunk whose name is
// already registered with different source is ignored and logged as a warning; use
// Cache.RegisterChunk to handle the error instead.
//
// Parameters:
//   - name: the chunk name used inside INCLUDE(...)
//   - source: the WGSL source of the chunk
//
// Returns:
//   - CacheBuilderOption: a function that applies the chunk option to a cache
func WithChunk(name, source string) CacheBuilderOption {
	return func(c *cache) {
		if c.pp == nil {
			c.pp = NewPreProcessor()
		}
		if err := c.pp.RegisterChunk(name, source); err != nil {
			common.Logger().Warn("shader chunk ignored", "chunk", name, "error", err)
		}
	}
}
