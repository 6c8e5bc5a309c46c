package shader

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// sourcePair is the joint cache key of a vertex and fragment source.
type sourcePair struct {
	vertex   string
	fragment string
}

// cache is the implementation of the Cache interface.
type cache struct {
	mu      *sync.Mutex
	pp      PreProcessor
	entries map[sourcePair]*ShaderInfo
}

// Cache memoizes preprocessing per unique vertex/fragment source pair. Identical pairs always
// return the same *ShaderInfo. Failed pairs are not cached. Entries live as long as the cache.
type Cache interface {
	// Process returns the ShaderInfo for the pair, preprocessing it on first use.
	//
	// Parameters:
	//   - vertexSource: the annotated vertex shader source
	//   - fragmentSource: the annotated fragment shader source
	//
	// Returns:
	//   - *ShaderInfo: the shared, cached result
	//   - error: the preprocessing error, if any
	Process(vertexSource, fragmentSource string) (*ShaderInfo, error)

	// RegisterChunk adds a named chunk to the underlying preprocessor.
	//
	// Parameters:
	//   - name: the chunk name used inside INCLUDE(...)
	//   - source: the WGSL source of the chunk
	//
	// Returns:
	//   - error: an error if a different chunk is already registered under name
	RegisterChunk(name, source string) error

	// Len returns the number of cached source pairs.
	//
	// Returns:
	//   - int: the entry count
	Len() int
}

var _ Cache = &cache{}

// NewCache creates an empty Cache.
//
// Parameters:
//   - options: variadic list of CacheBuilderOption functions to configure the cache
//
// Returns:
//   - Cache: the new cache
func NewCache(options ...CacheBuilderOption) Cache {
	c := &cache{
		mu:      &sync.Mutex{},
		entries: make(map[sourcePair]*ShaderInfo),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.pp == nil {
		c.pp = NewPreProcessor()
	}
	return c
}

func (c *cache) Process(vertexSource, fragmentSource string) (*ShaderInfo, error) {
	key := sourcePair{vertex: vertexSource, fragment: fragmentSource}

	c.mu.Lock()
	defer c.mu.Unlock()

	if info, ok := c.entries[key]; ok {
		return info, nil
	}
	info, err := c.pp.Process(vertexSource, fragmentSource)
	if err != nil {
		return nil, err
	}
	c.entries[key] = info
	common.Logger().Debug("shader pair preprocessed",
		"vertexEntry", info.VertexEntryPoint,
		"fragmentEntry", info.FragmentEntryPoint,
		"attributes", len(info.Layout.Attributes),
		"uniforms", len(info.Layout.Uniforms),
	)
	return info, nil
}

func (c *cache) RegisterChunk(name, source string) error {
	return c.pp.RegisterChunk(name, source)
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
