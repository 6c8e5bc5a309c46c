package loader

import (
	"io/fs"
	"runtime"

	"github.com/Carmen-Shannon/oxy-render/engine/texture"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS is an option builder that sets the file system paths are resolved against.
// Defaults to the working directory.
//
// Parameters:
//   - files: the file system to read images from
//
// Returns:
//   - LoaderBuilderOption: a function that applies the file system option to a loader
func WithFS(files fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.files = files
	}
}

// WithWorkers is an option builder that sets the number of decode workers.
//
// Parameters:
//   - n: the worker count, values below 1 are treated as 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(1, n)
	}
}

// WithMaxSize is an option builder that downscales decoded images whose larger side exceeds size.
//
// Parameters:
//   - size: the maximum width and height in pixels, 0 to keep the original size
//
// Returns:
//   - LoaderBuilderOption: a function that applies the max size option to a loader
func WithMaxSize(size int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxSize = size
	}
}

// WithTexture is an option builder that pre-populates the texture cache.
//
// Parameters:
//   - key: the cache key for the texture
//   - t: the texture to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the texture option to a loader
func WithTexture(key string, t *texture.Texture) LoaderBuilderOption {
	return func(l *loader) {
		l.textureCache[key] = t
	}
}

func defaultWorkers() int {
	return runtime.NumCPU()
}
