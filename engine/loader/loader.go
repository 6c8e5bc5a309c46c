// Package loader decodes image files into textures. Batches are decoded concurrently on a worker
// pool and every decoded texture is cached by its path.
package loader

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"golang.org/x/image/draw"
)

// queueSize is the capacity of the decode task queue.
const queueSize = 64

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.RWMutex

	files   fs.FS
	workers int
	maxSize int
	pool    worker.DynamicWorkerPool

	textureCache map[string]*texture.Texture
}

// Loader defines the public-facing interface for loading and caching textures from image files.
// PNG, JPEG, BMP, TIFF and WebP are supported.
type Loader interface {
	// LoadTexture decodes the image at path and caches the result by path.
	// If the texture is already cached, the cached texture is returned.
	//
	// Parameters:
	//   - path: the image file path
	//   - srgb: true to declare the texture as sRGB color data
	//
	// Returns:
	//   - *texture.Texture: the loaded and cached texture
	//   - error: error if the format is unsupported or decoding fails
	LoadTexture(path string, srgb bool) (*texture.Texture, error)

	// LoadTextures decodes every path concurrently on the worker pool and caches the results.
	// Paths that fail are reported together; the others are still cached and returned.
	//
	// Parameters:
	//   - srgb: true to declare the textures as sRGB color data
	//   - paths: the image file paths
	//
	// Returns:
	//   - map[string]*texture.Texture: the loaded textures keyed by path
	//   - error: the joined errors of every failed path
	LoadTextures(srgb bool, paths ...string) (map[string]*texture.Texture, error)

	// DecodeTexture decodes an image stream of any supported format and caches it by name.
	//
	// Parameters:
	//   - name: the cache key for the texture
	//   - r: the reader providing the encoded image
	//   - srgb: true to declare the texture as sRGB color data
	//
	// Returns:
	//   - *texture.Texture: the decoded texture
	//   - error: error if decoding fails
	DecodeTexture(name string, r io.Reader, srgb bool) (*texture.Texture, error)

	// Get retrieves a cached texture by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *texture.Texture: the cached texture or nil
	Get(name string) *texture.Texture

	// Textures returns a copy of the texture cache.
	//
	// Returns:
	//   - map[string]*texture.Texture: all cached textures keyed by name
	Textures() map[string]*texture.Texture

	// Close stops the worker pool. The loader must not be used afterwards.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader reading from the working directory, with one worker per
// available CPU unless configured otherwise.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:           &sync.RWMutex{},
		files:        os.DirFS("."),
		workers:      defaultWorkers(),
		textureCache: make(map[string]*texture.Texture),
	}
	for _, option := range options {
		option(l)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, queueSize, time.Second)
	return l
}

func (l *loader) LoadTexture(path string, srgb bool) (*texture.Texture, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}
	t, err := l.load(path, srgb)
	if err != nil {
		return nil, err
	}
	return l.store(path, t), nil
}

func (l *loader) LoadTextures(srgb bool, paths ...string) (map[string]*texture.Texture, error) {
	out := make(map[string]*texture.Texture, len(paths))
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	for i, path := range paths {
		if cached := l.Get(path); cached != nil {
			out[path] = cached
			continue
		}
		wg.Add(1)
		l.pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: path,
			Do: func() (any, error) {
				defer wg.Done()
				t, err := l.load(path, srgb)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return nil, err
				}
				out[path] = t
				return t, nil
			},
		})
	}
	wg.Wait()

	for path, t := range out {
		out[path] = l.store(path, t)
	}
	common.Logger().Debug("texture batch loaded", "requested", len(paths), "failed", len(errs))
	return out, errors.Join(errs...)
}

func (l *loader) DecodeTexture(name string, r io.Reader, srgb bool) (*texture.Texture, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	img, err := sniffDecode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", name, err)
	}
	return l.store(name, texture.FromImage(name, l.fit(img), srgb)), nil
}

func (l *loader) Get(name string) *texture.Texture {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.textureCache[name]
}

func (l *loader) Textures() map[string]*texture.Texture {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*texture.Texture, len(l.textureCache))
	for k, v := range l.textureCache {
		result[k] = v
	}
	return result
}

func (l *loader) Close() {
	l.pool.Stop()
}

// load opens and decodes path without touching the cache.
func (l *loader) load(path string, srgb bool) (*texture.Texture, error) {
	decode, err := resolveDecoder(path)
	if err != nil {
		return nil, err
	}
	f, err := l.files.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	t := texture.FromImage(path, l.fit(img), srgb)
	w, h := t.Size()
	common.Logger().Debug("texture decoded", "path", path, "width", w, "height", h)
	return t, nil
}

// store caches t under name unless another load cached one first, and returns the cached texture.
func (l *loader) store(name string, t *texture.Texture) *texture.Texture {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.textureCache[name]; ok {
		return cached
	}
	l.textureCache[name] = t
	return t
}

// fit downscales img so neither side exceeds the configured maximum, keeping the aspect ratio.
func (l *loader) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if l.maxSize <= 0 || (w <= l.maxSize && h <= l.maxSize) {
		return img
	}
	if w >= h {
		h = max(1, h*l.maxSize/w)
		w = l.maxSize
	} else {
		w = max(1, w*l.maxSize/h)
		h = l.maxSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
