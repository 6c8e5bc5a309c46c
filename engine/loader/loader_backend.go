package loader

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// decodeFunc decodes one image format from a stream.
type decodeFunc func(r io.Reader) (image.Image, error)

// decoders maps a lower case file extension to the decoder for its format.
var decoders = map[string]decodeFunc{
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".bmp":  bmp.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".webp": webp.Decode,
}

// resolveDecoder picks the decoder for path by its extension.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - decodeFunc: the decoder
//   - error: an error if the extension is not a supported image format
func resolveDecoder(path string) (decodeFunc, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if dec, ok := decoders[ext]; ok {
		return dec, nil
	}
	return nil, fmt.Errorf("unsupported image format: %q", ext)
}

// sniffDecode decodes a stream of unknown format. Every format in decoders is registered with the
// image package by its import, so image.Decode recognizes all of them by their magic bytes.
func sniffDecode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}
