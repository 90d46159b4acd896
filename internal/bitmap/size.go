package bitmap

import "math"

// DefaultMaxBytes bounds the uncompressed size of one encoded bitmap.
const DefaultMaxBytes = 15000

const bytesPerPixel = 4

// ScaledSize returns the largest dimensions with the aspect ratio of w x h
// whose uncompressed RGBA size fits in maxBytes. Sizes that already fit are
// returned unchanged.
func ScaledSize(w, h, maxBytes int) (int, int) {
	if w <= 0 || h <= 0 || w*h*bytesPerPixel <= maxBytes {
		return w, h
	}
	ratio := float64(w) / float64(h)
	maxSize := int(math.Sqrt(float64(maxBytes / bytesPerPixel)))
	if ratio > 1 {
		return maxSize, int(float64(maxSize) / ratio)
	}
	return int(float64(maxSize) * ratio), maxSize
}
