package assembler

import (
	"bytes"
	"cmp"
	"fmt"
	"image"
	_ "image/jpeg"
	"slices"

	"screencast-insights-go/internal/types"
)

const (
	DefaultPaletteSize = 6
	// bits kept per channel when bucketing pixels
	quantBits = 3
	// per-frame pixel budget; larger frames are strided
	maxSamples = 64 * 64
)

type bucket struct {
	key     int
	count   int
	r, g, b int
}

// Palette returns up to n dominant colors across all decodable frames as
// #rrggbb, most frequent first. Each color is the mean of its bucket.
func Palette(frames []types.Frame, n int) []string {
	if n <= 0 {
		n = DefaultPaletteSize
	}
	buckets := map[int]*bucket{}
	for _, f := range frames {
		img, _, err := image.Decode(bytes.NewReader(f.Image))
		if err != nil {
			continue
		}
		accumulate(img, buckets)
	}

	list := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		list = append(list, b)
	}
	slices.SortFunc(list, func(a, b *bucket) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	out := []string{}
	for _, b := range list {
		if len(out) == n {
			break
		}
		out = append(out, fmt.Sprintf("#%02x%02x%02x", b.r/b.count, b.g/b.count, b.b/b.count))
	}
	return out
}

func accumulate(img image.Image, buckets map[int]*bucket) {
	bounds := img.Bounds()
	step := 1
	for (bounds.Dx()/step)*(bounds.Dy()/step) > maxSamples {
		step++
	}
	shift := 8 - quantBits
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			r, g, b := int(r16>>8), int(g16>>8), int(b16>>8)
			key := (r>>shift)<<(2*quantBits) | (g>>shift)<<quantBits | b>>shift
			bk, ok := buckets[key]
			if !ok {
				bk = &bucket{key: key}
				buckets[key] = bk
			}
			bk.count++
			bk.r += r
			bk.g += g
			bk.b += b
		}
	}
}
