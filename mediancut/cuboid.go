// Package mediancut implements two-tier median-cut colour quantization:
// a dense-histogram variant for whole-frame palettes and a sparse-list
// variant (with an accumulate-across-several-blocks calling convention)
// for macroblock sub-palettes, over one shared driver algorithm.
package mediancut

// Cuboid is the capability set the shared median-cut driver needs from
// either concrete variant: a dense array histogram or a sparse
// occurrence list.
type Cuboid interface {
	Minimize()
	Volume() int
	LongestSide() int
	Median(axis int) int
	// Split divides the cuboid along axis at point: this cuboid keeps
	// the <= point half and the returned cuboid is the > point half.
	Split(axis, point int) Cuboid
	// AverageColor writes this cuboid's count-weighted centroid into
	// palette at index*3.
	AverageColor(palette []uint8, index int)
	NewInstance() Cuboid
}

// bounds is the axis-aligned box shared by both cuboid variants: min/max
// inclusive per channel.
type bounds struct {
	minR, minG, minB int
	maxR, maxG, maxB int
}

func (b *bounds) setProportions(minR, minG, minB, maxR, maxG, maxB int) {
	b.minR, b.minG, b.minB = minR, minG, minB
	b.maxR, b.maxG, b.maxB = maxR, maxG, maxB
}

func (b *bounds) volume() int {
	return (b.maxR - b.minR + 1) * (b.maxG - b.minG + 1) * (b.maxB - b.minB + 1)
}

// longestSide preserves the reference implementation's tie-break bug
// verbatim: the blue-vs-winner comparison is computed but then always
// discarded by the unconditional side=0/side=1 that follows it, so red
// vs green (via the outer comparison) always decides, and blue never
// wins even when it is strictly the longest side. See DESIGN.md, Open
// Question 1.
func (b *bounds) longestSide() int {
	rLength := b.maxR - b.minR + 1
	gLength := b.maxG - b.minG + 1
	bLength := b.maxB - b.minB + 1

	side := 0
	if rLength > gLength {
		if bLength > rLength {
			side = 2
		}
		side = 0
	} else {
		if bLength > gLength {
			side = 2
		}
		side = 1
	}
	return side
}

func (b *bounds) axisRange(axis int) (min, max int) {
	switch axis {
	case 0:
		return b.minR, b.maxR
	case 1:
		return b.minG, b.maxG
	default:
		return b.minB, b.maxB
	}
}
