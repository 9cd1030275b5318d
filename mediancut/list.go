package mediancut

// colorOccurrence is one distinct (r,g,b) colour and how many times it
// was sampled.
type colorOccurrence struct {
	r, g, b uint8
	count   int
}

func (o *colorOccurrence) axis(axis int) int {
	switch axis {
	case 0:
		return int(o.r)
	case 1:
		return int(o.g)
	default:
		return int(o.b)
	}
}

// ListCuboid is the sparse-list cuboid variant: populated colours live
// in a flat slice shared (by reference) across all cuboids split from
// the same seed, each cuboid owning the subset of occurrences inside
// its current bounds.
type ListCuboid struct {
	bounds
	all *[]colorOccurrence
	own []colorOccurrence
}

func newListCuboidFromAll(all *[]colorOccurrence) *ListCuboid {
	own := make([]colorOccurrence, len(*all))
	copy(own, *all)
	return &ListCuboid{all: all, own: own, bounds: bounds{0, 0, 0, 255, 255, 255}}
}

func newEmptyListCuboid(all *[]colorOccurrence) *ListCuboid {
	return &ListCuboid{all: all}
}

func (c *ListCuboid) Minimize() {
	if len(c.own) == 0 {
		return
	}
	newMinR, newMinG, newMinB := c.maxR, c.maxG, c.maxB
	newMaxR, newMaxG, newMaxB := c.minR, c.minG, c.minB
	for _, occ := range c.own {
		r, g, b := int(occ.r), int(occ.g), int(occ.b)
		if r < newMinR {
			newMinR = r
		}
		if g < newMinG {
			newMinG = g
		}
		if b < newMinB {
			newMinB = b
		}
		if r > newMaxR {
			newMaxR = r
		}
		if g > newMaxG {
			newMaxG = g
		}
		if b > newMaxB {
			newMaxB = b
		}
	}
	c.minR, c.minG, c.minB = newMinR, newMinG, newMinB
	c.maxR, c.maxG, c.maxB = newMaxR, newMaxG, newMaxB
}

func (c *ListCuboid) Volume() int      { return c.bounds.volume() }
func (c *ListCuboid) LongestSide() int { return c.bounds.longestSide() }

// Median mirrors the sparse-list variant's observed fallback of the
// literal value 128 when no coordinate reaches half the distinct-point
// count — distinct from the array variant's (end-start)/2 fallback
// (DESIGN.md, Open Question 2).
func (c *ListCuboid) Median(axis int) int {
	var populated [256]bool
	total := 0
	for _, occ := range c.own {
		v := occ.axis(axis)
		if !populated[v] {
			populated[v] = true
			total++
		}
	}
	half := total / 2
	count := 0
	for i := 0; i < 256; i++ {
		if populated[i] {
			count++
			if count == half {
				return i
			}
		}
	}
	return 128
}

func (c *ListCuboid) Split(axis, point int) Cuboid {
	var kept []colorOccurrence
	var moved []colorOccurrence
	for _, occ := range c.own {
		if occ.axis(axis) > point {
			moved = append(moved, occ)
		} else {
			kept = append(kept, occ)
		}
	}
	c.own = kept

	other := newEmptyListCuboid(c.all)
	other.own = moved
	switch axis {
	case 0:
		other.bounds = bounds{point + 1, c.minG, c.minB, c.maxR, c.maxG, c.maxB}
		c.maxR = point
	case 1:
		other.bounds = bounds{c.minR, point + 1, c.minB, c.maxR, c.maxG, c.maxB}
		c.maxG = point
	default:
		other.bounds = bounds{c.minR, c.minG, point + 1, c.maxR, c.maxG, c.maxB}
		c.maxB = point
	}
	return other
}

func (c *ListCuboid) AverageColor(palette []uint8, index int) {
	var sumR, sumG, sumB float32
	colorCount := 0
	for _, occ := range c.own {
		n := float32(occ.count)
		colorCount += occ.count
		sumR += float32(occ.r) * n
		sumG += float32(occ.g) * n
		sumB += float32(occ.b) * n
	}
	i := index * 3
	if colorCount == 0 {
		palette[i], palette[i+1], palette[i+2] = 0, 0, 0
		return
	}
	palette[i] = uint8(sumR / float32(colorCount))
	palette[i+1] = uint8(sumG / float32(colorCount))
	palette[i+2] = uint8(sumB / float32(colorCount))
}

func (c *ListCuboid) NewInstance() Cuboid { return newListCuboidFromAll(c.all) }
