package mediancut

// ListQuantizer produces a sparse-list median-cut palette, the variant
// used for per-macroblock sub-palettes where the input is small. It
// supports an accumulate-across-several-calls mode: clear, call
// CountAndAddOccurrences once per contributing block, then
// PaletteOfSeveral — this is how the encoder builds a sub-palette from
// only the changed blocks of one macroblock (see SPEC_FULL.md §8).
type ListQuantizer struct {
	occurrences []colorOccurrence
}

func NewListQuantizer() *ListQuantizer {
	return &ListQuantizer{}
}

// ClearCounted resets accumulated occurrences before a new accumulate
// sequence.
func (q *ListQuantizer) ClearCounted() {
	q.occurrences = q.occurrences[:0]
}

// CountAndAddOccurrences folds pixels (RGB-interleaved) into the
// accumulated occurrence list without clearing it first.
func (q *ListQuantizer) CountAndAddOccurrences(pixels []uint8) {
	for i := 0; i+2 < len(pixels); i += 3 {
		r, g, b := pixels[i], pixels[i+1], pixels[i+2]
		found := false
		for j := range q.occurrences {
			o := &q.occurrences[j]
			if o.r == r && o.g == g && o.b == b {
				o.count++
				found = true
				break
			}
		}
		if !found {
			q.occurrences = append(q.occurrences, colorOccurrence{r: r, g: g, b: b, count: 1})
		}
	}
}

// PaletteOfSeveral runs median cut over everything accumulated so far
// via CountAndAddOccurrences, writing exactly maxColors RGB triples.
func (q *ListQuantizer) PaletteOfSeveral(palette []uint8, maxColors int) {
	all := q.occurrences
	seed := newListCuboidFromAll(&all)
	doMedianCut(seed, palette, maxColors)
}

// CreatePalette is the single-shot form: count pixels fresh, then run
// median cut, without touching the accumulate-mode state.
func (q *ListQuantizer) CreatePalette(pixels []uint8, palette []uint8, maxColors int) {
	var occ []colorOccurrence
	for i := 0; i+2 < len(pixels); i += 3 {
		r, g, b := pixels[i], pixels[i+1], pixels[i+2]
		found := false
		for j := range occ {
			o := &occ[j]
			if o.r == r && o.g == g && o.b == b {
				o.count++
				found = true
				break
			}
		}
		if !found {
			occ = append(occ, colorOccurrence{r: r, g: g, b: b, count: 1})
		}
	}
	seed := newListCuboidFromAll(&occ)
	doMedianCut(seed, palette, maxColors)
}
