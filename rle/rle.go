// Package rle implements the nibble-stream run-length codec used to
// pack one 256-pixel, 4-bit-indexed macroblock into its compact wire
// form: a one-byte length prefix followed by packed nibble pairs, each
// pair either a literal run or a repeated-colour run.
package rle

import "errors"

const (
	BlockArea = 256
	minRun    = 4
	maxRun    = 128
)

var ErrOverrun = errors.New("rle: decoded sequence overran the block")

// Encoder holds the scratch buffers reused across Encode calls, so a
// macroblock-by-macroblock encode loop never allocates.
type Encoder struct {
	nibbles    []byte
	runStarts  []int
	runLengths []int
}

func NewEncoder() *Encoder {
	maxRuns := BlockArea / minRun
	return &Encoder{
		nibbles:    make([]byte, BlockArea*2),
		runStarts:  make([]int, maxRuns),
		runLengths: make([]int, maxRuns),
	}
}

// Encode packs the BlockArea 4-bit pixel indices in pixels (one index
// per byte, values 0..15) into dst starting at pos: a length byte
// followed by that many packed bytes. It returns the total number of
// bytes written (including the length byte).
func (e *Encoder) Encode(pixels []uint8, dst []byte, pos int) int {
	numberOfRuns := 0
	runStart := 0
	runLength := 0
	previousColor := pixels[0]
	runEnds := false
	breakByMaxLen := false

	for pixel := 0; pixel < BlockArea; pixel++ {
		color := pixels[pixel]
		if color == previousColor {
			runLength++
		} else {
			runEnds = true
		}
		if runLength == maxRun {
			runEnds = true
			breakByMaxLen = true
		}
		if runEnds {
			if runLength >= minRun {
				e.runStarts[numberOfRuns] = runStart
				e.runLengths[numberOfRuns] = runLength
				numberOfRuns++
			}
			if breakByMaxLen {
				runStart = pixel + 1
				runLength = 0
				breakByMaxLen = false
			} else {
				runStart = pixel
				runLength = 1
			}
			runEnds = false
		}
		previousColor = color
	}
	// Mirrors the reference encoder's run/literal split exactly,
	// including subtracting 1 from whatever run is still open when the
	// scan ends: the dropped pixel is re-emitted as a literal pixel in
	// the "uncompressed data after the last run" pass below, so the
	// round trip still produces all 256 pixels (see DESIGN.md, Open
	// Question 3).
	if runLength >= minRun {
		e.runStarts[numberOfRuns] = runStart
		e.runLengths[numberOfRuns] = runLength - 1
		numberOfRuns++
	}

	nibble := 0
	pixel := 0
	for run := 0; run < numberOfRuns; run++ {
		if pixel < e.runStarts[run] {
			nibble = e.emitLiteral(pixels, e.runStarts[run], pixel, nibble)
			pixel = e.runStarts[run]
		}
		seqLen := e.runLengths[run]
		pixel += seqLen
		seqLen--
		e.nibbles[nibble] = byte(8 + ((seqLen & 0x70) >> 4))
		nibble++
		e.nibbles[nibble] = byte(seqLen & 0x0F)
		nibble++
		e.nibbles[nibble] = pixels[e.runStarts[run]]
		nibble++
	}
	if pixel < BlockArea {
		nibble = e.emitLiteral(pixels, BlockArea, pixel, nibble)
	}

	if nibble&1 == 1 {
		// spec-mandated zero pad nibble; the reference implementation
		// leaves this nibble as stale scratch-buffer content instead.
		e.nibbles[nibble] = 0
		nibble++
	}
	byteCount := nibble >> 1
	dst[pos] = byte(byteCount)
	p := pos + 1
	n := 0
	for i := p; i < p+byteCount; i++ {
		dst[i] = e.nibbles[n] << 4
		n++
		dst[i] += e.nibbles[n]
		n++
	}
	return byteCount + 1
}

// emitLiteral writes the literal-mode run(s) covering pixels[start:end),
// splitting into chunks of at most maxRun pixels, and returns the
// updated nibble cursor.
func (e *Encoder) emitLiteral(pixels []uint8, end, start, nibble int) int {
	i := start
	seqLen := end - i
	if seqLen > maxRun {
		split := i + maxRun
		e.nibbles[nibble] = 0x7
		nibble++
		e.nibbles[nibble] = 0xF
		nibble++
		for i < split {
			e.nibbles[nibble] = pixels[i]
			nibble++
			i++
		}
		seqLen -= maxRun
	}
	seqLen--
	e.nibbles[nibble] = byte((seqLen & 0x70) >> 4)
	nibble++
	e.nibbles[nibble] = byte(seqLen & 0x0F)
	nibble++
	for i < end {
		e.nibbles[nibble] = pixels[i]
		nibble++
		i++
	}
	return nibble
}

// Decoder holds the scratch nibble buffer reused across Decode calls.
type Decoder struct {
	nibbles []byte
}

func NewDecoder() *Decoder {
	return &Decoder{nibbles: make([]byte, BlockArea*2)}
}

// Decode expands a length-prefixed nibble stream at src[pos:] into
// exactly BlockArea 4-bit pixel indices written to dst, returning the
// number of bytes consumed from src (including the length byte).
func (d *Decoder) Decode(src []byte, pos int, dst []uint8) (int, error) {
	if pos >= len(src) {
		return 0, ErrOverrun
	}
	length := int(src[pos])
	if pos+1+length > len(src) {
		return 0, ErrOverrun
	}

	nibbles := d.nibbles[:length*2]
	n := 0
	for i := 0; i < length; i++ {
		b := src[pos+1+i]
		nibbles[n] = b >> 4
		n++
		nibbles[n] = b & 0x0F
		n++
	}

	nibble := 0
	pixel := 0
	for pixel < BlockArea {
		if nibble+1 >= len(nibbles) {
			return 0, ErrOverrun
		}
		color := (nibbles[nibble] << 4) & 0xF0
		nibble++
		color += nibbles[nibble]
		nibble++
		seqLen := int(color&0x7F) + 1

		if color&0x80 == 0 {
			if pixel+seqLen > BlockArea || nibble+seqLen > len(nibbles) {
				return 0, ErrOverrun
			}
			for i := 0; i < seqLen; i++ {
				dst[pixel] = nibbles[nibble]
				pixel++
				nibble++
			}
		} else {
			if pixel+seqLen > BlockArea || nibble >= len(nibbles) {
				return 0, ErrOverrun
			}
			c := nibbles[nibble]
			nibble++
			for i := 0; i < seqLen; i++ {
				dst[pixel] = c
				pixel++
			}
		}
	}
	return 1 + length, nil
}
