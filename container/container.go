// Package container implements the AP on-disk format: a 21-byte file
// header followed by a contiguous sequence of frame records, with a
// keyframe index threaded through the records themselves and patched
// once at Close.
package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/inkframe/apvideo/byteio"
)

const (
	Magic0, Magic1, Magic2, Magic3 = 0x41, 0x4E, 0x49, 0x50 // "ANIP"
	Version                        = 1
	HeaderSize                     = 21

	frameTypeDelta    = 0
	frameTypeKeyframe = 1

	// recordHeaderDelta is the byte count of a delta record's fixed part
	// (frameType + payloadLength), before the payload.
	recordHeaderDelta = 5
	// recordHeaderKeyframe is the byte count of a keyframe record's fixed
	// part (frameType + payloadLength + ordinal + prevDelta + nextDelta),
	// before the payload.
	recordHeaderKeyframe = 17
)

var (
	ErrBadMagic              = errors.New("container: bad magic")
	ErrUnsupportedVersion    = errors.New("container: unsupported version")
	ErrTruncated             = errors.New("container: truncated")
	ErrPayloadLengthMismatch = errors.New("container: payload length mismatch")
)

// Header is the fixed 21-byte file header.
type Header struct {
	Version       uint8
	FrameCount    uint32
	FPS           float32
	KeyframeCount uint32
	Width         uint16
	Height        uint16
}

// WriteHeader serializes h into a freshly allocated 21-byte buffer.
func WriteHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	b[0], b[1], b[2], b[3] = Magic0, Magic1, Magic2, Magic3
	b[4] = h.Version
	byteio.PutUint32(b[5:9], h.FrameCount)
	byteio.PutFloat32(b[9:13], h.FPS)
	byteio.PutUint32(b[13:17], h.KeyframeCount)
	byteio.PutUint16(b[17:19], h.Width)
	byteio.PutUint16(b[19:21], h.Height)
	return b
}

// ReadHeader parses and validates the 21-byte header from r.
func ReadHeader(r io.Reader) (Header, error) {
	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return Header{}, ErrTruncated
		}
		return Header{}, fmt.Errorf("container: read header: %w", err)
	}
	if b[0] != Magic0 || b[1] != Magic1 || b[2] != Magic2 || b[3] != Magic3 {
		return Header{}, ErrBadMagic
	}
	if b[4] != Version {
		return Header{}, ErrUnsupportedVersion
	}
	return Header{
		Version:       b[4],
		FrameCount:    byteio.Uint32(b[5:9]),
		FPS:           byteio.Float32(b[9:13]),
		KeyframeCount: byteio.Uint32(b[13:17]),
		Width:         byteio.Uint16(b[17:19]),
		Height:        byteio.Uint16(b[19:21]),
	}, nil
}

// Writer appends frame records to f and back-patches the header and the
// keyframe index chain on Close.
type Writer struct {
	f               *os.File
	pos             int64
	frameCount      uint32
	keyframeOffsets []int64
}

// NewWriter writes the 21-byte placeholder header (frame/keyframe counts
// filled with zero, patched at Close) and returns a Writer positioned
// right after it.
func NewWriter(f *os.File, fps float32, width, height uint16) (*Writer, error) {
	hdr := WriteHeader(Header{Version: Version, FPS: fps, Width: width, Height: height})
	if _, err := f.Write(hdr); err != nil {
		return nil, fmt.Errorf("container: write header: %w", err)
	}
	return &Writer{f: f, pos: int64(len(hdr))}, nil
}

// WriteFrame appends one frame record. A keyframe record also stores its
// ordinal (the number of keyframes written before it); delta records
// carry no ordinal.
func (w *Writer) WriteFrame(isKeyframe bool, payload []byte) error {
	recordOffset := w.pos
	var fixed []byte
	if isKeyframe {
		fixed = make([]byte, recordHeaderKeyframe)
		fixed[0] = frameTypeKeyframe
		byteio.PutUint32(fixed[1:5], uint32(len(payload)))
		byteio.PutUint32(fixed[5:9], uint32(len(w.keyframeOffsets)))
		// prevDelta/nextDelta at [9:13]/[13:17] are patched at Close.
	} else {
		fixed = make([]byte, recordHeaderDelta)
		fixed[0] = frameTypeDelta
		byteio.PutUint32(fixed[1:5], uint32(len(payload)))
	}
	if _, err := w.f.Write(fixed); err != nil {
		return fmt.Errorf("container: write frame header: %w", err)
	}
	if _, err := w.f.Write(payload); err != nil {
		return fmt.Errorf("container: write frame payload: %w", err)
	}
	w.pos += int64(len(fixed)) + int64(len(payload))
	if isKeyframe {
		w.keyframeOffsets = append(w.keyframeOffsets, recordOffset)
	}
	w.frameCount++
	return nil
}

// Close back-patches the frame count, keyframe count, and the keyframe
// index chain's previous/next byte deltas, then closes the underlying
// file.
func (w *Writer) Close() error {
	if err := w.patchUint32(5, w.frameCount); err != nil {
		return err
	}
	if err := w.patchUint32(13, uint32(len(w.keyframeOffsets))); err != nil {
		return err
	}
	for i, offset := range w.keyframeOffsets {
		var prevDelta, nextDelta int32
		if i > 0 {
			prevDelta = int32(w.keyframeOffsets[i-1] - offset)
		}
		if i < len(w.keyframeOffsets)-1 {
			nextDelta = int32(w.keyframeOffsets[i+1] - offset)
		}
		buf := make([]byte, 8)
		byteio.PutInt32(buf[0:4], prevDelta)
		byteio.PutInt32(buf[4:8], nextDelta)
		if _, err := w.f.WriteAt(buf, offset+9); err != nil {
			return fmt.Errorf("container: patch keyframe index: %w", err)
		}
	}
	return w.f.Close()
}

func (w *Writer) patchUint32(offset int64, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	if _, err := w.f.WriteAt(buf[:], offset); err != nil {
		return fmt.Errorf("container: patch header: %w", err)
	}
	return nil
}

// FrameRecord is one decoded frame record: its type, raw payload, and
// (for keyframes) the index-chain fields, which a sequential decode
// does not need but must still consume.
type FrameRecord struct {
	IsKeyframe bool
	Ordinal    uint32
	PrevDelta  int32
	NextDelta  int32
	Payload    []byte
}

// Reader reads frame records sequentially from an already-header-parsed
// stream.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadFrame reads the next frame record, or returns io.EOF if the
// stream is exhausted exactly at a record boundary.
func (cr *Reader) ReadFrame() (FrameRecord, error) {
	var head [5]byte
	if _, err := io.ReadFull(cr.r, head[:]); err != nil {
		if err == io.EOF {
			return FrameRecord{}, io.EOF
		}
		return FrameRecord{}, ErrTruncated
	}
	rec := FrameRecord{IsKeyframe: head[0] == frameTypeKeyframe}
	payloadLength := byteio.Uint32(head[1:5])

	if rec.IsKeyframe {
		var kf [12]byte
		if _, err := io.ReadFull(cr.r, kf[:]); err != nil {
			return FrameRecord{}, ErrTruncated
		}
		rec.Ordinal = byteio.Uint32(kf[0:4])
		rec.PrevDelta = byteio.Int32(kf[4:8])
		rec.NextDelta = byteio.Int32(kf[8:12])
	}

	rec.Payload = make([]byte, payloadLength)
	if _, err := io.ReadFull(cr.r, rec.Payload); err != nil {
		return FrameRecord{}, ErrTruncated
	}
	return rec, nil
}
