// Command apstat dumps per-frame record statistics from an AP video
// file as zstd-compressed newline-delimited JSON, without decoding any
// pixel data.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/inkframe/apvideo/container"
)

const usage = `apstat - dump AP video frame-record statistics.

Usage:
apstat animation.ap [output.ndjson.zst]
	Reads every frame record's header fields (without decoding pixels)
	and writes one zstd-compressed JSON object per frame. Writes to
	stdout when no output path is given.
`

// frameStat mirrors one frame record's header-level fields, the only
// information apstat reports; it never touches the RLE/palette payload.
type frameStat struct {
	Index       int    `json:"index"`
	IsKeyframe  bool   `json:"keyframe"`
	Ordinal     uint32 `json:"ordinal,omitempty"`
	PrevDelta   int32  `json:"prevDeltaBytes,omitempty"`
	NextDelta   int32  `json:"nextDeltaBytes,omitempty"`
	PayloadSize int    `json:"payloadBytes"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		fmt.Print(usage)
		return nil
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("apstat: open %s: %w", args[0], err)
	}
	defer f.Close()

	hdr, err := container.ReadHeader(f)
	if err != nil {
		return fmt.Errorf("apstat: %w", err)
	}

	out := io.Writer(os.Stdout)
	if len(args) == 2 {
		outFile, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("apstat: create %s: %w", args[1], err)
		}
		defer outFile.Close()
		out = outFile
	}

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("apstat: zstd writer: %w", err)
	}
	defer zw.Close()
	bw := bufio.NewWriter(zw)
	defer bw.Flush()

	enc := json.NewEncoder(bw)
	cr := container.NewReader(f)
	for i := 0; i < int(hdr.FrameCount); i++ {
		rec, err := cr.ReadFrame()
		if err != nil {
			return fmt.Errorf("apstat: reading frame %d: %w", i, err)
		}
		stat := frameStat{
			Index:       i,
			IsKeyframe:  rec.IsKeyframe,
			PayloadSize: len(rec.Payload),
		}
		if rec.IsKeyframe {
			stat.Ordinal = rec.Ordinal
			stat.PrevDelta = rec.PrevDelta
			stat.NextDelta = rec.NextDelta
		}
		if err := enc.Encode(stat); err != nil {
			return fmt.Errorf("apstat: encoding frame %d: %w", i, err)
		}
	}
	return nil
}
