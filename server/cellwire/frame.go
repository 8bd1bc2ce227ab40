package cellwire

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tuannm99/cellstore/internal/alias/bx"
)

// DefaultMaxFrame bounds frame payloads when the transport does not configure
// its own ceiling.
const DefaultMaxFrame = 8 << 20 // 8 MiB

// Framer reads and writes length-prefixed JSON frames: a big-endian u32
// payload size followed by the JSON bytes. The zero value uses
// DefaultMaxFrame.
type Framer struct {
	// MaxFrame rejects payloads larger than this many bytes, in both
	// directions.
	MaxFrame uint32
}

func (f Framer) limit() uint32 {
	if f.MaxFrame == 0 {
		return DefaultMaxFrame
	}
	return f.MaxFrame
}

// Read decodes one frame into v.
func (f Framer) Read(r io.Reader, v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := bx.U32BE(hdr[:])
	if n == 0 || n > f.limit() {
		return fmt.Errorf("cellwire: frame size %d outside (0, %d]", n, f.limit())
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("cellwire: bad json: %w", err)
	}
	return nil
}

// Write encodes v as one frame. Header and payload go out in a single write
// so a concurrent writer on the same connection cannot interleave them.
func (f Framer) Write(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cellwire: marshal: %w", err)
	}
	if len(payload) == 0 || uint32(len(payload)) > f.limit() {
		return fmt.Errorf("cellwire: frame size %d outside (0, %d]", len(payload), f.limit())
	}

	buf := bx.AppendU32BE(make([]byte, 0, 4+len(payload)), uint32(len(payload)))
	buf = append(buf, payload...)
	_, err = w.Write(buf)
	return err
}

// ReadFrame and WriteFrame run with the default ceiling. The server
// substitutes its configured Framer; clients generally want the default.
func ReadFrame(r io.Reader, v any) error  { return Framer{}.Read(r, v) }
func WriteFrame(w io.Writer, v any) error { return Framer{}.Write(w, v) }
