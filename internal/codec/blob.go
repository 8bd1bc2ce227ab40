package codec

import (
	"errors"
	"io"

	"github.com/tuannm99/cellstore/internal/alias/bx"
	"github.com/tuannm99/cellstore/internal/dberr"
)

// MaxBlobSize bounds environment blobs so a corrupted length prefix cannot
// trigger a huge allocation.
const MaxBlobSize = 16 << 20 // 16 MiB

// WriteBlob writes [length i32][payload]. Used uniformly for schema and
// environment persistence so a partial file shows up as a short read instead
// of a parse crash.
func WriteBlob(w io.Writer, payload []byte) error {
	if len(payload) > MaxBlobSize {
		return dberr.Data("blob too large: %d bytes", len(payload))
	}
	var hdr [4]byte
	bx.PutI32(hdr[:], int32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return dberr.WrapFile("blob header write", err)
	}
	if _, err := w.Write(payload); err != nil {
		return dberr.WrapFile("blob payload write", err)
	}
	return nil
}

// ReadBlob reads one length-prefixed payload.
func ReadBlob(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, dberr.Data("blob: short header read")
		}
		return nil, dberr.WrapFile("blob header read", err)
	}
	n := int(bx.I32(hdr[:]))
	if n < 0 || n > MaxBlobSize {
		return nil, dberr.Data("blob: bad length %d", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, dberr.Data("blob: short payload read (%d expected)", n)
		}
		return nil, dberr.WrapFile("blob payload read", err)
	}
	return payload, nil
}
