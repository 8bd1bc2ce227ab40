package codec

import (
	"errors"
	"io"

	"github.com/tuannm99/cellstore/internal/alias/bx"
	"github.com/tuannm99/cellstore/internal/dberr"
)

// SparseVersion is the current format version of sparse index files.
const SparseVersion = 1

// SparseEntrySize is the fixed on-disk size of one sparse entry:
// version(4) + key(8) + offset(8).
const SparseEntrySize = 20

// SparseHeader opens a sparse index file and names the partition segment the
// entries belong to.
type SparseHeader struct {
	Version      int32
	Module       string
	Table        string
	InstanceHash string
	Segment      int32
}

// SparseEntry checkpoints a log id to a byte offset inside the segment.
type SparseEntry struct {
	Version int32
	Key     int64
	Offset  int64
}

// EncodeSparseHeader lays the header out as version, three length-prefixed
// strings and the segment number.
func EncodeSparseHeader(h SparseHeader) []byte {
	out := bx.AppendI32(nil, h.Version)
	for _, s := range []string{h.Module, h.Table, h.InstanceHash} {
		out = bx.AppendI32(out, int32(len(s)))
		out = append(out, s...)
	}
	return bx.AppendI32(out, h.Segment)
}

// ReadSparseHeader decodes the header. An empty stream returns (nil, nil);
// a short read mid-header is a DataError.
func ReadSparseHeader(r io.Reader) (*SparseHeader, error) {
	var verB [4]byte
	if _, err := io.ReadFull(r, verB[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, dberr.WrapFile("sparse header", err)
	}

	h := &SparseHeader{Version: bx.I32(verB[:])}
	for _, dst := range []*string{&h.Module, &h.Table, &h.InstanceHash} {
		var lenB [4]byte
		if _, err := io.ReadFull(r, lenB[:]); err != nil {
			return nil, dberr.Data("sparse header truncated: %v", err)
		}
		l := int(bx.I32(lenB[:]))
		if l < 0 || l > 1<<16 {
			return nil, dberr.Data("sparse header: bad string length %d", l)
		}
		buf := make([]byte, l)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, dberr.Data("sparse header truncated: %v", err)
		}
		*dst = string(buf)
	}

	var segB [4]byte
	if _, err := io.ReadFull(r, segB[:]); err != nil {
		return nil, dberr.Data("sparse header truncated: %v", err)
	}
	h.Segment = bx.I32(segB[:])
	return h, nil
}

// EncodeSparseEntry lays out the fixed 20 bytes.
func EncodeSparseEntry(e SparseEntry) []byte {
	out := make([]byte, 0, SparseEntrySize)
	out = bx.AppendI32(out, e.Version)
	out = bx.AppendI64(out, e.Key)
	out = bx.AppendI64(out, e.Offset)
	return out
}

// ReadSparseEntry decodes the next entry. End-of-stream (including a torn
// partial entry) returns (nil, nil): "no more entries" is told apart from
// corruption only by length, not by error.
func ReadSparseEntry(r io.Reader) (*SparseEntry, error) {
	var buf [SparseEntrySize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil
		}
		return nil, dberr.WrapFile("sparse entry", err)
	}
	return &SparseEntry{
		Version: bx.I32(buf[0:]),
		Key:     bx.I64(buf[4:]),
		Offset:  bx.I64(buf[12:]),
	}, nil
}
