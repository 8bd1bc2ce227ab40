package codec

import (
	"errors"
	"io"

	"github.com/tuannm99/cellstore/internal/alias/bx"
	"github.com/tuannm99/cellstore/internal/dberr"
)

// LogRecord is one entry of a partition segment. Records are append-only;
// the logical latest value for an id is decided by scan order, and a record
// with Deleted set is a tombstone whose tuple carries no meaning.
type LogRecord struct {
	ID        int64
	Deleted   bool
	Timestamp int64
	Tuple     []byte
}

// logRecordFixed is the byte count of the fields after the length prefix,
// excluding the tuple: id(8) + deleted(1) + timestamp(8) + tupleLen(4).
const logRecordFixed = 8 + 1 + 8 + 4

// EncodedSize returns the full on-disk size including the length prefix.
func (r LogRecord) EncodedSize() int64 {
	return int64(4 + logRecordFixed + len(r.Tuple))
}

// EncodeLogRecord lays out
// [recLen i32][id i64][deleted u8][timestamp i64][tupleLen i32][tuple].
// recLen excludes itself.
func EncodeLogRecord(r LogRecord) []byte {
	out := make([]byte, 0, r.EncodedSize())
	out = bx.AppendI32(out, int32(logRecordFixed+len(r.Tuple)))
	out = bx.AppendI64(out, r.ID)
	if r.Deleted {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = bx.AppendI64(out, r.Timestamp)
	out = bx.AppendI32(out, int32(len(r.Tuple)))
	out = append(out, r.Tuple...)
	return out
}

// ReadLogRecord decodes the next record from r. An empty or cleanly
// truncated stream returns (nil, nil); callers treat that as end-of-data,
// matching the tolerate-torn-tail behavior of the segment writer.
func ReadLogRecord(r io.Reader) (*LogRecord, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil
		}
		return nil, dberr.WrapFile("log record header", err)
	}

	recLen := int(bx.I32(hdr[:]))
	if recLen < logRecordFixed {
		return nil, dberr.Data("logcodec: record length %d below minimum %d", recLen, logRecordFixed)
	}

	body := make([]byte, recLen)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil
		}
		return nil, dberr.WrapFile("log record body", err)
	}

	rec := &LogRecord{
		ID:        bx.I64(body[0:]),
		Deleted:   body[8] != 0,
		Timestamp: bx.I64(body[9:]),
	}
	tupleLen := int(bx.I32(body[17:]))
	if tupleLen != recLen-logRecordFixed {
		return nil, dberr.Data("logcodec: tuple length %d disagrees with record length %d", tupleLen, recLen)
	}
	rec.Tuple = body[logRecordFixed:]
	return rec, nil
}
