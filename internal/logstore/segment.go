package logstore

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tuannm99/cellstore/internal/codec"
	"github.com/tuannm99/cellstore/internal/dberr"
)

const (
	segPrefix  = "seg_"
	segDataExt = ".log"
	segIdxExt  = ".idx"
	keysFile   = "keys.sdx"
)

func segDataName(n int32) string { return fmt.Sprintf("%s%d%s", segPrefix, n, segDataExt) }
func segIdxName(n int32) string  { return fmt.Sprintf("%s%d%s", segPrefix, n, segIdxExt) }

// listSegments returns the segment numbers present in a partition directory,
// ascending. A missing directory is an empty partition.
func listSegments(dir string) ([]int32, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberr.WrapFile("partition readdir", err)
	}

	var segs []int32
	for _, e := range ents {
		name := e.Name()
		if !strings.HasPrefix(name, segPrefix) || !strings.HasSuffix(name, segDataExt) {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(name, segPrefix), segDataExt)
		n, err := strconv.ParseInt(num, 10, 32)
		if err != nil {
			continue
		}
		segs = append(segs, int32(n))
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i] < segs[j] })
	return segs, nil
}

// readSegment decodes every record of one segment file in write order.
// A torn tail record is treated as end-of-data.
func readSegment(path string) ([]codec.LogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberr.WrapFile("segment open", err)
	}
	defer func() { _ = f.Close() }()

	var recs []codec.LogRecord
	for {
		rec, err := codec.ReadLogRecord(f)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return recs, nil
		}
		recs = append(recs, *rec)
	}
}

// readSegmentRange decodes records inside [start, end) of a segment file.
// end <= 0 means read to the file's end.
func readSegmentRange(path string, start, end int64) ([]codec.LogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dberr.WrapFile("segment open", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(start, 0); err != nil {
		return nil, dberr.WrapFile("segment seek", err)
	}

	var recs []codec.LogRecord
	pos := start
	for {
		if end > 0 && pos >= end {
			return recs, nil
		}
		rec, err := codec.ReadLogRecord(f)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return recs, nil
		}
		recs = append(recs, *rec)
		pos += rec.EncodedSize()
	}
}

// loadSparse reads the sparse entries of one segment's .idx file into memory.
func loadSparse(path string) (*codec.SparseHeader, []codec.SparseEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, dberr.WrapFile("sparse open", err)
	}
	defer func() { _ = f.Close() }()

	hdr, err := codec.ReadSparseHeader(f)
	if err != nil {
		return nil, nil, err
	}
	if hdr == nil {
		return nil, nil, nil
	}

	var entries []codec.SparseEntry
	for {
		e, err := codec.ReadSparseEntry(f)
		if err != nil {
			return nil, nil, err
		}
		if e == nil {
			return hdr, entries, nil
		}
		entries = append(entries, *e)
	}
}
