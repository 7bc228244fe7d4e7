package object

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// PackIndex is an in-memory representation of an idx v1 or v2 file.
type PackIndex struct {
	Version       int
	fanout        [256]uint32
	entries       []PackIndexEntry
	PackChecksum  Hash
	IndexChecksum Hash
}

// Len returns the number of objects named by the index.
func (idx *PackIndex) Len() int { return len(idx.entries) }

// Entries returns a copy of all index entries in hash order.
func (idx *PackIndex) Entries() []PackIndexEntry {
	out := make([]PackIndexEntry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Find performs fanout-bounded binary search for a hash in the index.
func (idx *PackIndex) Find(h Hash) (PackIndexEntry, bool) {
	if len(h) == 0 {
		return PackIndexEntry{}, false
	}

	bucket := int(h[0])
	start := uint32(0)
	if bucket > 0 {
		start = idx.fanout[bucket-1]
	}
	end := idx.fanout[bucket]
	if end <= start {
		return PackIndexEntry{}, false
	}

	bucketEntries := idx.entries[start:end]
	i := sort.Search(len(bucketEntries), func(i int) bool {
		return bytes.Compare(bucketEntries[i].Hash, h) >= 0
	})
	if i < len(bucketEntries) && bucketEntries[i].Hash.Equal(h) {
		return bucketEntries[i], true
	}
	return PackIndexEntry{}, false
}

// ReadPackIndex parses and validates an idx file whose names and checksums
// use algo. Framing and checksum failures wrap ErrStoreUnreadable; entries
// whose name or offset cannot be recovered wrap ErrCorruptObject.
//
// Returned entry hashes alias data.
func ReadPackIndex(data []byte, algo HashAlgo) (*PackIndex, error) {
	hs := algo.Size()
	if len(data) < packIndexFanoutSize+2*hs {
		return nil, unreadable("pack index too short: %d bytes", len(data))
	}

	sum := algo.Sum(data[:len(data)-hs])
	if !bytes.Equal(data[len(data)-hs:], sum) {
		return nil, unreadable("pack index checksum mismatch")
	}

	if bytes.Equal(data[:4], packIndexMagic[:]) {
		return readPackIndexV2(data, algo)
	}
	return readPackIndexV1(data, algo)
}

func readFanout(data []byte) ([256]uint32, error) {
	var fanout [256]uint32
	for i := 0; i < 256; i++ {
		fanout[i] = binary.BigEndian.Uint32(data[i*4:])
		if i > 0 && fanout[i] < fanout[i-1] {
			return fanout, corruptEntry(-1, "fanout decreases at bucket %02x", i)
		}
	}
	return fanout, nil
}

func readPackIndexV2(data []byte, algo HashAlgo) (*PackIndex, error) {
	hs := algo.Size()
	if len(data) < packIndexHeaderSize+packIndexFanoutSize+2*hs {
		return nil, unreadable("pack index too short: %d bytes", len(data))
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != packIndexVersion {
		return nil, unreadable("unsupported pack index version %d", version)
	}

	cursor := packIndexHeaderSize
	fanout, err := readFanout(data[cursor:])
	if err != nil {
		return nil, err
	}
	cursor += packIndexFanoutSize
	n := int(fanout[255])

	namesLen := n * hs
	crcLen := n * 4
	offsetLen := n * 4
	if cursor+namesLen+crcLen+offsetLen+2*hs > len(data) {
		return nil, unreadable("pack index truncated: %d entries declared", n)
	}

	namesStart := cursor
	crcStart := namesStart + namesLen
	offsetStart := crcStart + crcLen
	cursor = offsetStart + offsetLen

	// The large-offset table sits between the 32-bit offsets and the
	// trailer, so its length is bounded by the bytes left over.
	largeAvail := (len(data) - 2*hs - cursor) / 8
	offset32 := make([]uint32, n)
	largeNeeded := 0
	for i := 0; i < n; i++ {
		v := binary.BigEndian.Uint32(data[offsetStart+(i*4):])
		offset32[i] = v
		if v&packIndexLargeOffsetBit == 0 {
			continue
		}
		ref := int(v & ^packIndexLargeOffsetBit)
		if ref >= largeAvail {
			return nil, &CorruptObjectError{
				Position: i,
				Offset:   -1,
				Reason:   fmt.Sprintf("large offset ref %d out of range", ref),
			}
		}
		largeNeeded = max(largeNeeded, ref+1)
	}

	largeOffsets := make([]uint64, largeNeeded)
	for i := range largeOffsets {
		largeOffsets[i] = binary.BigEndian.Uint64(data[cursor:])
		cursor += 8
	}

	if cursor+2*hs != len(data) {
		return nil, unreadable("pack index trailing data: %d bytes", len(data)-(cursor+2*hs))
	}

	entries := make([]PackIndexEntry, n)
	for i := 0; i < n; i++ {
		offset := uint64(offset32[i])
		if offset32[i]&packIndexLargeOffsetBit != 0 {
			offset = largeOffsets[offset32[i] & ^packIndexLargeOffsetBit]
		}
		entries[i] = PackIndexEntry{
			Hash:   Hash(data[namesStart+(i*hs) : namesStart+((i+1)*hs)]),
			CRC32:  binary.BigEndian.Uint32(data[crcStart+(i*4):]),
			Offset: offset,
		}
	}
	if err := checkEntryOrder(entries, fanout); err != nil {
		return nil, err
	}

	return &PackIndex{
		Version:       packIndexVersion,
		fanout:        fanout,
		entries:       entries,
		PackChecksum:  Hash(data[cursor : cursor+hs]),
		IndexChecksum: Hash(data[cursor+hs : cursor+2*hs]),
	}, nil
}

func readPackIndexV1(data []byte, algo HashAlgo) (*PackIndex, error) {
	hs := algo.Size()
	fanout, err := readFanout(data)
	if err != nil {
		return nil, err
	}
	n := int(fanout[255])
	recordSize := 4 + hs
	want := packIndexFanoutSize + n*recordSize + 2*hs
	if len(data) != want {
		return nil, unreadable("pack index v1 size %d does not match %d entries", len(data), n)
	}

	entries := make([]PackIndexEntry, n)
	cursor := packIndexFanoutSize
	for i := 0; i < n; i++ {
		entries[i] = PackIndexEntry{
			Offset: uint64(binary.BigEndian.Uint32(data[cursor:])),
			Hash:   Hash(data[cursor+4 : cursor+recordSize]),
		}
		cursor += recordSize
	}
	if err := checkEntryOrder(entries, fanout); err != nil {
		return nil, err
	}

	return &PackIndex{
		Version:       1,
		fanout:        fanout,
		entries:       entries,
		PackChecksum:  Hash(data[cursor : cursor+hs]),
		IndexChecksum: Hash(data[cursor+hs : cursor+2*hs]),
	}, nil
}

// checkEntryOrder rejects names that are unsorted, repeated, or filed under
// the wrong fanout bucket; any of these means the name table is damaged.
func checkEntryOrder(entries []PackIndexEntry, fanout [256]uint32) error {
	bucket := 0
	for i, entry := range entries {
		for uint32(i) >= fanout[bucket] {
			bucket++
		}
		if int(entry.Hash[0]) != bucket {
			return &CorruptObjectError{
				Position: i,
				Offset:   int64(entry.Offset),
				Reason:   fmt.Sprintf("name %s outside fanout bucket %02x", entry.Hash, bucket),
			}
		}
		if i > 0 && bytes.Compare(entries[i-1].Hash, entry.Hash) >= 0 {
			return &CorruptObjectError{
				Position: i,
				Offset:   int64(entry.Offset),
				Reason:   fmt.Sprintf("name %s out of order", entry.Hash),
			}
		}
	}
	return nil
}
