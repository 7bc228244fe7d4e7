package object

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

const (
	packIndexVersion        = 2
	packIndexHeaderSize     = 8
	packIndexFanoutSize     = 256 * 4
	packIndexLargeOffsetBit = uint32(1 << 31)
)

var packIndexMagic = [4]byte{0xff, 't', 'O', 'c'}

// PackIndexEntry is one row in a pack index file.
type PackIndexEntry struct {
	Hash   Hash
	Offset uint64
	CRC32  uint32
}

func normalizePackIndexEntries(algo HashAlgo, entries []PackIndexEntry) ([]PackIndexEntry, error) {
	out := make([]PackIndexEntry, len(entries))
	copy(out, entries)

	for i := range out {
		if err := algo.CheckLength(out[i].Hash); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Hash, out[j].Hash) < 0
	})
	for i := 1; i < len(out); i++ {
		if out[i-1].Hash.Equal(out[i].Hash) {
			return nil, fmt.Errorf("duplicate entry %s", out[i].Hash)
		}
	}
	return out, nil
}

// WritePackIndex writes a Git idx v2 file for the provided entries and pack
// checksum, using algo for names and trailer checksums. It returns the index
// checksum.
func WritePackIndex(w io.Writer, algo HashAlgo, entries []PackIndexEntry, packChecksum Hash) (Hash, error) {
	normalized, err := normalizePackIndexEntries(algo, entries)
	if err != nil {
		return nil, err
	}
	if err := algo.CheckLength(packChecksum); err != nil {
		return nil, fmt.Errorf("pack checksum: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(packIndexMagic[:])
	_ = binary.Write(&buf, binary.BigEndian, uint32(packIndexVersion))

	fanout := buildPackIndexFanout(normalized)
	for i := 0; i < 256; i++ {
		_ = binary.Write(&buf, binary.BigEndian, fanout[i])
	}

	for _, entry := range normalized {
		buf.Write(entry.Hash)
	}
	for _, entry := range normalized {
		_ = binary.Write(&buf, binary.BigEndian, entry.CRC32)
	}

	largeOffsets := make([]uint64, 0)
	for _, entry := range normalized {
		if entry.Offset < uint64(packIndexLargeOffsetBit) {
			_ = binary.Write(&buf, binary.BigEndian, uint32(entry.Offset))
			continue
		}

		pos := uint32(len(largeOffsets))
		_ = binary.Write(&buf, binary.BigEndian, packIndexLargeOffsetBit|pos)
		largeOffsets = append(largeOffsets, entry.Offset)
	}
	for _, offset := range largeOffsets {
		_ = binary.Write(&buf, binary.BigEndian, offset)
	}

	buf.Write(packChecksum)
	indexSum := algo.Sum(buf.Bytes())
	buf.Write(indexSum)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write pack index: %w", err)
	}
	return indexSum, nil
}

// WritePackIndexV1 writes the legacy version 1 index layout, which carries no
// magic, no CRCs and only 32-bit offsets.
func WritePackIndexV1(w io.Writer, algo HashAlgo, entries []PackIndexEntry, packChecksum Hash) (Hash, error) {
	normalized, err := normalizePackIndexEntries(algo, entries)
	if err != nil {
		return nil, err
	}
	if err := algo.CheckLength(packChecksum); err != nil {
		return nil, fmt.Errorf("pack checksum: %w", err)
	}

	var buf bytes.Buffer
	fanout := buildPackIndexFanout(normalized)
	for i := 0; i < 256; i++ {
		_ = binary.Write(&buf, binary.BigEndian, fanout[i])
	}
	for _, entry := range normalized {
		if entry.Offset >= uint64(packIndexLargeOffsetBit) {
			return nil, fmt.Errorf("entry %s: offset %d exceeds v1 index limit", entry.Hash, entry.Offset)
		}
		_ = binary.Write(&buf, binary.BigEndian, uint32(entry.Offset))
		buf.Write(entry.Hash)
	}

	buf.Write(packChecksum)
	indexSum := algo.Sum(buf.Bytes())
	buf.Write(indexSum)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write pack index: %w", err)
	}
	return indexSum, nil
}

func buildPackIndexFanout(entries []PackIndexEntry) [256]uint32 {
	var counts [256]uint32
	for _, entry := range entries {
		counts[int(entry.Hash[0])]++
	}

	var fanout [256]uint32
	var total uint32
	for i := 0; i < 256; i++ {
		total += counts[i]
		fanout[i] = total
	}
	return fanout
}
