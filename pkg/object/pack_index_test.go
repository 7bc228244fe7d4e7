package object

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashWith(algo HashAlgo, first byte, fill byte) Hash {
	h := bytes.Repeat([]byte{fill}, algo.Size())
	h[0] = first
	return Hash(h)
}

func writeIndex(t *testing.T, algo HashAlgo, entries []PackIndexEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := WritePackIndex(&buf, algo, entries, hashWith(algo, 0xab, 0xab))
	require.NoError(t, err)
	return append([]byte(nil), buf.Bytes()...)
}

// resum rewrites the trailing index checksum after a test tampers with data.
func resum(algo HashAlgo, data []byte) {
	hs := algo.Size()
	copy(data[len(data)-hs:], algo.Sum(data[:len(data)-hs]))
}

func validIndex(t *testing.T, algo HashAlgo) []byte {
	t.Helper()
	return writeIndex(t, algo, []PackIndexEntry{
		{Hash: hashWith(algo, 0x10, 0), Offset: 12},
		{Hash: hashWith(algo, 0x20, 0), Offset: 40},
	})
}

func TestWritePackIndexHeaderFanoutAndSorting(t *testing.T) {
	data := writeIndex(t, SHA256, []PackIndexEntry{
		{Hash: hashWith(SHA256, 0xff, 0), Offset: 32, CRC32: 0x33333333},
		{Hash: hashWith(SHA256, 0x01, 0), Offset: 16, CRC32: 0x11111111},
		{Hash: hashWith(SHA256, 0x10, 0), Offset: 24, CRC32: 0x22222222},
	})

	assert.Equal(t, packIndexMagic[:], data[:4])
	assert.EqualValues(t, packIndexVersion, binary.BigEndian.Uint32(data[4:8]))

	fanout := data[packIndexHeaderSize : packIndexHeaderSize+packIndexFanoutSize]
	for _, tc := range []struct {
		bucket int
		want   uint32
	}{{0x00, 0}, {0x01, 1}, {0x10, 2}, {0xfe, 2}, {0xff, 3}} {
		assert.Equal(t, tc.want, binary.BigEndian.Uint32(fanout[tc.bucket*4:]), "fanout[%#x]", tc.bucket)
	}

	namesStart := packIndexHeaderSize + packIndexFanoutSize
	for i, first := range []byte{0x01, 0x10, 0xff} {
		assert.Equal(t, first, data[namesStart+i*32], "name %d", i)
	}
}

func TestWritePackIndexLargeOffsets(t *testing.T) {
	entries := []PackIndexEntry{
		{Hash: hashWith(SHA1, 0x20, 0), Offset: 0x20},
		{Hash: hashWith(SHA1, 0x30, 0), Offset: uint64(packIndexLargeOffsetBit) + 123},
	}
	data := writeIndex(t, SHA1, entries)

	offsetTableStart := packIndexHeaderSize + packIndexFanoutSize + len(entries)*20 + len(entries)*4
	assert.EqualValues(t, 0x20, binary.BigEndian.Uint32(data[offsetTableStart:]))
	assert.NotZero(t, binary.BigEndian.Uint32(data[offsetTableStart+4:])&packIndexLargeOffsetBit, "large offset marker")

	idx, err := ReadPackIndex(data, SHA1)
	require.NoError(t, err)
	found, ok := idx.Find(entries[1].Hash)
	require.True(t, ok)
	assert.Equal(t, uint64(packIndexLargeOffsetBit)+123, found.Offset)
}

func TestWritePackIndexRejectsDuplicateHashes(t *testing.T) {
	dup := hashWith(SHA1, 0x20, 0)
	var buf bytes.Buffer
	_, err := WritePackIndex(&buf, SHA1, []PackIndexEntry{{Hash: dup, Offset: 1}, {Hash: dup, Offset: 2}}, hashWith(SHA1, 0xef, 0xef))
	require.Error(t, err)
}

func TestWritePackIndexRejectsWrongHashLength(t *testing.T) {
	var buf bytes.Buffer
	_, err := WritePackIndex(&buf, SHA1, []PackIndexEntry{{Hash: hashWith(SHA256, 0x20, 0), Offset: 1}}, hashWith(SHA1, 0xef, 0xef))
	require.ErrorIs(t, err, ErrInvalidHashLength)
}

func TestReadPackIndexRoundTripAndFind(t *testing.T) {
	for _, algo := range []HashAlgo{SHA1, SHA256} {
		t.Run(algo.String(), func(t *testing.T) {
			entries := []PackIndexEntry{
				{Hash: hashWith(algo, 0x02, 0x00), Offset: 8, CRC32: 0x11111111},
				{Hash: hashWith(algo, 0x20, 0x00), Offset: 9, CRC32: 0x22222222},
				{Hash: hashWith(algo, 0x10, 0x00), Offset: 7, CRC32: 0x33333333},
				{Hash: hashWith(algo, 0x10, 0x01), Offset: 6, CRC32: 0x44444444},
			}
			packChecksum := hashWith(algo, 0xaa, 0xaa)

			var buf bytes.Buffer
			indexChecksum, err := WritePackIndex(&buf, algo, entries, packChecksum)
			require.NoError(t, err)

			idx, err := ReadPackIndex(buf.Bytes(), algo)
			require.NoError(t, err)
			assert.Equal(t, 2, idx.Version)
			assert.Equal(t, len(entries), idx.Len())
			assert.True(t, idx.PackChecksum.Equal(packChecksum))
			assert.True(t, idx.IndexChecksum.Equal(indexChecksum))

			found, ok := idx.Find(hashWith(algo, 0x10, 0x01))
			require.True(t, ok)
			assert.EqualValues(t, 6, found.Offset)
			assert.EqualValues(t, 0x44444444, found.CRC32)

			_, ok = idx.Find(hashWith(algo, 0xff, 0x00))
			assert.False(t, ok, "hit for missing hash")
			_, ok = idx.Find(hashWith(algo, 0x10, 0x02))
			assert.False(t, ok, "hit for missing hash in populated bucket")
		})
	}
}

func TestReadPackIndexV1(t *testing.T) {
	var buf bytes.Buffer
	_, err := WritePackIndexV1(&buf, SHA1, []PackIndexEntry{
		{Hash: hashWith(SHA1, 0x55, 0x00), Offset: 12},
		{Hash: hashWith(SHA1, 0x05, 0x00), Offset: 40},
	}, hashWith(SHA1, 0xab, 0xab))
	require.NoError(t, err)

	idx, err := ReadPackIndex(buf.Bytes(), SHA1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Version)
	got := idx.Entries()
	require.Len(t, got, 2)
	assert.Equal(t, byte(0x05), got[0].Hash[0])
	assert.EqualValues(t, 40, got[0].Offset)
	assert.EqualValues(t, 12, got[1].Offset)
}

func TestReadPackIndexFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{
			name:   "checksum mismatch",
			mutate: func(d []byte) []byte { d[len(d)-1] ^= 0xff; return d },
			want:   ErrStoreUnreadable,
		},
		{
			name:   "too short",
			mutate: func(d []byte) []byte { return d[:100] },
			want:   ErrStoreUnreadable,
		},
		{
			name: "unsupported version",
			mutate: func(d []byte) []byte {
				binary.BigEndian.PutUint32(d[4:8], 3)
				resum(SHA1, d)
				return d
			},
			want: ErrStoreUnreadable,
		},
		{
			name: "fanout decreases",
			mutate: func(d []byte) []byte {
				binary.BigEndian.PutUint32(d[packIndexHeaderSize+0x05*4:], 2)
				resum(SHA1, d)
				return d
			},
			want: ErrCorruptObject,
		},
		{
			name: "names out of order",
			mutate: func(d []byte) []byte {
				namesStart := packIndexHeaderSize + packIndexFanoutSize
				d[namesStart+20+1] = 0x00
				d[namesStart+1] = 0xff
				d[namesStart+20] = 0x10
				resum(SHA1, d)
				return d
			},
			want: ErrCorruptObject,
		},
		{
			name: "truncated name table",
			mutate: func(d []byte) []byte {
				binary.BigEndian.PutUint32(d[packIndexHeaderSize+0xff*4:], 1000)
				resum(SHA1, d)
				return d
			},
			want: ErrStoreUnreadable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPackIndex(tt.mutate(validIndex(t, SHA1)), SHA1)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadPackIndexCorruptEntryCarriesPosition(t *testing.T) {
	data := validIndex(t, SHA1)
	namesStart := packIndexHeaderSize + packIndexFanoutSize
	// Second name moves into bucket 0x30 while the fanout still files it
	// under 0x20.
	data[namesStart+20] = 0x30
	resum(SHA1, data)

	_, err := ReadPackIndex(data, SHA1)
	var corrupt *CorruptObjectError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 1, corrupt.Position)
	assert.EqualValues(t, 40, corrupt.Offset)
}

func TestReadPackIndexLargeOffsetRefOutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		entries []PackIndexEntry
		patch   int    // entry whose offset word is rewritten
		word    uint32 // replacement offset word
	}{
		{
			name:    "no large-offset table",
			entries: []PackIndexEntry{{Hash: hashWith(SHA1, 0x20, 0), Offset: 12}},
			patch:   0,
			word:    0xffffffff,
		},
		{
			name: "ref past the table",
			entries: []PackIndexEntry{
				{Hash: hashWith(SHA1, 0x20, 0), Offset: 12},
				{Hash: hashWith(SHA1, 0x30, 0), Offset: uint64(packIndexLargeOffsetBit) + 1},
			},
			patch: 1,
			word:  packIndexLargeOffsetBit | 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := writeIndex(t, SHA1, tt.entries)
			n := len(tt.entries)
			offsetStart := packIndexHeaderSize + packIndexFanoutSize + n*20 + n*4
			binary.BigEndian.PutUint32(data[offsetStart+tt.patch*4:], tt.word)
			resum(SHA1, data)

			_, err := ReadPackIndex(data, SHA1)
			require.ErrorIs(t, err, ErrCorruptObject)
			var corrupt *CorruptObjectError
			require.ErrorAs(t, err, &corrupt)
			assert.Equal(t, tt.patch, corrupt.Position)
			assert.Contains(t, corrupt.Reason, "out of range")
		})
	}
}
