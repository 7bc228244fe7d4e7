// Package objecttest builds Git object directories on disk for tests.
package objecttest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/odvcencio/hashrarity/pkg/object"
)

// Fixture is an objects directory under a test's temp dir.
type Fixture struct {
	t    testing.TB
	Dir  string
	Algo object.HashAlgo
}

// New creates an empty objects directory.
func New(t testing.TB, algo object.HashAlgo) *Fixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "objects")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir objects: %v", err)
	}
	return &Fixture{t: t, Dir: dir, Algo: algo}
}

// At wraps an existing objects directory, creating it if needed.
func At(t testing.TB, dir string, algo object.HashAlgo) *Fixture {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir objects: %v", err)
	}
	return &Fixture{t: t, Dir: dir, Algo: algo}
}

// Store opens the fixture as an object.Store.
func (f *Fixture) Store(opts ...object.Option) *object.Store {
	return object.NewStore(f.Dir, f.Algo, opts...)
}

// WriteLoose stores data as a loose object under its real name.
func (f *Fixture) WriteLoose(kind object.ObjectKind, data []byte) object.Hash {
	f.t.Helper()
	h := f.Algo.HashObject(kind, data)
	f.WriteLooseAs(h, kind, data)
	return h
}

// WriteLooseAs stores data as a loose object under the name h, whether or
// not h is the digest of data. Hash-shaped fixtures (all zero, 00ab...) need
// this since no content hashes to them.
func (f *Fixture) WriteLooseAs(h object.Hash, kind object.ObjectKind, data []byte) {
	f.t.Helper()
	if len(h) != f.Algo.Size() {
		f.t.Fatalf("WriteLooseAs: hash %s is %d bytes, want %d", h, len(h), f.Algo.Size())
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(object.ObjectHeader(kind, len(data))); err != nil {
		f.t.Fatalf("zlib header: %v", err)
	}
	if _, err := zw.Write(data); err != nil {
		f.t.Fatalf("zlib body: %v", err)
	}
	if err := zw.Close(); err != nil {
		f.t.Fatalf("zlib close: %v", err)
	}

	hx := h.String()
	dir := filepath.Join(f.Dir, hx[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f.t.Fatalf("mkdir fanout: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, hx[2:]), buf.Bytes(), 0o644); err != nil {
		f.t.Fatalf("write loose object: %v", err)
	}
}

// PackObject describes one pack entry. A nil Hash is replaced with the
// digest of Kind and Data. A positive DeltaOf stores the entry as an
// OFS_DELTA against the entry DeltaOf positions earlier; RefBase stores it as
// a REF_DELTA against that name.
type PackObject struct {
	Hash    object.Hash
	Kind    object.ObjectKind
	Data    []byte
	DeltaOf int
	RefBase object.Hash
}

// PackIndexVersion selects the index layout WritePack emits.
type PackIndexVersion int

const (
	IndexV2 PackIndexVersion = 2
	IndexV1 PackIndexVersion = 1
)

// WritePack writes objects into objects/pack as pack-<checksum>.pack with a
// matching index, returning the hashes in input order and the index path.
func (f *Fixture) WritePack(version PackIndexVersion, objs ...PackObject) ([]object.Hash, string) {
	f.t.Helper()

	var pack bytes.Buffer
	pack.Write(object.PackHeader{Version: 2, NumObjects: uint32(len(objs))}.Marshal())

	hashes := make([]object.Hash, len(objs))
	offsets := make([]uint64, len(objs))
	entries := make([]object.PackIndexEntry, len(objs))
	for i, o := range objs {
		h := o.Hash
		if h == nil {
			h = f.Algo.HashObject(o.Kind, o.Data)
		}
		hashes[i] = h
		offsets[i] = uint64(pack.Len())

		switch {
		case o.DeltaOf > 0:
			base := i - o.DeltaOf
			if base < 0 {
				f.t.Fatalf("WritePack: entry %d deltas against missing entry %d", i, base)
			}
			pack.Write(object.EncodePackEntryHeader(object.PackOfsDelta, uint64(len(o.Data))))
			pack.Write(object.EncodeOfsDeltaOffset(offsets[i] - offsets[base]))
		case o.RefBase != nil:
			pack.Write(object.EncodePackEntryHeader(object.PackRefDelta, uint64(len(o.Data))))
			pack.Write(o.RefBase)
		default:
			pack.Write(object.EncodePackEntryHeader(o.Kind.PackObjectType(), uint64(len(o.Data))))
		}
		zw := zlib.NewWriter(&pack)
		if _, err := zw.Write(o.Data); err != nil {
			f.t.Fatalf("zlib entry %d: %v", i, err)
		}
		if err := zw.Close(); err != nil {
			f.t.Fatalf("zlib close %d: %v", i, err)
		}
		entries[i] = object.PackIndexEntry{Hash: h, Offset: offsets[i]}
	}
	checksum := f.Algo.Sum(pack.Bytes())
	pack.Write(checksum)

	packDir := filepath.Join(f.Dir, "pack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		f.t.Fatalf("mkdir pack: %v", err)
	}
	base := filepath.Join(packDir, "pack-"+checksum.String())
	if err := os.WriteFile(base+".pack", pack.Bytes(), 0o644); err != nil {
		f.t.Fatalf("write pack: %v", err)
	}

	var idx bytes.Buffer
	var err error
	if version == IndexV1 {
		_, err = object.WritePackIndexV1(&idx, f.Algo, entries, checksum)
	} else {
		_, err = object.WritePackIndex(&idx, f.Algo, entries, checksum)
	}
	if err != nil {
		f.t.Fatalf("write pack index: %v", err)
	}
	if err := os.WriteFile(base+".idx", idx.Bytes(), 0o644); err != nil {
		f.t.Fatalf("write pack index: %v", err)
	}
	return hashes, base + ".idx"
}

// HashWithPrefix returns a hash of the fixture's length starting with prefix
// and filled with fill.
func (f *Fixture) HashWithPrefix(prefix []byte, fill byte) object.Hash {
	h := bytes.Repeat([]byte{fill}, f.Algo.Size())
	copy(h, prefix)
	return object.Hash(h)
}
