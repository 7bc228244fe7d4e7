package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxDeltaChain bounds delta base resolution; Git's default pack.depth is 50
// and nothing writes chains anywhere near this long.
const maxDeltaChain = 10000

// packHandle pairs a parsed index with the pack file it describes.
type packHandle struct {
	name     string
	packPath string
	index    *PackIndex
}

func (s *Store) listPackIndexPaths() ([]string, error) {
	entries, err := os.ReadDir(s.packDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, unreadable("read pack dir: %w", err)
	}

	idxPaths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".idx") {
			continue
		}
		idxPaths = append(idxPaths, filepath.Join(s.packDir(), entry.Name()))
	}
	sort.Strings(idxPaths)
	return idxPaths, nil
}

func (s *Store) loadPackIndex(idxPath string) (*packHandle, error) {
	name := filepath.Base(idxPath)
	data, err := os.ReadFile(idxPath)
	if err != nil {
		return nil, unreadable("read pack index %s: %w", name, err)
	}
	idx, err := ReadPackIndex(data, s.algo)
	if err != nil {
		return nil, withPack(name, err)
	}
	s.logger.Debug("pack index loaded", "pack", name, "version", idx.Version, "objects", idx.Len())
	return &packHandle{
		name:     name,
		packPath: packPathForIndex(idxPath),
		index:    idx,
	}, nil
}

// packIndexes yields parsed pack indexes in path order. With parallelism
// above one, indexes are read ahead by a bounded worker pool; the yield
// order does not change.
func (s *Store) packIndexes(ctx context.Context, idxPaths []string) iter.Seq2[*packHandle, error] {
	return func(yield func(*packHandle, error) bool) {
		if s.parallelism < 2 || len(idxPaths) < 2 {
			for _, p := range idxPaths {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				h, err := s.loadPackIndex(p)
				if !yield(h, err) || err != nil {
					return
				}
			}
			return
		}

		handles := make([]*packHandle, len(idxPaths))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.parallelism)
		for i, p := range idxPaths {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				h, err := s.loadPackIndex(p)
				if err != nil {
					return err
				}
				handles[i] = h
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			yield(nil, err)
			return
		}
		for _, h := range handles {
			if !yield(h, nil) {
				return
			}
		}
	}
}

// loadedPacks caches every pack index for point lookups. The cache reflects
// the pack directory as it was on first use.
func (s *Store) loadedPacks(ctx context.Context) ([]*packHandle, error) {
	s.packsOnce.Do(func() {
		idxPaths, err := s.listPackIndexPaths()
		if err != nil {
			s.packsErr = err
			return
		}
		for h, err := range s.packIndexes(ctx, idxPaths) {
			if err != nil {
				s.packsErr = err
				return
			}
			s.packs = append(s.packs, h)
		}
	})
	return s.packs, s.packsErr
}

// packedKind resolves the kind of the entry at offset, following OFS and REF
// delta chains to a base entry. Only entry headers are read.
func (s *Store) packedKind(ctx context.Context, p *packHandle, offset uint64, depth int) (ObjectKind, error) {
	f, err := os.Open(p.packPath)
	if err != nil {
		return "", unreadable("open pack %s: %w", filepath.Base(p.packPath), err)
	}
	defer f.Close()

	var hdr [packHeaderSize]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return "", unreadable("read pack header %s: %w", filepath.Base(p.packPath), err)
	}
	if _, err := UnmarshalPackHeader(hdr[:]); err != nil {
		return "", unreadable("pack %s: %w", filepath.Base(p.packPath), err)
	}

	buf := make([]byte, 20+s.algo.Size())
	for ; depth < maxDeltaChain; depth++ {
		corrupt := func(format string, args ...any) error {
			return &CorruptObjectError{Pack: p.name, Position: -1, Offset: int64(offset), Reason: fmt.Sprintf(format, args...)}
		}

		n, err := f.ReadAt(buf, int64(offset))
		if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
			return "", corrupt("read entry header: %v", err)
		}
		objType, _, consumed, err := decodePackEntryHeader(buf[:n])
		if err != nil {
			return "", corrupt("%v", err)
		}
		if kind, ok := packObjectTypeToKind(objType); ok {
			return kind, nil
		}

		switch objType {
		case PackOfsDelta:
			distance, _, err := decodeOfsDeltaOffset(buf[consumed:n])
			if err != nil {
				return "", corrupt("%v", err)
			}
			if distance == 0 || distance > offset {
				return "", corrupt("delta base distance %d out of range", distance)
			}
			offset -= distance
		case PackRefDelta:
			if n-consumed < s.algo.Size() {
				return "", corrupt("delta base name truncated")
			}
			base := Hash(buf[consumed : consumed+s.algo.Size()]).Clone()
			entry, ok := p.index.Find(base)
			if !ok {
				return s.kind(ctx, base, depth+1)
			}
			offset = entry.Offset
		default:
			return "", corrupt("unsupported packed object type %d", objType)
		}
	}
	return "", &CorruptObjectError{Pack: p.name, Position: -1, Offset: int64(offset), Reason: "delta chain too long"}
}

// Kind reports the kind of the object named h, looking in loose objects
// first and then in every pack. It returns an error wrapping os.ErrNotExist
// when no copy of h is stored.
func (s *Store) Kind(ctx context.Context, h Hash) (ObjectKind, error) {
	if err := s.algo.CheckLength(h); err != nil {
		return "", err
	}
	return s.kind(ctx, h, 0)
}

func (s *Store) kind(ctx context.Context, h Hash, depth int) (ObjectKind, error) {
	kind, err := s.looseKind(h)
	if err == nil {
		return kind, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	packs, err := s.loadedPacks(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range packs {
		entry, ok := p.index.Find(h)
		if !ok {
			continue
		}
		return s.packedKind(ctx, p, entry.Offset, depth)
	}
	return "", fmt.Errorf("object %s: %w", h, os.ErrNotExist)
}

func packPathForIndex(idxPath string) string {
	return strings.TrimSuffix(idxPath, ".idx") + ".pack"
}
