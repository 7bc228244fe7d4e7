package object

import (
	"context"
	"iter"
	"os"
)

// Enumerate yields the name of every object stored in s exactly once: loose
// objects first, then the contents of each pack index. Order is otherwise
// unspecified.
//
// Git does not promise that a loose object is absent from every pack, or that
// packs are disjoint, so names are deduplicated before they are yielded.
//
// The sequence is single-pass. The first error (wrapping ErrStoreUnreadable,
// ErrCorruptObject, or the context's error) is yielded once with a nil Hash
// and ends the sequence; hashes already yielded remain valid.
func (s *Store) Enumerate(ctx context.Context) iter.Seq2[Hash, error] {
	return func(yield func(Hash, error) bool) {
		info, err := os.Stat(s.root)
		if err != nil {
			yield(nil, unreadable("open object store: %w", err))
			return
		}
		if !info.IsDir() {
			yield(nil, unreadable("open object store: %s is not a directory", s.root))
			return
		}

		seen := make(map[string]struct{})
		var loose, packed, duplicates int
		emit := func(h Hash) bool {
			key := string(h)
			if _, dup := seen[key]; dup {
				duplicates++
				return true
			}
			seen[key] = struct{}{}
			return yield(h, nil)
		}

		stopped := false
		s.looseObjects(func(h Hash, err error) bool {
			if err != nil {
				yield(nil, err)
				stopped = true
				return false
			}
			loose++
			if !emit(h) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}

		idxPaths, err := s.listPackIndexPaths()
		if err != nil {
			yield(nil, err)
			return
		}
		for p, err := range s.packIndexes(ctx, idxPaths) {
			if err != nil {
				yield(nil, err)
				return
			}
			for _, entry := range p.index.entries {
				packed++
				if !emit(entry.Hash) {
					return
				}
			}
		}

		s.logger.Debug("object store enumerated",
			"loose", loose,
			"packed", packed,
			"duplicates", duplicates,
			"packs", len(idxPaths),
		)
	}
}
