package rarity

import (
	"bytes"
	"container/heap"
	"sort"
)

// rarer orders entries by leading zero count, then by hash value, so the
// numerically smallest hash of a length is the rarest.
func rarer(a, b Entry) bool {
	if a.Zeros != b.Zeros {
		return a.Zeros > b.Zeros
	}
	return bytes.Compare(a.Hash, b.Hash) < 0
}

// leaderboard keeps the limit rarest entries offered to it.
type leaderboard struct {
	limit   int
	entries entryHeap
}

func newLeaderboard(limit int) *leaderboard {
	return &leaderboard{limit: limit}
}

func (l *leaderboard) offer(e Entry) {
	if len(l.entries) < l.limit {
		e.Hash = e.Hash.Clone()
		heap.Push(&l.entries, e)
		return
	}
	if !rarer(e, l.entries[0]) {
		return
	}
	e.Hash = e.Hash.Clone()
	l.entries[0] = e
	heap.Fix(&l.entries, 0)
}

func (l *leaderboard) sorted() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	sort.Slice(out, func(i, j int) bool { return rarer(out[i], out[j]) })
	return out
}

// entryHeap keeps the least rare kept entry at the root.
type entryHeap []Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return rarer(h[j], h[i]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(Entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
