package rarity

import (
	"fmt"
	"iter"

	"github.com/odvcencio/hashrarity/pkg/object"
)

// Entry is one classified hash.
type Entry struct {
	Hash  object.Hash
	Zeros int
	Tier  Tier
}

// Classify returns the tier of h under th. It is a pure function of the
// hash bytes. An empty hash is a programming error and panics.
func Classify(h object.Hash, th Thresholds) Tier {
	if len(h) == 0 {
		panic(fmt.Errorf("rarity: classify: %w: empty hash", object.ErrInvalidHashLength))
	}
	return th.TierFor(h.LeadingZeroBits())
}

// Classifier folds a stream of hashes into a Summary. It is not safe for
// concurrent use; see ClassifyParallel for sharded input.
type Classifier struct {
	thresholds Thresholds
	hashLen    int
	summary    Summary
	top        *leaderboard
	observe    func(Entry)
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThresholds replaces the default 8/16 bit tier boundaries.
func WithThresholds(th Thresholds) Option {
	return func(c *Classifier) { c.thresholds = th }
}

// WithHashLength fixes the expected hash length in bytes. Without it the
// length of the first observed hash is used.
func WithHashLength(n int) Option {
	return func(c *Classifier) { c.hashLen = n }
}

// WithTop keeps the n rarest hashes seen.
func WithTop(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.top = newLeaderboard(n)
		}
	}
}

// WithObserver calls fn for every classified hash. The Entry's Hash aliases
// the caller's buffer and is only valid during the call.
func WithObserver(fn func(Entry)) Option {
	return func(c *Classifier) { c.observe = fn }
}

// NewClassifier returns an empty Classifier.
func NewClassifier(opts ...Option) (*Classifier, error) {
	c := &Classifier{thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("rarity thresholds: %w", err)
	}
	return c, nil
}

// Thresholds returns the boundaries in use.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Observe classifies h and counts it. A hash whose length differs from the
// expected length panics: every hash in one store has the same length, so a
// mismatch is a bug in the caller.
func (c *Classifier) Observe(h object.Hash) Tier {
	if c.hashLen == 0 {
		c.hashLen = len(h)
	}
	if len(h) != c.hashLen || len(h) == 0 {
		panic(fmt.Errorf("rarity: observe %x: %w: got %d bytes, want %d", []byte(h), object.ErrInvalidHashLength, len(h), c.hashLen))
	}

	zeros := h.LeadingZeroBits()
	tier := c.thresholds.TierFor(zeros)
	c.summary.add(tier)

	e := Entry{Hash: h, Zeros: zeros, Tier: tier}
	if c.top != nil {
		c.top.offer(e)
	}
	if c.observe != nil {
		c.observe(e)
	}
	return tier
}

// Consume observes every hash of seq. It stops at the first error, leaving
// the counts of the hashes seen so far in place.
func (c *Classifier) Consume(seq iter.Seq2[object.Hash, error]) error {
	for h, err := range seq {
		if err != nil {
			return err
		}
		c.Observe(h)
	}
	return nil
}

// Summary returns a snapshot of the counts so far.
func (c *Classifier) Summary() Summary { return c.summary }

// Rarest returns the kept rarest hashes, rarest first.
func (c *Classifier) Rarest() []Entry {
	if c.top == nil {
		return nil
	}
	return c.top.sorted()
}

// ClassifyAll classifies every hash in seq. On an enumeration error it
// returns the partial summary together with the error so the caller can
// decide whether to report it.
func ClassifyAll(seq iter.Seq2[object.Hash, error], opts ...Option) (Summary, error) {
	c, err := NewClassifier(opts...)
	if err != nil {
		return Summary{}, err
	}
	err = c.Consume(seq)
	return c.Summary(), err
}
