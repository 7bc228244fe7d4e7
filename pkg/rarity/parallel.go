package rarity

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/hashrarity/pkg/object"
)

// Shard is one independently enumerable hash sequence, such as the object
// store of one repository.
type Shard struct {
	Name string
	Seq  iter.Seq2[object.Hash, error]
}

// ShardResult is the partial result of one shard.
type ShardResult struct {
	Name    string
	Summary Summary
	Rarest  []Entry
	Err     error
}

// Result is the merged outcome of ClassifyParallel.
type Result struct {
	Summary Summary
	Rarest  []Entry
	Shards  []ShardResult
}

// ClassifyParallel classifies each shard on its own worker with its own
// Classifier, then merges the partial summaries by addition. Shards are not
// deduplicated against each other. An observer passed in opts is called from
// several goroutines and must be safe for concurrent use.
//
// Every shard runs to completion or to its own error. The returned error is
// that of the lowest-indexed failing shard, and Result still carries every
// partial summary.
func ClassifyParallel(ctx context.Context, shards []Shard, limit int, opts ...Option) (Result, error) {
	probe, err := NewClassifier(opts...)
	if err != nil {
		return Result{}, err
	}

	results := make([]ShardResult, len(shards))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, shard := range shards {
		g.Go(func() error {
			c, err := NewClassifier(opts...)
			if err != nil {
				return err
			}
			err = c.Consume(func(yield func(object.Hash, error) bool) {
				for h, err := range shard.Seq {
					if ctxErr := ctx.Err(); ctxErr != nil && err == nil {
						err = ctxErr
					}
					if !yield(h, err) || err != nil {
						return
					}
				}
			})
			results[i] = ShardResult{
				Name:    shard.Name,
				Summary: c.Summary(),
				Rarest:  c.Rarest(),
				Err:     err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	out := Result{Shards: results}
	var firstErr error
	board := probe.top
	for _, r := range results {
		if firstErr == nil && r.Err != nil {
			firstErr = r.Err
		}
		out.Summary = out.Summary.Merge(r.Summary)
		if board != nil {
			for _, e := range r.Rarest {
				board.offer(e)
			}
		}
	}
	if board != nil {
		out.Rarest = board.sorted()
	}
	return out, firstErr
}
