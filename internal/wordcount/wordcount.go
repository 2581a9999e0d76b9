package wordcount

import (
	"context"
	"io"

	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/mapreduce"
	"DistWordFreq/internal/source"
	"DistWordFreq/internal/types"
	"DistWordFreq/internal/vocab"
)

// ctxCheckWords is how many words are scanned between cancellation checks.
const ctxCheckWords = 16 * 1024

// Counter counts vocabulary words in input files. It holds no mutable state
// and may be shared by concurrent tasks.
type Counter struct {
	src    source.Source
	vocab  *types.Vocabulary
	norm   vocab.Normalizer
	logger *logger.Logger
}

// NewCounter creates a Counter. norm must be the normalizer the vocabulary was built with.
func NewCounter(src source.Source, v *types.Vocabulary, norm vocab.Normalizer, lg *logger.Logger) *Counter {
	if lg == nil {
		lg = logger.Discard()
	}
	return &Counter{src: src, vocab: v, norm: norm, logger: lg}
}

// CountReader counts vocabulary words as they stream past. Words outside
// the vocabulary are dropped as they are read.
func (c *Counter) CountReader(ctx context.Context, r io.Reader) (types.CountMap, error) {
	counts := make(types.CountMap)
	words := 0

	err := source.ScanWords(r, func(word string) error {
		words++
		if words%ctxCheckWords == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if tok := c.norm.Normalize(word); c.vocab.Contains(tok) {
			counts[tok]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CountFile opens path and counts it. Read failures come back as *types.WorkerIOError.
func (c *Counter) CountFile(ctx context.Context, path string) (types.CountMap, error) {
	rc, err := c.src.Open(path)
	if err != nil {
		return nil, &types.WorkerIOError{Path: path, Err: err}
	}
	defer rc.Close()

	counts, err := c.CountReader(ctx, rc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &types.WorkerIOError{Path: path, Err: err}
	}
	return counts, nil
}

// Task is the Worker Task: it folds every file of the partition into one
// CountMap. An unreadable file contributes nothing and is reported as a
// failure; counting continues with the next file.
func (c *Counter) Task(ctx context.Context, p types.Partition) (types.PartialResult, error) {
	res := types.PartialResult{Partition: p.Index, Counts: make(types.CountMap)}

	for _, path := range p.Files {
		if err := ctx.Err(); err != nil {
			return types.PartialResult{}, err
		}

		counts, err := c.CountFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return types.PartialResult{}, ctx.Err()
			}
			c.logger.Warn("Skipping unreadable file: partition=%d path=%s err=%v", p.Index, path, err)
			res.Failures = append(res.Failures, types.Failure{
				Path:      path,
				Partition: p.Index,
				Kind:      types.FailureIO,
				Reason:    err.Error(),
			})
			continue
		}

		mapreduce.MergeInto(res.Counts, counts)
		c.logger.Debug("Counted file: partition=%d path=%s matches=%d", p.Index, path, counts.Total())
	}

	return res, nil
}
