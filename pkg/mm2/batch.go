package mm2

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// maxAutoWorkers caps the detected parallelism when no thread count
	// is given.
	maxAutoWorkers = 16
	// maxWorkers caps an explicit thread count.
	maxWorkers = 32
)

// BatchWorkers resolves the number of workers AlignBatch uses for a thread
// count; 0 means auto-detect.
func BatchWorkers(threads int) int {
	if threads == 0 {
		return clamp(runtime.NumCPU(), 1, maxAutoWorkers)
	}
	return clamp(threads, 1, maxWorkers)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// chunkBounds partitions n items into contiguous chunks for workers. The
// last chunk may be shorter and there are never more chunks than workers.
func chunkBounds(n, workers int) [][2]int {
	size := (n + workers - 1) / workers
	bounds := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		bounds = append(bounds, [2]int{start, min(start+size, n)})
	}
	return bounds
}

// AlignBatch aligns queries in parallel and returns one record list per
// query, in input order. threads 0 uses the detected parallelism capped at
// 16; explicit counts are capped at 32. Each worker owns its own context
// and shares the index. Any worker failure fails the whole batch and no
// partial results are returned.
func (a *Aligner) AlignBatch(queries []Query, threads int) ([][]Record, error) {
	if len(queries) == 0 {
		return [][]Record{}, nil
	}

	idx, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer idx.Release()

	workers := BatchWorkers(threads)
	bounds := chunkBounds(len(queries), workers)
	chunks := make([][][]Record, len(bounds))

	g, gctx := errgroup.WithContext(context.Background())
	for w, b := range bounds {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &BatchError{Worker: w, Start: b[0], End: b[1], cause: fmt.Errorf("worker panicked: %v", r)}
				}
			}()

			c, err := newContext(a.eng, a.opts, a.logger)
			if err != nil {
				return &BatchError{Worker: w, Start: b[0], End: b[1], cause: err}
			}
			defer c.close()

			out := make([][]Record, 0, b[1]-b[0])
			for _, q := range queries[b[0]:b[1]] {
				// A sibling failed; the batch result is discarded.
				if gctx.Err() != nil {
					return nil
				}
				recs, err := c.align(idx, q)
				if err != nil {
					return &BatchError{Worker: w, Start: b[0], End: b[1], cause: err}
				}
				out = append(out, recs)
			}
			chunks[w] = out
			return nil
		})
	}

	err = g.Wait()
	a.logger.LogBatch(context.Background(), len(queries), len(bounds), err)
	if err != nil {
		return nil, err
	}

	results := make([][]Record, 0, len(queries))
	for _, c := range chunks {
		results = append(results, c...)
	}
	return results, nil
}
