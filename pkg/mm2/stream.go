package mm2

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/scttfrdmn/mm2go/pkg/engine"
)

// ParallelConfig controls batch processing.
type ParallelConfig struct {
	// Threads is the worker count per batch; 0 auto-detects.
	Threads int
	// BatchSize is the number of queries aligned per batch.
	BatchSize int
	// Verbose logs every batch at info level.
	Verbose bool
}

// NewParallelConfig returns the default configuration.
func NewParallelConfig() ParallelConfig {
	return ParallelConfig{
		Threads:   0,
		BatchSize: 1000,
	}
}

// Validate checks the configuration.
func (c ParallelConfig) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", c.Threads)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be >= 1, got %d", c.BatchSize)
	}
	return nil
}

// QuerySource yields queries until it returns io.EOF.
type QuerySource interface {
	Next() (Query, error)
}

type sliceSource struct {
	queries []Query
	next    int
}

func (s *sliceSource) Next() (Query, error) {
	if s.next >= len(s.queries) {
		return Query{}, io.EOF
	}
	q := s.queries[s.next]
	s.next++
	return q, nil
}

// Queries returns a QuerySource over queries.
func Queries(queries []Query) QuerySource {
	return &sliceSource{queries: queries}
}

// BatchAligner drives an Aligner over batches of queries.
type BatchAligner struct {
	aligner *Aligner
	config  ParallelConfig
}

// NewBatchAligner loads the index and returns a BatchAligner.
func NewBatchAligner(eng engine.Engine, opts Options, config ParallelConfig, optFns ...Option) (*BatchAligner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a, err := New(eng, opts, optFns...)
	if err != nil {
		return nil, err
	}
	return &BatchAligner{aligner: a, config: config}, nil
}

// ProcessBatch aligns queries with the configured thread count.
func (b *BatchAligner) ProcessBatch(queries []Query) ([][]Record, error) {
	results, err := b.aligner.AlignBatch(queries, b.config.Threads)
	if err == nil && b.config.Verbose {
		b.aligner.logger.InfoContext(context.Background(), "batch processed",
			"queries", len(queries),
		)
	}
	return results, err
}

// ProcessStream reads src in batches of BatchSize and calls fn with the
// records of every query, in input order. It stops at the first error from
// src, the aligner or fn.
func (b *BatchAligner) ProcessStream(src QuerySource, fn func([]Record) error) error {
	batch := make([]Query, 0, b.config.BatchSize)

	flush := func() error {
		results, err := b.ProcessBatch(batch)
		if err != nil {
			return err
		}
		for _, recs := range results {
			if err := fn(recs); err != nil {
				return err
			}
		}
		batch = batch[:0]
		return nil
	}

	for {
		q, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read query: %w", err)
		}
		batch = append(batch, q)
		if len(batch) >= b.config.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if len(batch) > 0 {
		return flush()
	}
	return nil
}

// Aligner returns the underlying Aligner.
func (b *BatchAligner) Aligner() *Aligner { return b.aligner }

// Config returns the configuration.
func (b *BatchAligner) Config() ParallelConfig { return b.config }

// Close closes the underlying Aligner.
func (b *BatchAligner) Close() error { return b.aligner.Close() }
