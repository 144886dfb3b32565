package mm2

import (
	"fmt"
	"sync"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/mm2go/pkg/engine"
)

type options struct {
	logger *Logger
}

// Option configures an Aligner.
type Option func(*options)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Aligner aligns queries against a shared Index. Each Aligner owns its
// own alignment context, so Align calls on one Aligner are serialized;
// use Clone or AlignBatch for parallelism.
type Aligner struct {
	eng    engine.Engine
	opts   Options
	index  *Index
	logger *Logger

	mu     sync.Mutex
	ctx    *alignContext
	closed bool
}

// New loads the index named by opts.Reference and returns an Aligner.
func New(eng engine.Engine, opts Options, optFns ...Option) (*Aligner, error) {
	o := applyOptions(optFns)
	idx, err := LoadIndex(eng, opts, o.logger)
	if err != nil {
		return nil, err
	}
	a, err := newAligner(eng, opts, idx, o.logger)
	if err != nil {
		idx.Release()
		return nil, err
	}
	return a, nil
}

// NewWithThreads is New with opts annotated by a thread count.
func NewWithThreads(eng engine.Engine, opts Options, threads int, optFns ...Option) (*Aligner, error) {
	return New(eng, opts.WithThreads(threads), optFns...)
}

// NewWithIndex returns an Aligner over an already loaded index. The
// Aligner takes its own hold on idx; the caller keeps its own.
func NewWithIndex(eng engine.Engine, opts Options, idx *Index, optFns ...Option) (*Aligner, error) {
	o := applyOptions(optFns)
	a, err := newAligner(eng, opts, idx.retain(), o.logger)
	if err != nil {
		idx.Release()
		return nil, err
	}
	return a, nil
}

func applyOptions(optFns []Option) options {
	o := options{}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

// newAligner takes over one hold on idx.
func newAligner(eng engine.Engine, opts Options, idx *Index, logger *Logger) (*Aligner, error) {
	ctx, err := newContext(eng, opts, logger)
	if err != nil {
		return nil, err
	}
	return &Aligner{
		eng:    eng,
		opts:   opts,
		index:  idx,
		logger: logger,
		ctx:    ctx,
	}, nil
}

// Header returns the SAM header of the reference dictionary.
func (a *Aligner) Header() (*sam.Header, error) { return a.index.Header() }

// Refs returns the reference dictionary.
func (a *Aligner) Refs() []Reference { return a.index.Refs() }

// Index returns the shared index.
func (a *Aligner) Index() *Index { return a.index }

// Options returns the options the Aligner was built with.
func (a *Aligner) Options() Options { return a.opts }

// Align aligns a single query and returns its records, hits from every
// index part in part order.
func (a *Aligner) Align(q Query) ([]Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	return a.ctx.align(a.index, q)
}

// Clone returns a new Aligner sharing the index with its own context.
func (a *Aligner) Clone() (*Aligner, error) {
	idx, err := a.acquire()
	if err != nil {
		return nil, err
	}
	c, err := newAligner(a.eng, a.opts, idx, a.logger)
	if err != nil {
		idx.Release()
		return nil, fmt.Errorf("failed to create inner aligner during clone: %w", err)
	}
	return c, nil
}

// acquire returns the index with an extra hold for the caller.
func (a *Aligner) acquire() (*Index, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	return a.index.retain(), nil
}

// Close releases the context and this Aligner's hold on the index.
func (a *Aligner) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.ctx.close()
	a.index.Release()
	return nil
}
