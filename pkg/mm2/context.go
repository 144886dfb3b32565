package mm2

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/scttfrdmn/mm2go/pkg/engine"
)

// alignContext is the per-worker state of the engine: a working buffer, a
// private mapping parameter block and a reusable query buffer. It must
// only ever be used by one goroutine at a time.
type alignContext struct {
	eng    engine.Engine
	buf    engine.Buffer
	mapp   engine.MapParams
	seq    []byte
	logger *Logger
}

// newContext allocates a context configured from opts. On failure nothing
// allocated so far is leaked.
func newContext(eng engine.Engine, opts Options, logger *Logger) (*alignContext, error) {
	buf := eng.NewBuffer()
	if buf == nil {
		return nil, fmt.Errorf("%w: failed to initialize thread buffer", ErrOutOfMemory)
	}
	mp, err := eng.NewMapParams()
	if err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("%w: failed to allocate mapping options: %v", ErrOutOfMemory, err)
	}
	eng.InitMapParams(mp)

	if opts.Preset != "" {
		ip, err := eng.NewIndexParams()
		if err != nil {
			mp.Free()
			buf.Destroy()
			return nil, fmt.Errorf("%w: index parameters: %v", ErrOutOfMemory, err)
		}
		err = applyPreset(eng, opts.Preset, ip, mp)
		ip.Free()
		if err != nil {
			mp.Free()
			buf.Destroy()
			return nil, err
		}
	}
	applyFlags(mp, opts.mapFlags())

	return &alignContext{
		eng:    eng,
		buf:    buf,
		mapp:   mp,
		seq:    make([]byte, 0, 1024),
		logger: logger,
	}, nil
}

// close releases the engine handles. It is safe to call more than once.
func (c *alignContext) close() {
	if c.buf != nil {
		c.buf.Destroy()
		c.buf = nil
	}
	if c.mapp != nil {
		c.mapp.Free()
		c.mapp = nil
	}
}

// validateQuery checks that q can be passed to the engine as C strings.
func validateQuery(q Query) error {
	if !utf8.ValidString(q.Name) {
		return fmt.Errorf("%w: query name is not valid UTF-8", ErrInvalidSequenceEncoding)
	}
	if i := strings.IndexByte(q.Name, 0); i >= 0 {
		return fmt.Errorf("%w: query name %q has NUL byte at %d", ErrInvalidSequenceEncoding, q.Name, i)
	}
	if i := bytes.IndexByte(q.Seq, 0); i >= 0 {
		return fmt.Errorf("%w: query %q sequence has NUL byte at %d", ErrInvalidSequenceEncoding, q.Name, i)
	}
	return nil
}

// align maps q against every part of idx, in part order.
func (c *alignContext) align(idx *Index, q Query) ([]Record, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	c.seq = append(c.seq[:0], q.Seq...)

	var records []Record
	for i, part := range idx.parts {
		c.eng.UpdateMapParams(c.mapp, part.part)

		n, regs := c.eng.Map(part.part, c.seq, q.Name, c.buf, c.mapp)
		if regs == nil {
			if n > 0 {
				return nil, fmt.Errorf("%w: %d hits reported for %q without a result array",
					ErrEngineContractViolation, n, q.Name)
			}
			continue
		}
		records = c.collect(records, regs, n, i, part, q)
	}
	return records, nil
}

// collect translates n registers and releases the array.
func (c *alignContext) collect(records []Record, regs engine.Registers, n, partIndex int, part *indexPart, q Query) []Record {
	defer regs.Release()
	for j := 0; j < n; j++ {
		rec, err := translate(regs.At(j), part, q)
		if err != nil {
			c.logger.LogSkippedRecord(context.Background(), q.Name, partIndex, err)
			continue
		}
		records = append(records, rec)
	}
	return records
}
