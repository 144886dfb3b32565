// Package enginetest provides an in-memory implementation of the engine
// contract for tests. It keeps counters for every allocation and release so
// tests can check handle lifetimes, and it detects concurrent use of a
// working buffer.
package enginetest

import (
	"bytes"
	"errors"
	"sync/atomic"

	"github.com/scttfrdmn/mm2go/pkg/engine"
)

// Ref is a reference sequence in a fake index part. Seq may be nil, in
// which case only the declared Len is reported and the default mapper
// never hits it.
type Ref struct {
	Name string
	Len  uint32
	Seq  []byte
}

// Hit is a scripted register returned by a MapFunc.
type Hit = engine.Register

// MapFunc replaces the default exact-match mapper. partIndex is the
// position of the part in read order.
type MapFunc func(partIndex int, seq []byte, name string, flags engine.Flag) []Hit

// Presets known to the fake engine.
var Presets = []string{"map-ont", "map-pb", "map-iclr", "map-hifi", "splice", "sr", "asm5", "asm20"}

// Engine is an in-memory engine.
type Engine struct {
	// Parts holds the reference sequences of each index part.
	Parts [][]Ref
	// MapFunc, when set, produces the hits of every mapping call.
	MapFunc MapFunc

	// Failure injection.
	FailOpen        bool
	FailBuffer      bool
	FailMapParams   bool
	FailIndexParams bool
	// NullRegisters makes Map report hits without returning an array.
	NullRegisters bool

	stats counters
}

// New returns an engine serving the given parts.
func New(parts ...[]Ref) *Engine {
	return &Engine{Parts: parts}
}

type counters struct {
	openCalls           atomic.Int64
	partsRead           atomic.Int64
	partsDestroyed      atomic.Int64
	doubleDestroy       atomic.Int64
	readersClosed       atomic.Int64
	buffersCreated      atomic.Int64
	buffersDestroyed    atomic.Int64
	mapParamsAlloc      atomic.Int64
	mapParamsFreed      atomic.Int64
	indexParamsAlloc    atomic.Int64
	indexParamsFreed    atomic.Int64
	setOptCalls         atomic.Int64
	updateCalls         atomic.Int64
	mapCalls            atomic.Int64
	registersReleased   atomic.Int64
	concurrentBufferUse atomic.Int64
}

// Stats is a snapshot of the engine's counters.
type Stats struct {
	OpenCalls           int64
	PartsRead           int64
	PartsDestroyed      int64
	DoubleDestroy       int64
	ReadersClosed       int64
	BuffersCreated      int64
	BuffersDestroyed    int64
	MapParamsAllocated  int64
	MapParamsFreed      int64
	IndexParamsAlloc    int64
	IndexParamsFreed    int64
	SetOptCalls         int64
	UpdateCalls         int64
	MapCalls            int64
	RegistersReleased   int64
	ConcurrentBufferUse int64
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	c := &e.stats
	return Stats{
		OpenCalls:           c.openCalls.Load(),
		PartsRead:           c.partsRead.Load(),
		PartsDestroyed:      c.partsDestroyed.Load(),
		DoubleDestroy:       c.doubleDestroy.Load(),
		ReadersClosed:       c.readersClosed.Load(),
		BuffersCreated:      c.buffersCreated.Load(),
		BuffersDestroyed:    c.buffersDestroyed.Load(),
		MapParamsAllocated:  c.mapParamsAlloc.Load(),
		MapParamsFreed:      c.mapParamsFreed.Load(),
		IndexParamsAlloc:    c.indexParamsAlloc.Load(),
		IndexParamsFreed:    c.indexParamsFreed.Load(),
		SetOptCalls:         c.setOptCalls.Load(),
		UpdateCalls:         c.updateCalls.Load(),
		MapCalls:            c.mapCalls.Load(),
		RegistersReleased:   c.registersReleased.Load(),
		ConcurrentBufferUse: c.concurrentBufferUse.Load(),
	}
}

// IndexParams is the fake index-build block.
type IndexParams struct {
	Preset string
	freed  atomic.Bool
	e      *Engine
}

func (p *IndexParams) Free() {
	if p.freed.CompareAndSwap(false, true) {
		p.e.stats.indexParamsFreed.Add(1)
	}
}

// MapParams is the fake mapping block.
type MapParams struct {
	Preset      string
	Initialized bool
	// UpdatedFor is the read-order index of the last part passed to
	// UpdateMapParams, or -1.
	UpdatedFor int
	flags      engine.Flag
	freed      atomic.Bool
	e          *Engine
}

func (p *MapParams) Flags() engine.Flag { return p.flags }

func (p *MapParams) SetFlags(f engine.Flag) { p.flags = f }

func (p *MapParams) Free() {
	if p.freed.CompareAndSwap(false, true) {
		p.e.stats.mapParamsFreed.Add(1)
	}
}

// Part is a fake index part.
type Part struct {
	Index     int
	refs      []Ref
	destroyed atomic.Bool
	e         *Engine
}

func (p *Part) Sequences() []engine.Sequence {
	seqs := make([]engine.Sequence, len(p.refs))
	for i, r := range p.refs {
		seqs[i] = engine.Sequence{Name: r.Name, Len: r.Len}
	}
	return seqs
}

func (p *Part) Destroy() {
	if !p.destroyed.CompareAndSwap(false, true) {
		p.e.stats.doubleDestroy.Add(1)
		return
	}
	p.e.stats.partsDestroyed.Add(1)
}

// Destroyed reports whether Destroy was called.
func (p *Part) Destroyed() bool { return p.destroyed.Load() }

type reader struct {
	e    *Engine
	next int
}

func (r *reader) Read(int) engine.Part {
	if r.next >= len(r.e.Parts) {
		return nil
	}
	p := &Part{Index: r.next, refs: r.e.Parts[r.next], e: r.e}
	r.next++
	r.e.stats.partsRead.Add(1)
	return p
}

func (r *reader) Close() { r.e.stats.readersClosed.Add(1) }

// Buffer is a fake working buffer.
type Buffer struct {
	ID        int64
	inUse     atomic.Bool
	destroyed atomic.Bool
	e         *Engine
}

func (b *Buffer) Destroy() {
	if b.destroyed.CompareAndSwap(false, true) {
		b.e.stats.buffersDestroyed.Add(1)
	}
}

type registers struct {
	hits     []Hit
	released atomic.Bool
	e        *Engine
}

func (r *registers) At(i int) engine.Register { return r.hits[i] }

func (r *registers) Release() {
	if r.released.CompareAndSwap(false, true) {
		r.e.stats.registersReleased.Add(1)
	}
}

var errAlloc = errors.New("enginetest: allocation failed")

func (e *Engine) NewIndexParams() (engine.IndexParams, error) {
	if e.FailIndexParams {
		return nil, errAlloc
	}
	e.stats.indexParamsAlloc.Add(1)
	return &IndexParams{e: e}, nil
}

func (e *Engine) NewMapParams() (engine.MapParams, error) {
	if e.FailMapParams {
		return nil, errAlloc
	}
	e.stats.mapParamsAlloc.Add(1)
	return &MapParams{e: e, UpdatedFor: -1}, nil
}

func (e *Engine) InitMapParams(mp engine.MapParams) {
	m := mp.(*MapParams)
	m.Initialized = true
	m.flags = 0
}

func (e *Engine) SetOpt(preset string, ip engine.IndexParams, mp engine.MapParams) int {
	e.stats.setOptCalls.Add(1)
	i, m := ip.(*IndexParams), mp.(*MapParams)
	if preset == "" {
		i.Preset, m.Preset = "", ""
		m.Initialized = true
		m.flags = 0
		return 0
	}
	for _, p := range Presets {
		if p == preset {
			i.Preset, m.Preset = preset, preset
			return 0
		}
	}
	return -1
}

func (e *Engine) UpdateMapParams(mp engine.MapParams, part engine.Part) {
	e.stats.updateCalls.Add(1)
	mp.(*MapParams).UpdatedFor = part.(*Part).Index
}

func (e *Engine) OpenReader(string, engine.IndexParams) engine.Reader {
	e.stats.openCalls.Add(1)
	if e.FailOpen {
		return nil
	}
	return &reader{e: e}
}

func (e *Engine) NewBuffer() engine.Buffer {
	if e.FailBuffer {
		return nil
	}
	id := e.stats.buffersCreated.Add(1)
	return &Buffer{ID: id, e: e}
}

func (e *Engine) Map(part engine.Part, seq []byte, name string, buf engine.Buffer, mp engine.MapParams) (int, engine.Registers) {
	e.stats.mapCalls.Add(1)
	b := buf.(*Buffer)
	if !b.inUse.CompareAndSwap(false, true) {
		e.stats.concurrentBufferUse.Add(1)
	} else {
		defer b.inUse.Store(false)
	}

	p := part.(*Part)
	m := mp.(*MapParams)
	var hits []Hit
	if e.MapFunc != nil {
		hits = e.MapFunc(p.Index, seq, name, m.flags)
	} else {
		hits = exactHits(p.refs, seq, m.flags)
	}
	if len(hits) == 0 {
		return 0, nil
	}
	if e.NullRegisters {
		return len(hits), nil
	}
	return len(hits), &registers{hits: hits, e: e}
}

// exactHits reports every exact occurrence of seq, and of its reverse
// complement unless forward-only mapping was requested.
func exactHits(refs []Ref, seq []byte, flags engine.Flag) []Hit {
	if len(seq) == 0 {
		return nil
	}
	rc := make([]byte, len(seq))
	for i, b := range seq {
		rc[len(seq)-1-i] = complement(b)
	}

	var hits []Hit
	for rid, r := range refs {
		hits = appendOccurrences(hits, r.Seq, seq, int32(rid), 0, flags)
		if flags&engine.FlagForwardOnly == 0 && !bytes.Equal(rc, seq) {
			hits = appendOccurrences(hits, r.Seq, rc, int32(rid), 1, flags)
		}
	}
	return hits
}

func appendOccurrences(hits []Hit, ref, q []byte, rid int32, rev uint32, flags engine.Flag) []Hit {
	off := 0
	for {
		i := bytes.Index(ref[off:], q)
		if i < 0 {
			return hits
		}
		start := off + i
		h := Hit{
			RefID:    rid,
			QueryEnd: int32(len(q)),
			RefStart: int32(start),
			RefEnd:   int32(start + len(q)),
			MapQ:     60,
			Rev:      rev,
		}
		if flags&engine.FlagCIGAR != 0 {
			h.Extra = &engine.Extra{Cigar: []uint32{uint32(len(q)) << 4}}
		}
		hits = append(hits, h)
		off = start + 1
	}
}

func complement(b byte) byte {
	switch b {
	case 'A', 'a':
		return 'T'
	case 'C', 'c':
		return 'G'
	case 'G', 'g':
		return 'C'
	case 'T', 't':
		return 'A'
	}
	return 'N'
}
