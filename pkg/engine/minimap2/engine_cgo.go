//go:build minimap2 && cgo

package minimap2

/*
#cgo LDFLAGS: -lminimap2 -lz -lm -lpthread
#include <stdlib.h>
#include <string.h>
#include <minimap.h>

typedef struct {
	int32_t rid, qs, qe, rs, re;
	uint32_t mapq, rev;
	int32_t has_extra;
	uint32_t n_cigar;
	const uint32_t *cigar;
} mm2go_reg_t;

// cgo cannot address bitfields or flexible array members.
static void mm2go_reg_at(const mm_reg1_t *regs, int i, mm2go_reg_t *out) {
	const mm_reg1_t *r = &regs[i];
	out->rid = r->rid;
	out->qs = r->qs;
	out->qe = r->qe;
	out->rs = r->rs;
	out->re = r->re;
	out->mapq = r->mapq;
	out->rev = r->rev;
	out->has_extra = r->p != 0;
	out->n_cigar = r->p ? r->p->n_cigar : 0;
	out->cigar = r->p ? r->p->cigar : 0;
}

static void mm2go_free_regs(mm_reg1_t *regs, int n) {
	int i;
	for (i = 0; i < n; ++i) free(regs[i].p);
	free(regs);
}

static mm_idxopt_t *mm2go_idxopt_new(void) { return (mm_idxopt_t*)calloc(1, sizeof(mm_idxopt_t)); }
static mm_mapopt_t *mm2go_mapopt_new(void) { return (mm_mapopt_t*)calloc(1, sizeof(mm_mapopt_t)); }
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/scttfrdmn/mm2go/pkg/engine"
)

// Engine is the libminimap2-backed engine. It holds no state of its own.
type Engine struct{}

// New returns the libminimap2 engine.
func New() (engine.Engine, error) {
	return Engine{}, nil
}

type idxOpt struct{ p *C.mm_idxopt_t }

func (o *idxOpt) Free() {
	if o.p != nil {
		C.free(unsafe.Pointer(o.p))
		o.p = nil
	}
}

type mapOpt struct{ p *C.mm_mapopt_t }

func (o *mapOpt) Flags() engine.Flag { return engine.Flag(o.p.flag) }

func (o *mapOpt) SetFlags(f engine.Flag) { o.p.flag = C.int64_t(f) }

func (o *mapOpt) Free() {
	if o.p != nil {
		C.free(unsafe.Pointer(o.p))
		o.p = nil
	}
}

type part struct{ p *C.mm_idx_t }

func (p *part) Sequences() []engine.Sequence {
	if p.p == nil || p.p.seq == nil {
		return nil
	}
	raw := unsafe.Slice(p.p.seq, int(p.p.n_seq))
	seqs := make([]engine.Sequence, len(raw))
	for i, s := range raw {
		if s.name != nil {
			seqs[i].Name = C.GoString(s.name)
		}
		seqs[i].Len = uint32(s.len)
	}
	return seqs
}

func (p *part) Destroy() {
	if p.p != nil {
		C.mm_idx_destroy(p.p)
		p.p = nil
	}
}

type reader struct{ r *C.mm_idx_reader_t }

func (r *reader) Read(threads int) engine.Part {
	mi := C.mm_idx_reader_read(r.r, C.int(threads))
	if mi == nil {
		return nil
	}
	return &part{p: mi}
}

func (r *reader) Close() {
	if r.r != nil {
		C.mm_idx_reader_close(r.r)
		r.r = nil
	}
}

type tbuf struct{ b *C.mm_tbuf_t }

func (b *tbuf) Destroy() {
	if b.b != nil {
		C.mm_tbuf_destroy(b.b)
		b.b = nil
	}
}

type regs struct {
	p *C.mm_reg1_t
	n int
}

func (r *regs) At(i int) engine.Register {
	var out C.mm2go_reg_t
	C.mm2go_reg_at(r.p, C.int(i), &out)
	reg := engine.Register{
		RefID:      int32(out.rid),
		QueryStart: int32(out.qs),
		QueryEnd:   int32(out.qe),
		RefStart:   int32(out.rs),
		RefEnd:     int32(out.re),
		MapQ:       uint32(out.mapq),
		Rev:        uint32(out.rev),
	}
	if out.has_extra != 0 {
		cigar := make([]uint32, int(out.n_cigar))
		if len(cigar) > 0 {
			copy(cigar, unsafe.Slice((*uint32)(unsafe.Pointer(out.cigar)), len(cigar)))
		}
		reg.Extra = &engine.Extra{Cigar: cigar}
	}
	return reg
}

func (r *regs) Release() {
	if r.p != nil {
		C.mm2go_free_regs(r.p, C.int(r.n))
		r.p = nil
	}
}

var errAlloc = errors.New("minimap2: allocation failed")

func (Engine) NewIndexParams() (engine.IndexParams, error) {
	p := C.mm2go_idxopt_new()
	if p == nil {
		return nil, errAlloc
	}
	return &idxOpt{p: p}, nil
}

func (Engine) NewMapParams() (engine.MapParams, error) {
	p := C.mm2go_mapopt_new()
	if p == nil {
		return nil, errAlloc
	}
	return &mapOpt{p: p}, nil
}

func (Engine) InitMapParams(mp engine.MapParams) {
	C.mm_mapopt_init(mp.(*mapOpt).p)
}

func (Engine) SetOpt(preset string, ip engine.IndexParams, mp engine.MapParams) int {
	var cp *C.char
	if preset != "" {
		cp = C.CString(preset)
		defer C.free(unsafe.Pointer(cp))
	}
	return int(C.mm_set_opt(cp, ip.(*idxOpt).p, mp.(*mapOpt).p))
}

func (Engine) UpdateMapParams(mp engine.MapParams, p engine.Part) {
	C.mm_mapopt_update(mp.(*mapOpt).p, p.(*part).p)
}

func (Engine) OpenReader(path string, ip engine.IndexParams) engine.Reader {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	r := C.mm_idx_reader_open(cpath, ip.(*idxOpt).p, nil)
	if r == nil {
		return nil
	}
	return &reader{r: r}
}

func (Engine) NewBuffer() engine.Buffer {
	b := C.mm_tbuf_init()
	if b == nil {
		return nil
	}
	return &tbuf{b: b}
}

func (Engine) Map(p engine.Part, seq []byte, name string, buf engine.Buffer, mp engine.MapParams) (int, engine.Registers) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var seqPtr *C.char
	if len(seq) > 0 {
		seqPtr = (*C.char)(unsafe.Pointer(&seq[0]))
	}
	var n C.int
	r := C.mm_map(p.(*part).p, C.int(len(seq)), seqPtr, &n, buf.(*tbuf).b, mp.(*mapOpt).p, cname)
	if r == nil {
		return int(n), nil
	}
	return int(n), &regs{p: r, n: int(n)}
}
