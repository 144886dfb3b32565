package enginetest

import (
	"testing"

	"github.com/scttfrdmn/mm2go/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactHits(t *testing.T) {
	refs := []Ref{
		{Name: "a", Len: 12, Seq: []byte("AACCGGTTAACC")},
		{Name: "b", Len: 4},
	}

	hits := exactHits(refs, []byte("AACC"), engine.FlagCIGAR|engine.FlagForwardOnly)
	require.Len(t, hits, 2)
	assert.Equal(t, int32(0), hits[0].RefStart)
	assert.Equal(t, int32(8), hits[1].RefStart)
	assert.Equal(t, []uint32{4 << 4}, hits[0].Extra.Cigar)

	// The reverse complement of GGTT is AACC.
	hits = exactHits(refs, []byte("GGTT"), 0)
	require.Len(t, hits, 3)
	assert.Equal(t, uint32(0), hits[0].Rev)
	assert.Equal(t, uint32(1), hits[1].Rev)
	assert.Nil(t, hits[0].Extra)

	hits = exactHits(refs, []byte("GGTT"), engine.FlagForwardOnly)
	assert.Len(t, hits, 1)
}

func TestEngineLifecycle(t *testing.T) {
	e := New([]Ref{{Name: "a", Len: 4, Seq: []byte("ACGT")}}, []Ref{{Name: "b", Len: 4}})

	ip, err := e.NewIndexParams()
	require.NoError(t, err)
	mp, err := e.NewMapParams()
	require.NoError(t, err)
	assert.Equal(t, 0, e.SetOpt("", ip, mp))
	assert.Equal(t, 0, e.SetOpt("map-ont", ip, mp))
	assert.Equal(t, -1, e.SetOpt("bogus", ip, mp))

	r := e.OpenReader("ref.fa", ip)
	require.NotNil(t, r)
	p0, p1 := r.Read(4), r.Read(4)
	require.NotNil(t, p0)
	require.NotNil(t, p1)
	assert.Nil(t, r.Read(4))
	r.Close()

	buf := e.NewBuffer()
	n, regs := e.Map(p0, []byte("CG"), "q", buf, mp)
	assert.Equal(t, 1, n)
	require.NotNil(t, regs)
	regs.Release()
	regs.Release()

	p0.Destroy()
	p0.Destroy()
	p1.Destroy()
	buf.Destroy()
	ip.Free()
	mp.Free()

	s := e.Stats()
	assert.EqualValues(t, 2, s.PartsRead)
	assert.EqualValues(t, 2, s.PartsDestroyed)
	assert.EqualValues(t, 1, s.DoubleDestroy)
	assert.EqualValues(t, 1, s.RegistersReleased)
	assert.EqualValues(t, 1, s.BuffersDestroyed)
	assert.EqualValues(t, 1, s.IndexParamsFreed)
	assert.EqualValues(t, 1, s.MapParamsFreed)
	assert.Zero(t, s.ConcurrentBufferUse)
}
