package mm2

import (
	"sync"
	"testing"

	"github.com/scttfrdmn/mm2go/pkg/engine"
	"github.com/scttfrdmn/mm2go/pkg/engine/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestIndex(t *testing.T, eng *enginetest.Engine) *Index {
	t.Helper()
	idx, err := LoadIndex(eng, NewOptions(refFile(t)), nil)
	require.NoError(t, err)
	t.Cleanup(idx.Release)
	return idx
}

func TestNewContext(t *testing.T) {
	eng := enginetest.New()
	opts := NewOptions("x").WithPreset(Splice).WithForwardOnly(true)

	c, err := newContext(eng, opts, NoopLogger())
	require.NoError(t, err)

	mp := c.mapp.(*enginetest.MapParams)
	assert.Equal(t, "splice", mp.Preset)
	assert.Equal(t, engine.FlagCIGAR|engine.FlagForwardOnly, mp.Flags())

	s := eng.Stats()
	assert.EqualValues(t, 1, s.BuffersCreated)
	assert.Equal(t, s.IndexParamsAlloc, s.IndexParamsFreed, "index half of the preset is discarded")

	c.close()
	c.close()
	s = eng.Stats()
	assert.EqualValues(t, 1, s.BuffersDestroyed)
	assert.EqualValues(t, 1, s.MapParamsFreed)
}

func TestNewContextNoFlags(t *testing.T) {
	eng := enginetest.New()
	opts := Options{Reference: "x"}

	c, err := newContext(eng, opts, NoopLogger())
	require.NoError(t, err)
	defer c.close()

	mp := c.mapp.(*enginetest.MapParams)
	assert.True(t, mp.Initialized)
	assert.Equal(t, engine.Flag(0), mp.Flags())
	assert.Zero(t, eng.Stats().SetOptCalls, "no preset, no preset call")
}

func TestNewContextFailuresDoNotLeak(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*enginetest.Engine)
		preset  Preset
		wantErr error
	}{
		{"buffer", func(e *enginetest.Engine) { e.FailBuffer = true }, "", ErrOutOfMemory},
		{"mapping parameters", func(e *enginetest.Engine) { e.FailMapParams = true }, "", ErrOutOfMemory},
		{"index parameters", func(e *enginetest.Engine) { e.FailIndexParams = true }, MapPB, ErrOutOfMemory},
		{"unknown preset", func(*enginetest.Engine) {}, "nope", ErrUnknownPreset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := enginetest.New()
			tt.setup(eng)

			_, err := newContext(eng, NewOptions("x").WithPreset(tt.preset), NoopLogger())
			require.ErrorIs(t, err, tt.wantErr)

			s := eng.Stats()
			assert.Equal(t, s.BuffersCreated, s.BuffersDestroyed)
			assert.Equal(t, s.MapParamsAllocated, s.MapParamsFreed)
			assert.Equal(t, s.IndexParamsAlloc, s.IndexParamsFreed)
		})
	}
}

func TestAlignUpdatesParamsPerPart(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	eng := enginetest.New(
		[]enginetest.Ref{{Name: "chr1", Len: 100}},
		[]enginetest.Ref{{Name: "chr2", Len: 100}},
		[]enginetest.Ref{{Name: "chr3", Len: 100}},
	)
	eng.MapFunc = func(part int, _ []byte, _ string, _ engine.Flag) []enginetest.Hit {
		mu.Lock()
		seen = append(seen, part)
		mu.Unlock()
		return []enginetest.Hit{
			{RefID: 0, RefStart: int32(part), MapQ: 10},
			{RefID: 0, RefStart: int32(part + 10), MapQ: 20},
		}
	}
	idx := loadTestIndex(t, eng)

	c, err := newContext(eng, NewOptions("x"), NoopLogger())
	require.NoError(t, err)
	defer c.close()

	recs, err := c.align(idx, Query{Name: "q", Seq: []byte("ACGT")})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, 2, c.mapp.(*enginetest.MapParams).UpdatedFor)

	s := eng.Stats()
	assert.EqualValues(t, 3, s.UpdateCalls)
	assert.EqualValues(t, 3, s.MapCalls)
	assert.EqualValues(t, 3, s.RegistersReleased)

	require.Len(t, recs, 6)
	wantRefs := []int{0, 0, 1, 1, 2, 2}
	wantPos := []int{1, 11, 2, 12, 3, 13}
	for i, rec := range recs {
		assert.Equal(t, wantRefs[i], rec.RefID, "record %d", i)
		assert.Equal(t, wantPos[i], rec.Pos, "record %d", i)
	}
}

func TestAlignReusesQueryBuffer(t *testing.T) {
	eng := enginetest.New([]enginetest.Ref{{Name: "chr1", Len: 12, Seq: []byte("AAAACCCCGGGG")}})
	idx := loadTestIndex(t, eng)

	c, err := newContext(eng, NewOptions("x"), NoopLogger())
	require.NoError(t, err)
	defer c.close()

	_, err = c.align(idx, Query{Name: "a", Seq: []byte("CCCCGG")})
	require.NoError(t, err)
	buf := &c.seq[0]

	recs, err := c.align(idx, Query{Name: "b", Seq: []byte("AAAA")})
	require.NoError(t, err)
	assert.Same(t, buf, &c.seq[0])
	assert.Equal(t, []byte("AAAA"), c.seq)

	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].Pos)
}

func TestAlignInvalidEncoding(t *testing.T) {
	eng := enginetest.New([]enginetest.Ref{{Name: "chr1", Len: 100}})
	idx := loadTestIndex(t, eng)

	c, err := newContext(eng, NewOptions("x"), NoopLogger())
	require.NoError(t, err)
	defer c.close()

	for _, q := range []Query{
		{Name: "bad\x00name", Seq: []byte("ACGT")},
		{Name: "bad\xffutf8", Seq: []byte("ACGT")},
		{Name: "ok", Seq: []byte("AC\x00GT")},
	} {
		_, err := c.align(idx, q)
		assert.ErrorIs(t, err, ErrInvalidSequenceEncoding, "query %q", q.Name)
	}
	assert.Zero(t, eng.Stats().MapCalls)
}

func TestAlignContractViolation(t *testing.T) {
	eng := enginetest.New([]enginetest.Ref{{Name: "chr1", Len: 100}})
	eng.NullRegisters = true
	eng.MapFunc = func(int, []byte, string, engine.Flag) []enginetest.Hit {
		return []enginetest.Hit{{RefID: 0}}
	}
	idx := loadTestIndex(t, eng)

	c, err := newContext(eng, NewOptions("x"), NoopLogger())
	require.NoError(t, err)
	defer c.close()

	_, err = c.align(idx, Query{Name: "q", Seq: []byte("ACGT")})
	require.ErrorIs(t, err, ErrEngineContractViolation)
}

func TestAlignSkipsUntranslatableRegisters(t *testing.T) {
	eng := enginetest.New([]enginetest.Ref{{Name: "chr1", Len: 100}})
	eng.MapFunc = func(int, []byte, string, engine.Flag) []enginetest.Hit {
		return []enginetest.Hit{
			{RefID: 0, RefStart: 5, MapQ: 60},
			{RefID: 0, RefStart: 6, MapQ: 255},
			{RefID: 0, RefStart: 500, MapQ: 60},
			{RefID: 0, RefStart: 7, MapQ: 1},
		}
	}
	idx := loadTestIndex(t, eng)

	c, err := newContext(eng, NewOptions("x"), NoopLogger())
	require.NoError(t, err)
	defer c.close()

	recs, err := c.align(idx, Query{Name: "q", Seq: []byte("ACGT")})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 6, recs[0].Pos)
	assert.Equal(t, 8, recs[1].Pos)
	assert.EqualValues(t, 1, eng.Stats().RegistersReleased)
}

func TestAlignNoHits(t *testing.T) {
	eng := enginetest.New([]enginetest.Ref{{Name: "chr1", Len: 8, Seq: []byte("AAAAAAAA")}})
	idx := loadTestIndex(t, eng)

	c, err := newContext(eng, NewOptions("x"), NoopLogger())
	require.NoError(t, err)
	defer c.close()

	recs, err := c.align(idx, Query{Name: "q", Seq: []byte("GCGC")})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, eng.Stats().RegistersReleased)
}
