package mm2

import (
	"testing"

	"github.com/scttfrdmn/mm2go/pkg/engine"
	"github.com/scttfrdmn/mm2go/pkg/engine/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetClassification(t *testing.T) {
	tests := []struct {
		preset Preset
		rna    bool
		dna    bool
	}{
		{MapONT, false, true},
		{MapPB, false, true},
		{MapIClr, false, true},
		{Splice, true, false},
		{Preset("sr"), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			assert.Equal(t, tt.rna, tt.preset.IsRNA())
			assert.Equal(t, tt.dna, tt.preset.IsDNA())
		})
	}
}

func TestOptionsBuilders(t *testing.T) {
	base := NewOptions("/data/ref.mmi")
	assert.True(t, base.SAMOutput)
	assert.False(t, base.ForwardOnly)
	assert.Empty(t, base.Preset)

	o := base.WithPreset(Splice).WithForwardOnly(true).WithExtraParams([]string{"-k15"})
	assert.Equal(t, Splice, o.Preset)
	assert.True(t, o.ForwardOnly)
	assert.Empty(t, base.ExtraParams, "builders must not modify the receiver")

	threaded := o.WithThreads(8)
	assert.Equal(t, []string{"-k15", "--threads=8"}, threaded.ExtraParams)
	assert.Equal(t, []string{"-k15"}, o.ExtraParams)
	assert.Equal(t, 8, threaded.Threads())
	assert.Equal(t, 4, threaded.WithThreads(4).Threads())
	assert.Equal(t, 0, o.Threads())
}

func TestResolveParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		eng := enginetest.New()
		p, err := resolveParams(eng, Options{Reference: "x"})
		require.NoError(t, err)
		defer p.release()

		mp := p.mapp.(*enginetest.MapParams)
		assert.True(t, mp.Initialized)
		assert.Empty(t, mp.Preset)
		assert.Equal(t, engine.Flag(0), mp.Flags())
		assert.EqualValues(t, 1, eng.Stats().SetOptCalls)
	})

	t.Run("preset and flags", func(t *testing.T) {
		eng := enginetest.New()
		opts := NewOptions("x").WithPreset(MapONT).WithForwardOnly(true)
		p, err := resolveParams(eng, opts)
		require.NoError(t, err)
		defer p.release()

		assert.Equal(t, "map-ont", p.index.(*enginetest.IndexParams).Preset)
		assert.Equal(t, "map-ont", p.mapp.(*enginetest.MapParams).Preset)
		assert.Equal(t, engine.FlagCIGAR|engine.FlagForwardOnly, p.mapp.Flags())
		assert.EqualValues(t, 2, eng.Stats().SetOptCalls)
	})

	t.Run("unknown preset frees both blocks", func(t *testing.T) {
		eng := enginetest.New()
		_, err := resolveParams(eng, NewOptions("x").WithPreset("map-nope"))
		require.ErrorIs(t, err, ErrUnknownPreset)

		s := eng.Stats()
		assert.Equal(t, s.IndexParamsAlloc, s.IndexParamsFreed)
		assert.Equal(t, s.MapParamsAllocated, s.MapParamsFreed)
	})

	t.Run("allocation failure", func(t *testing.T) {
		eng := enginetest.New()
		eng.FailMapParams = true
		_, err := resolveParams(eng, NewOptions("x"))
		require.ErrorIs(t, err, ErrOutOfMemory)
		assert.EqualValues(t, 1, eng.Stats().IndexParamsFreed)
	})

	t.Run("fresh blocks every call", func(t *testing.T) {
		eng := enginetest.New()
		p1, err := resolveParams(eng, NewOptions("x").WithPreset(Splice))
		require.NoError(t, err)
		defer p1.release()
		p2, err := resolveParams(eng, NewOptions("x"))
		require.NoError(t, err)
		defer p2.release()

		assert.Equal(t, "splice", p1.mapp.(*enginetest.MapParams).Preset)
		assert.Empty(t, p2.mapp.(*enginetest.MapParams).Preset)
	})
}

func TestApplyFlagsIdempotent(t *testing.T) {
	eng := enginetest.New()
	mp, err := eng.NewMapParams()
	require.NoError(t, err)
	defer mp.Free()

	applyFlags(mp, engine.FlagCIGAR)
	applyFlags(mp, engine.FlagForwardOnly)
	applyFlags(mp, engine.FlagCIGAR)
	assert.Equal(t, engine.FlagCIGAR|engine.FlagForwardOnly, mp.Flags())
}
