package mm2

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/mm2go/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCigar(t *testing.T) {
	tests := []struct {
		name   string
		packed uint32
		want   sam.CigarOp
	}{
		{"match", 10<<4 | 0, sam.NewCigarOp(sam.CigarMatch, 10)},
		{"insertion", 3<<4 | 1, sam.NewCigarOp(sam.CigarInsertion, 3)},
		{"deletion", 2<<4 | 2, sam.NewCigarOp(sam.CigarDeletion, 2)},
		{"skip", 500<<4 | 3, sam.NewCigarOp(sam.CigarSkipped, 500)},
		{"soft clip", 4<<4 | 4, sam.NewCigarOp(sam.CigarSoftClipped, 4)},
		{"hard clip", 7<<4 | 5, sam.NewCigarOp(sam.CigarHardClipped, 7)},
		{"padding falls back to match", 6<<4 | 6, sam.NewCigarOp(sam.CigarMatch, 6)},
		{"sequence match", 20<<4 | 7, sam.NewCigarOp(sam.CigarEqual, 20)},
		{"sequence mismatch", 1<<4 | 8, sam.NewCigarOp(sam.CigarMismatch, 1)},
		{"back falls back to match", 9<<4 | 9, sam.NewCigarOp(sam.CigarMatch, 9)},
		{"unused opcode falls back to match", 5<<4 | 15, sam.NewCigarOp(sam.CigarMatch, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeCigar([]uint32{tt.packed})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}

	cigar := decodeCigar([]uint32{4<<4 | 4, 46<<4 | 0})
	assert.Equal(t, "4S46M", cigar.String())
}

func singleRefPart(length int) *indexPart {
	return &indexPart{globalID: []int{0}, lens: []int{length}}
}

func TestTranslateFullMatch(t *testing.T) {
	reg := engine.Register{
		RefID:    0,
		QueryEnd: 50,
		RefStart: 0,
		RefEnd:   50,
		MapQ:     60,
		Extra:    &engine.Extra{Cigar: []uint32{50 << 4}},
	}
	q := Query{Name: "read1", Seq: []byte("ACGT")}

	rec, err := translate(reg, singleRefPart(248_000_000), q)
	require.NoError(t, err)

	assert.Equal(t, "read1", rec.Name)
	assert.Equal(t, q.Seq, rec.Seq)
	assert.Equal(t, 0, rec.RefID)
	assert.Equal(t, 1, rec.Pos)
	assert.EqualValues(t, 60, rec.MapQ)
	assert.False(t, rec.Reverse())
	assert.Equal(t, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)}, rec.Cigar)
}

func TestTranslate(t *testing.T) {
	part := &indexPart{globalID: []int{3, -1}, lens: []int{1000, 0}}

	tests := []struct {
		name     string
		reg      engine.Register
		wantRef  int
		wantPos  int
		wantMapQ uint8
		wantRev  bool
		noCigar  bool
		wantErr  error
	}{
		{name: "remapped id", reg: engine.Register{RefID: 0, RefStart: 99, MapQ: 30}, wantRef: 3, wantPos: 100, wantMapQ: 30, noCigar: true},
		{name: "reverse", reg: engine.Register{RefID: 0, RefStart: 0, Rev: 1}, wantRef: 3, wantPos: 1, wantRev: true, noCigar: true},
		{name: "rev any non-zero", reg: engine.Register{RefID: 0, Rev: 7}, wantRef: 3, wantPos: 1, wantRev: true, noCigar: true},
		{name: "negative rid", reg: engine.Register{RefID: -1, RefStart: -1}, wantRef: -1, wantPos: 0, noCigar: true},
		{name: "rid out of bounds", reg: engine.Register{RefID: 5, RefStart: 10}, wantRef: -1, wantPos: 11, noCigar: true},
		{name: "rid not in dictionary", reg: engine.Register{RefID: 1, RefStart: 4}, wantRef: -1, wantPos: 5, noCigar: true},
		{name: "negative start", reg: engine.Register{RefID: 0, RefStart: -1}, wantRef: 3, wantPos: 0, noCigar: true},
		{name: "mapq truncated", reg: engine.Register{RefID: 0, MapQ: 256 + 7}, wantRef: 3, wantPos: 1, wantMapQ: 7, noCigar: true},
		{name: "mapq unavailable", reg: engine.Register{RefID: 0, MapQ: 255}, wantErr: errMapQUnavailable},
		{name: "start past reference end", reg: engine.Register{RefID: 0, RefStart: 1000}, wantErr: errPosition},
		{name: "empty detail", reg: engine.Register{RefID: 0, Extra: &engine.Extra{}}, wantRef: 3, wantPos: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := translate(tt.reg, part, Query{Name: "q"})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRef, rec.RefID)
			assert.Equal(t, tt.wantPos, rec.Pos)
			assert.Equal(t, tt.wantMapQ, rec.MapQ)
			assert.Equal(t, tt.wantRev, rec.Reverse())
			assert.Equal(t, tt.wantRef >= 0, rec.Mapped())
			if tt.noCigar {
				assert.Nil(t, rec.Cigar)
			} else {
				assert.NotNil(t, rec.Cigar)
				assert.Empty(t, rec.Cigar)
			}
		})
	}
}
