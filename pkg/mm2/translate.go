package mm2

import (
	"errors"
	"fmt"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/mm2go/pkg/engine"
)

// unavailableMapQ is the SAM value meaning "mapping quality not available".
const unavailableMapQ = 255

var (
	errMapQUnavailable = errors.New("mapping quality unavailable")
	errPosition        = errors.New("start position beyond reference end")
)

// translate converts one register produced from part into a Record for q.
func translate(reg engine.Register, part *indexPart, q Query) (Record, error) {
	rec := Record{
		Name:  q.Name,
		Seq:   q.Seq,
		RefID: -1,
	}

	refLen := 0
	if reg.RefID >= 0 && int(reg.RefID) < len(part.globalID) {
		rec.RefID = part.globalID[reg.RefID]
		refLen = part.lens[reg.RefID]
	}

	if reg.RefStart >= 0 {
		if rec.RefID >= 0 && int(reg.RefStart) >= refLen {
			return Record{}, fmt.Errorf("%w: %d >= %d", errPosition, reg.RefStart, refLen)
		}
		rec.Pos = int(reg.RefStart) + 1
	}

	rec.MapQ = uint8(reg.MapQ)
	if rec.MapQ == unavailableMapQ {
		return Record{}, errMapQUnavailable
	}

	if reg.Rev != 0 {
		rec.Flags |= sam.Reverse
	}

	if reg.Extra != nil {
		rec.Cigar = decodeCigar(reg.Extra.Cigar)
	}
	return rec, nil
}

// cigarTypes maps engine opcodes to CIGAR operation types. Opcode 6
// (padding) and anything out of range fall back to a match.
var cigarTypes = [...]sam.CigarOpType{
	0: sam.CigarMatch,
	1: sam.CigarInsertion,
	2: sam.CigarDeletion,
	3: sam.CigarSkipped,
	4: sam.CigarSoftClipped,
	5: sam.CigarHardClipped,
	6: sam.CigarMatch,
	7: sam.CigarEqual,
	8: sam.CigarMismatch,
}

// decodeCigar unpacks (length << 4) | opcode values.
func decodeCigar(packed []uint32) sam.Cigar {
	cigar := make(sam.Cigar, len(packed))
	for i, v := range packed {
		t := sam.CigarMatch
		if op := v & 0xf; int(op) < len(cigarTypes) {
			t = cigarTypes[op]
		}
		cigar[i] = sam.NewCigarOp(t, int(v>>4))
	}
	return cigar
}
