package samout

import (
	"fmt"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/mm2go/pkg/mm2"
)

// Convert turns the records of one query into SAM records that reference
// header. A query without records becomes a single unmapped placeholder;
// every record after the first is flagged secondary.
func Convert(q mm2.Query, recs []mm2.Record, header *sam.Header) ([]*sam.Record, error) {
	if len(recs) == 0 {
		return []*sam.Record{unmappedRecord(q)}, nil
	}

	out := make([]*sam.Record, 0, len(recs))
	for i, rec := range recs {
		r, err := convertRecord(rec, header)
		if err != nil {
			return nil, fmt.Errorf("failed to convert record %d of %s: %w", i, q.Name, err)
		}
		if i > 0 {
			r.Flags |= sam.Secondary
		}
		out = append(out, r)
	}
	return out, nil
}

func convertRecord(rec mm2.Record, header *sam.Header) (*sam.Record, error) {
	record := &sam.Record{
		Name:    rec.Name,
		Flags:   rec.Flags,
		MapQ:    rec.MapQ,
		Cigar:   rec.Cigar,
		MateRef: nil,
		MatePos: -1,
	}

	refs := header.Refs()
	switch {
	case rec.RefID >= len(refs):
		return nil, fmt.Errorf("reference id %d not in header of %d references", rec.RefID, len(refs))
	case rec.RefID >= 0:
		record.Ref = refs[rec.RefID]
	default:
		record.Flags |= sam.Unmapped
	}
	record.Pos = rec.Pos - 1

	seq := rec.Seq
	if rec.Flags&sam.Reverse != 0 {
		seq = reverseComplement(seq)
	}
	setSeq(record, seq)
	return record, nil
}

func unmappedRecord(q mm2.Query) *sam.Record {
	record := &sam.Record{
		Name:    q.Name,
		Flags:   sam.Unmapped,
		Pos:     -1,
		MatePos: -1,
	}
	setSeq(record, q.Seq)
	return record
}

// setSeq stores seq with missing base qualities.
func setSeq(r *sam.Record, seq []byte) {
	r.Seq = sam.NewSeq(seq)
	r.Qual = make([]byte, len(seq))
	for i := range r.Qual {
		r.Qual[i] = 0xff
	}
}

func reverseComplement(seq []byte) []byte {
	rc := make([]byte, len(seq))
	for i, b := range seq {
		rc[len(seq)-1-i] = complement[b]
	}
	return rc
}

var complement = func() (t [256]byte) {
	for i := range t {
		t[i] = 'N'
	}
	for _, p := range []string{"AT", "CG", "GC", "TA", "at", "cg", "gc", "ta", "nn"} {
		t[p[0]] = p[1]
	}
	return t
}()
