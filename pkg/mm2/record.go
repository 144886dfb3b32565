package mm2

import "github.com/biogo/hts/sam"

// Query is one decoded read to align.
type Query struct {
	Name string
	Seq  []byte
}

// Record is one normalized alignment of a query.
type Record struct {
	Name string
	// Seq is the query sequence. Records of the same query share it.
	Seq []byte
	// RefID indexes the reference dictionary; -1 when unmapped.
	RefID int
	// Pos is the 1-based leftmost reference position; 0 when absent.
	Pos  int
	MapQ uint8
	// Flags carries sam.Reverse for reverse-strand hits.
	Flags sam.Flags
	// Cigar is nil when the engine produced no alignment detail.
	Cigar sam.Cigar
}

// Mapped reports whether the record carries a reference id.
func (r *Record) Mapped() bool { return r.RefID >= 0 }

// Reverse reports whether the query aligned to the reverse strand.
func (r *Record) Reverse() bool { return r.Flags&sam.Reverse != 0 }

// RefName returns the reference name of the record in idx, or "*".
func (r *Record) RefName(idx *Index) string { return idx.RefName(r.RefID) }
