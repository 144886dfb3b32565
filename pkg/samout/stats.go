package samout

import "github.com/biogo/hts/sam"

// Statistics summarizes what a Writer has written.
type Statistics struct {
	Queries        int64 `json:"queries"`
	Records        int64 `json:"records"`
	MappedQueries  int64 `json:"mapped_queries"`
	UnmappedReads  int64 `json:"unmapped_reads"`
	SecondaryReads int64 `json:"secondary_reads"`
	TotalBases     int64 `json:"total_bases"`
}

// addQuery accounts for the converted records of one query.
func (s *Statistics) addQuery(recs []*sam.Record) {
	s.Queries++
	if len(recs) == 0 {
		return
	}
	s.TotalBases += int64(recs[0].Seq.Length)
	if recs[0].Flags&sam.Unmapped != 0 {
		s.UnmappedReads++
	} else {
		s.MappedQueries++
	}
	for _, r := range recs {
		s.Records++
		if r.Flags&sam.Secondary != 0 {
			s.SecondaryReads++
		}
	}
}

// MappedFraction returns the fraction of queries with at least one hit.
func (s Statistics) MappedFraction() float64 {
	if s.Queries == 0 {
		return 0
	}
	return float64(s.MappedQueries) / float64(s.Queries)
}
