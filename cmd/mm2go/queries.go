package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/scttfrdmn/mm2go/pkg/mm2"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

func init() {
	// Reads may contain IUPAC codes or lowercase masking; the engine
	// handles them.
	seq.ValidateSeq = false
}

// fastxSource reads queries from FASTA/FASTQ files in order and remembers
// them until popped, so results can be paired with their query.
type fastxSource struct {
	files  []string
	reader *fastx.Reader
	file   string

	pending []mm2.Query
	head    int
}

func newFastxSource(files []string) *fastxSource {
	return &fastxSource{files: files}
}

func (s *fastxSource) Next() (mm2.Query, error) {
	for {
		if s.reader == nil {
			if len(s.files) == 0 {
				return mm2.Query{}, io.EOF
			}
			s.file, s.files = s.files[0], s.files[1:]
			r, err := fastx.NewReader(nil, s.file, "")
			if err != nil {
				return mm2.Query{}, fmt.Errorf("failed to open %s: %w", s.file, err)
			}
			s.reader = r
		}

		record, err := s.reader.Read()
		if errors.Is(err, io.EOF) {
			s.reader.Close()
			s.reader = nil
			continue
		}
		if err != nil {
			return mm2.Query{}, fmt.Errorf("%s: %w", s.file, err)
		}

		// The reader reuses record between calls.
		q := mm2.Query{
			Name: string(record.ID),
			Seq:  append([]byte(nil), record.Seq.Seq...),
		}
		s.push(q)
		return q, nil
	}
}

func (s *fastxSource) push(q mm2.Query) {
	if s.head == len(s.pending) {
		s.pending, s.head = s.pending[:0], 0
	}
	s.pending = append(s.pending, q)
}

// pop returns the oldest query not yet popped.
func (s *fastxSource) pop() (mm2.Query, bool) {
	if s.head == len(s.pending) {
		return mm2.Query{}, false
	}
	q := s.pending[s.head]
	s.pending[s.head] = mm2.Query{}
	s.head++
	return q, true
}

func (s *fastxSource) close() {
	if s.reader != nil {
		s.reader.Close()
		s.reader = nil
	}
}
