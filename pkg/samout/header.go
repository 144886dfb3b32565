package samout

import (
	"fmt"

	"github.com/biogo/hts/sam"
)

// Program describes the program that produced the alignments.
type Program struct {
	ID          string
	Name        string
	Version     string
	CommandLine string
}

// outputHeader returns a copy of header marked unsorted, with p appended
// as an @PG line when set.
func outputHeader(header *sam.Header, p *Program) (*sam.Header, error) {
	if header == nil {
		return nil, fmt.Errorf("missing header")
	}
	h := header.Clone()
	h.Version = "1.6"
	h.SortOrder = sam.Unsorted

	if p != nil {
		id := p.ID
		if id == "" {
			id = p.Name
		}
		if err := h.AddProgram(sam.NewProgram(id, p.Name, p.CommandLine, "", p.Version)); err != nil {
			return nil, fmt.Errorf("failed to add program %q: %w", id, err)
		}
	}
	return h, nil
}
