package mm2

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/mm2go/pkg/engine"
)

// readThreads is the concurrency hint passed to the engine while reading
// index parts.
const readThreads = 4

// Reference is one entry of the reference dictionary.
type Reference struct {
	Name string
	Len  int
}

// indexPart exclusively owns one engine index part.
type indexPart struct {
	part engine.Part
	// globalID maps the part's local reference ids to dictionary ids;
	// -1 marks entries that are not in the dictionary.
	globalID []int
	// lens holds the dictionary length of each local id.
	lens []int
}

func (p *indexPart) destroy() {
	if p.part != nil {
		p.part.Destroy()
		p.part = nil
	}
}

// Index is a loaded, possibly multi-part reference index. It is immutable
// and safe for concurrent readers. The parts are destroyed when the last
// holder releases it.
type Index struct {
	parts  []*indexPart
	refs   []Reference
	byName map[string]int

	headerOnce sync.Once
	header     *sam.Header
	headerErr  error

	holders atomic.Int64
	destroy sync.Once
}

// LoadIndex opens opts.Reference through eng and reads every index part.
// The returned Index is held once; call Release when done with it.
func LoadIndex(eng engine.Engine, opts Options, logger *Logger) (*Index, error) {
	if logger == nil {
		logger = NoopLogger()
	}
	idx, err := loadIndex(eng, opts)
	if err != nil {
		logger.LogIndexLoaded(context.Background(), opts.Reference, 0, 0, err)
		return nil, err
	}
	logger.LogIndexLoaded(context.Background(), opts.Reference, len(idx.parts), len(idx.refs), nil)
	return idx, nil
}

func loadIndex(eng engine.Engine, opts Options) (*Index, error) {
	path := opts.Reference
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat reference %s: %w", path, err)
	}

	p, err := resolveParams(eng, opts)
	if err != nil {
		return nil, err
	}
	defer p.release()

	r := eng.OpenReader(path, p.index)
	if r == nil {
		return nil, fmt.Errorf("%w: failed to open file: %s", ErrIndexOpenFailure, path)
	}

	var parts []*indexPart
	for {
		part := r.Read(readThreads)
		if part == nil {
			break
		}
		parts = append(parts, &indexPart{part: part})
	}
	r.Close()

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: failed to read/build index from: %s", ErrIndexOpenFailure, path)
	}

	return newIndex(parts), nil
}

// newIndex takes ownership of parts and derives the reference dictionary.
func newIndex(parts []*indexPart) *Index {
	seqs := make([][]engine.Sequence, len(parts))
	for i, p := range parts {
		seqs[i] = p.part.Sequences()
	}

	refs := buildDictionary(seqs)
	byName := make(map[string]int, len(refs))
	for i, ref := range refs {
		byName[ref.Name] = i
	}

	for i, p := range parts {
		p.globalID = make([]int, len(seqs[i]))
		p.lens = make([]int, len(seqs[i]))
		for local, s := range seqs[i] {
			id, ok := byName[s.Name]
			if !ok || s.Len == 0 {
				p.globalID[local] = -1
				continue
			}
			p.globalID[local] = id
			p.lens[local] = refs[id].Len
		}
	}

	idx := &Index{
		parts:  parts,
		refs:   refs,
		byName: byName,
	}
	idx.holders.Store(1)
	return idx
}

// newHeader builds the SAM header for refs. SAM caps reference lengths at
// 2^31-1, so a dictionary the engine accepts can still be unrepresentable.
func newHeader(refs []Reference) (*sam.Header, error) {
	samRefs := make([]*sam.Reference, len(refs))
	for i, ref := range refs {
		sr, err := sam.NewReference(ref.Name, "", "", ref.Len, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid reference %q: %w", ref.Name, err)
		}
		samRefs[i] = sr
	}
	header, err := sam.NewHeader(nil, samRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to build header: %w", err)
	}
	return header, nil
}

// buildDictionary merges the sequences of every part into a name-sorted
// dictionary. Unnamed and empty sequences are dropped; on a name collision
// the longer length wins and ties keep the first seen.
func buildDictionary(parts [][]engine.Sequence) []Reference {
	lens := make(map[string]int)
	for _, seqs := range parts {
		for _, s := range seqs {
			if s.Name == "" || s.Len == 0 {
				continue
			}
			if n, ok := lens[s.Name]; !ok || int(s.Len) > n {
				lens[s.Name] = int(s.Len)
			}
		}
	}
	refs := make([]Reference, 0, len(lens))
	for name, n := range lens {
		refs = append(refs, Reference{Name: name, Len: n})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs
}

// Refs returns a copy of the reference dictionary, ordered by name.
func (idx *Index) Refs() []Reference {
	return append([]Reference(nil), idx.refs...)
}

// Header returns the SAM header describing the dictionary. It is built on
// first use, shared and must not be modified. It fails when a reference is
// too long for SAM.
func (idx *Index) Header() (*sam.Header, error) {
	idx.headerOnce.Do(func() {
		idx.header, idx.headerErr = newHeader(idx.refs)
	})
	return idx.header, idx.headerErr
}

// NumParts returns the number of index parts.
func (idx *Index) NumParts() int { return len(idx.parts) }

// RefName returns the name of dictionary entry id, or "*" when id is not a
// valid reference id.
func (idx *Index) RefName(id int) string {
	if id < 0 || id >= len(idx.refs) {
		return "*"
	}
	return idx.refs[id].Name
}

// RefID returns the dictionary id of name.
func (idx *Index) RefID(name string) (int, bool) {
	id, ok := idx.byName[name]
	return id, ok
}

// retain adds a holder.
func (idx *Index) retain() *Index {
	idx.holders.Add(1)
	return idx
}

// Release drops one holder. The last release destroys every part.
func (idx *Index) Release() {
	if idx.holders.Add(-1) > 0 {
		return
	}
	idx.destroy.Do(func() {
		for _, p := range idx.parts {
			p.destroy()
		}
	})
}
