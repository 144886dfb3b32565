// Package engine defines the call contract between mm2go and the native
// alignment engine. Implementations own every handle they return; callers
// release each handle exactly once through the method on that handle.
package engine

// Flag is a bit in the engine's mapping-parameter flag word.
type Flag int64

// Mapping flags understood by every engine. The values match minimap2's
// MM_F_CIGAR and MM_F_FOR_ONLY.
const (
	FlagCIGAR       Flag = 0x004
	FlagForwardOnly Flag = 0x100000
)

// IndexParams is an engine-native index-build parameter block.
type IndexParams interface {
	Free()
}

// MapParams is an engine-native mapping parameter block.
type MapParams interface {
	Flags() Flag
	SetFlags(f Flag)
	Free()
}

// Sequence describes one reference sequence held by an index part.
type Sequence struct {
	Name string
	Len  uint32
}

// Part is one sequentially read unit of a reference index.
type Part interface {
	// Sequences lists the part's reference sequences in engine order.
	// The position of an entry is the reference id reported by registers
	// produced from this part.
	Sequences() []Sequence
	Destroy()
}

// Reader yields the parts of an index one at a time.
type Reader interface {
	// Read returns the next part, or nil once every part has been read.
	Read(threads int) Part
	// Close releases the reader. Parts already returned stay valid.
	Close()
}

// Buffer is per-thread engine scratch state. It must never be used by two
// goroutines at once.
type Buffer interface {
	Destroy()
}

// Extra is the alignment detail attached to a register when CIGAR output
// was requested.
type Extra struct {
	// Cigar holds packed operations, (length << 4) | opcode.
	Cigar []uint32
}

// Register is one raw hit of a query against one index part. Coordinates
// are 0-based, half-open.
type Register struct {
	RefID      int32
	QueryStart int32
	QueryEnd   int32
	RefStart   int32
	RefEnd     int32
	MapQ       uint32
	Rev        uint32
	Extra      *Extra
}

// Registers is the array of hits returned by a mapping call.
type Registers interface {
	At(i int) Register
	// Release frees the array. It must be called exactly once.
	Release()
}

// Engine is the native alignment engine.
type Engine interface {
	// NewIndexParams allocates an index-build parameter block.
	NewIndexParams() (IndexParams, error)
	// NewMapParams allocates a mapping parameter block.
	NewMapParams() (MapParams, error)
	// InitMapParams fills mp with the engine's mapping defaults.
	InitMapParams(mp MapParams)
	// SetOpt initializes both blocks with defaults when preset is empty,
	// otherwise applies the named preset on top of them. A negative
	// result means the preset is unknown.
	SetOpt(preset string, ip IndexParams, mp MapParams) int
	// UpdateMapParams derives part-specific values into mp.
	UpdateMapParams(mp MapParams, part Part)

	// OpenReader opens a pre-built index or a sequence file, detecting
	// which one path holds. It returns nil if path cannot be opened.
	OpenReader(path string, ip IndexParams) Reader

	// NewBuffer allocates a working buffer, or returns nil.
	NewBuffer() Buffer

	// Map aligns seq against part and returns the hit count and the hit
	// array. The array is nil when there are no hits.
	Map(part Part, seq []byte, name string, buf Buffer, mp MapParams) (int, Registers)
}
