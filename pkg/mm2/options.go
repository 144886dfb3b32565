package mm2

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scttfrdmn/mm2go/pkg/engine"
)

// Preset names a bundle of engine defaults tuned for a sequencing
// technology or alignment mode.
type Preset string

const (
	MapONT  Preset = "map-ont"  // Oxford Nanopore long-read DNA
	MapPB   Preset = "map-pb"   // PacBio long-read DNA
	MapIClr Preset = "map-iclr" // Illumina Complete Long Read DNA
	Splice  Preset = "splice"   // long-read RNA with splicing
)

// IsRNA reports whether the preset is for spliced RNA alignment.
func (p Preset) IsRNA() bool { return p == Splice }

// IsDNA reports whether the preset is for DNA alignment.
func (p Preset) IsDNA() bool {
	switch p {
	case MapONT, MapPB, MapIClr:
		return true
	}
	return false
}

// Options configures an Aligner. It is read-only once the Aligner is built.
type Options struct {
	// Reference is a pre-built index or a sequence file.
	Reference string
	// Preset is applied on top of the engine defaults when non-empty.
	Preset Preset
	// ForwardOnly restricts mapping to the forward strand (minimap2 -uf).
	ForwardOnly bool
	// SAMOutput requests CIGAR generation.
	SAMOutput bool
	// ExtraParams is carried along but not interpreted by the engine.
	ExtraParams []string
}

// NewOptions returns options for reference with CIGAR output enabled.
func NewOptions(reference string) Options {
	return Options{
		Reference: reference,
		SAMOutput: true,
	}
}

// WithPreset returns a copy of o using preset p.
func (o Options) WithPreset(p Preset) Options {
	o.Preset = p
	return o
}

// WithForwardOnly returns a copy of o with forward-only mapping set.
func (o Options) WithForwardOnly(forwardOnly bool) Options {
	o.ForwardOnly = forwardOnly
	return o
}

// WithExtraParams returns a copy of o carrying params.
func (o Options) WithExtraParams(params []string) Options {
	o.ExtraParams = append([]string(nil), params...)
	return o
}

// WithThreads returns a copy of o annotated with a thread count.
func (o Options) WithThreads(n int) Options {
	o.ExtraParams = append(append([]string(nil), o.ExtraParams...), fmt.Sprintf("--threads=%d", n))
	return o
}

// Threads returns the last thread-count annotation, or 0 if there is none.
func (o Options) Threads() int {
	n := 0
	for _, p := range o.ExtraParams {
		v, ok := strings.CutPrefix(p, "--threads=")
		if !ok {
			continue
		}
		if t, err := strconv.Atoi(v); err == nil {
			n = t
		}
	}
	return n
}

// mapFlags returns the mapping flags requested by o.
func (o Options) mapFlags() engine.Flag {
	var f engine.Flag
	if o.ForwardOnly {
		f |= engine.FlagForwardOnly
	}
	if o.SAMOutput {
		f |= engine.FlagCIGAR
	}
	return f
}

// params is a freshly resolved pair of parameter blocks.
type params struct {
	index engine.IndexParams
	mapp  engine.MapParams
}

func (p *params) release() {
	if p.index != nil {
		p.index.Free()
		p.index = nil
	}
	if p.mapp != nil {
		p.mapp.Free()
		p.mapp = nil
	}
}

// resolveParams builds both parameter blocks for o: engine defaults, then
// the preset, then the mapping flags. Every call starts from scratch.
func resolveParams(eng engine.Engine, o Options) (*params, error) {
	ip, err := eng.NewIndexParams()
	if err != nil {
		return nil, fmt.Errorf("%w: index parameters: %v", ErrOutOfMemory, err)
	}
	mp, err := eng.NewMapParams()
	if err != nil {
		ip.Free()
		return nil, fmt.Errorf("%w: mapping parameters: %v", ErrOutOfMemory, err)
	}
	p := &params{index: ip, mapp: mp}

	if err := applyPreset(eng, o.Preset, ip, mp); err != nil {
		p.release()
		return nil, err
	}
	applyFlags(mp, o.mapFlags())
	return p, nil
}

// applyPreset resets ip and mp to the engine defaults and applies preset
// on top when it is set.
func applyPreset(eng engine.Engine, preset Preset, ip engine.IndexParams, mp engine.MapParams) error {
	eng.SetOpt("", ip, mp)
	if preset == "" {
		return nil
	}
	if eng.SetOpt(string(preset), ip, mp) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	return nil
}

func applyFlags(mp engine.MapParams, f engine.Flag) {
	if f != 0 {
		mp.SetFlags(mp.Flags() | f)
	}
}
