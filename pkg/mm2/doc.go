// Package mm2 aligns sequences against a reference by driving a native
// alignment engine (see package engine).
//
// An Aligner loads a possibly multi-part index once and shares it, read
// only, between clones and batch workers. The engine's working buffer and
// mapping parameters are not reentrant, so every Aligner and every batch
// worker owns a private alignment context:
//
//	eng, err := minimap2.New()
//	...
//	a, err := mm2.New(eng, mm2.NewOptions("ref.mmi").WithPreset(mm2.MapONT))
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
//	results, err := a.AlignBatch(queries, 0)
//
// Records carry 1-based positions, dictionary reference ids and biogo
// CIGAR operations, ready for package samout.
package mm2
