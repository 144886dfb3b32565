// Package minimap2 binds the engine contract to libminimap2 through cgo.
//
// The binding is compiled only with the "minimap2" build tag and cgo enabled,
// and expects minimap.h and libminimap2 to be visible to the C toolchain
// (CGO_CFLAGS / CGO_LDFLAGS). Without the tag New reports ErrUnavailable.
package minimap2

import "errors"

// ErrUnavailable is returned by New when the binary was built without
// libminimap2.
var ErrUnavailable = errors.New("minimap2: engine not compiled in (build with -tags minimap2)")
