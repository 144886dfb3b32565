//go:build !minimap2 || !cgo

package minimap2

import "github.com/scttfrdmn/mm2go/pkg/engine"

// New reports ErrUnavailable in builds without libminimap2.
func New() (engine.Engine, error) {
	return nil, ErrUnavailable
}
