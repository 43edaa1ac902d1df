// Package solve defines the contract for plate-solving integrations.
// A solver takes an image whose pointing is unknown or imprecise and
// returns the sky coordinates it actually covers. No solver ships
// with the catalog; external tools are wired in behind this
// interface.
package solve

import "context"

// Request describes one image to solve. RA, Dec, and Radius hint at
// where to search; zero values mean a blind solve.
type Request struct {
	// Path is the absolute path of the image on disk.
	Path string
	// RAHint and DecHint are approximate J2000 coordinates in
	// degrees, typically taken from the image header.
	RAHint  float64
	DecHint float64
	// RadiusHint bounds the search around the hint, in degrees.
	RadiusHint float64
}

// Solution is a successful plate solve.
type Solution struct {
	// RA and Dec are the J2000 center coordinates in degrees.
	RA  float64
	Dec float64
	// PixelScale is arcseconds per pixel.
	PixelScale float64
	// Rotation is the position angle of the image in degrees east of
	// north.
	Rotation float64
}

// Solver resolves image pointing. Implementations are expected to be
// slow; callers should pass a context with a deadline.
type Solver interface {
	Solve(ctx context.Context, req Request) (*Solution, error)
}
