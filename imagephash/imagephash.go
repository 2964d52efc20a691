// Package imagephash computes perceptual hashes for rendered PDF pages,
// used to name extraction artifacts (`{page_index}_{phash}.png`) and, in a
// future iteration, to detect near-duplicate pages across runs.
//
// Grounded on SPEC_FULL.md §2.2's domain-stack table: goimagehash is the
// teacher pack's only perceptual-hashing library, consumed here as the
// pure function spec.md §1 describes ("consumed as a pure function
// producing images + decoded URLs").
package imagephash

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// Compute returns the hex-encoded perceptual hash of img, suitable for
// direct use in the `{page_index}_{phash}.png` filename convention.
func Compute(img image.Image) (string, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("perceptual hash: %w", err)
	}
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// Distance returns the Hamming distance between two hex-encoded
// perceptual hashes produced by Compute, or an error if either is
// malformed.
func Distance(a, b string) (int, error) {
	ha, err := parseHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := parseHash(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}

func parseHash(s string) (*goimagehash.ImageHash, error) {
	var raw uint64
	if _, err := fmt.Sscanf(s, "%016x", &raw); err != nil {
		return nil, fmt.Errorf("malformed perceptual hash %q: %w", s, err)
	}
	return goimagehash.NewImageHash(raw, goimagehash.PHash), nil
}
