package imagephash

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestComputeReturnsHexHash(t *testing.T) {
	hash, err := Compute(solidImage(color.White))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if len(hash) != 16 {
		t.Errorf("expected 16 hex chars, got %q (len %d)", hash, len(hash))
	}
}

func TestDistanceIsZeroForIdenticalHashes(t *testing.T) {
	hash, err := Compute(solidImage(color.White))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	dist, err := Distance(hash, hash)
	if err != nil {
		t.Fatalf("Distance returned error: %v", err)
	}
	if dist != 0 {
		t.Errorf("expected distance 0 for identical hashes, got %d", dist)
	}
}

func TestDistanceRejectsMalformedHash(t *testing.T) {
	if _, err := Distance("not-hex", "0000000000000000"); err == nil {
		t.Error("expected error for malformed hash")
	}
}
