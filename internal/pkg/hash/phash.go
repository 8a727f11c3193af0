package hash

import (
	"encoding/binary"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/corona10/goimagehash"
)

// FrameHash is the DCT-based perceptual hash of a single video frame.
type FrameHash struct {
	Hash   uint64
	Width  int
	Height int
}

// Bytes returns the hash as an 8-byte little-endian key, suitable for
// bloom-filter membership tests.
func (h *FrameHash) Bytes() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, h.Hash)
	return buf
}

// PerceptualHasher computes perceptual hashes of extracted frame images.
// Visually near-identical frames (common in static scenes) hash to the
// same value, which lets classification results be reused across frames.
type PerceptualHasher struct{}

// NewPerceptualHasher creates a new PerceptualHasher.
func NewPerceptualHasher() *PerceptualHasher {
	return &PerceptualHasher{}
}

// ComputePHash computes the DCT-based perceptual hash of an image.
func (ph *PerceptualHasher) ComputePHash(img image.Image) (*FrameHash, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pHash: %w", err)
	}
	return &FrameHash{
		Hash:   hash.GetHash(),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

// ComputeFromReader decodes an image from r and computes its perceptual hash.
func (ph *PerceptualHasher) ComputeFromReader(r io.Reader) (*FrameHash, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ph.ComputePHash(img)
}

// ComputeFromFile computes the perceptual hash of an image file on disk.
func (ph *PerceptualHasher) ComputeFromFile(path string) (*FrameHash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame file: %w", err)
	}
	defer f.Close()
	return ph.ComputeFromReader(f)
}

// Distance returns the Hamming distance between two frame hashes.
func Distance(a, b *FrameHash) int {
	diff := a.Hash ^ b.Hash
	count := 0
	for diff != 0 {
		count++
		diff &= diff - 1
	}
	return count
}
