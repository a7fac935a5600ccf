package perception

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

const (
	// varianceFloor is the minimum weighted intensity variance a block must
	// reach to be proposed as a candidate at all.
	varianceFloor = 100.0
	// varianceScale normalizes raw variance into a confidence score.
	varianceScale = 10000.0
	// maxCandidates bounds how many regions one Detect call proposes.
	maxCandidates = 5
)

// SimulatedBackend is a deterministic stand-in for a trained vision model.
// It scans the frame in fixed-size blocks and proposes the highest-contrast
// regions as candidates, biased toward where the intent's keywords suggest
// the target usually lives. The same frame and intent always produce the
// same candidates, which makes it usable both as the default wiring and as
// a test fixture.
type SimulatedBackend struct {
	gridSize int
	logger   *zap.Logger
}

// NewSimulatedBackend constructs the backend. gridSize is the block edge
// length in pixels; values below 8 are raised to the default of 50.
func NewSimulatedBackend(gridSize int, logger *zap.Logger) *SimulatedBackend {
	if gridSize < 8 {
		gridSize = 50
	}
	return &SimulatedBackend{
		gridSize: gridSize,
		logger:   logger.Named("perception.simulated"),
	}
}

// scoredBlock pairs a grid block with its weighted variance.
type scoredBlock struct {
	box      schemas.BoundingBox
	variance float64
}

// Detect implements Backend.
func (s *SimulatedBackend) Detect(ctx context.Context, img image.Image, intent string) ([]schemas.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrBackendUnavailable, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", schemas.ErrBackendUnavailable)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var blocks []scoredBlock
	if width > s.gridSize && height > s.gridSize {
		for y := 0; y+s.gridSize <= height; y += s.gridSize {
			for x := 0; x+s.gridSize <= width; x += s.gridSize {
				v := blockVariance(img, bounds.Min.X+x, bounds.Min.Y+y, s.gridSize)
				v *= positionalWeight(intent, x, y, width, height)
				if v > varianceFloor {
					blocks = append(blocks, scoredBlock{
						box:      schemas.BoundingBox{X: x, Y: y, Width: s.gridSize, Height: s.gridSize},
						variance: v,
					})
				}
			}
		}
	} else {
		// Frame too small to grid-scan; treat it as one block.
		if v := blockVariance(img, bounds.Min.X, bounds.Min.Y, min(width, height)); v > varianceFloor {
			blocks = append(blocks, scoredBlock{
				box:      schemas.BoundingBox{X: 0, Y: 0, Width: width, Height: height},
				variance: v,
			})
		}
	}

	if len(blocks) == 0 {
		s.logger.Debug("no region cleared the variance floor",
			zap.String("intent", intent),
			zap.Int("width", width),
			zap.Int("height", height))
		return nil, nil
	}

	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].variance != blocks[j].variance {
			return blocks[i].variance > blocks[j].variance
		}
		// Deterministic order for equal scores: scan order.
		if blocks[i].box.Y != blocks[j].box.Y {
			return blocks[i].box.Y < blocks[j].box.Y
		}
		return blocks[i].box.X < blocks[j].box.X
	})
	if len(blocks) > maxCandidates {
		blocks = blocks[:maxCandidates]
	}

	candidates := make([]schemas.Candidate, 0, len(blocks))
	for _, b := range blocks {
		candidates = append(candidates, schemas.Candidate{
			Box:        b.box,
			Label:      labelForIntent(intent),
			Confidence: clamp(b.variance/varianceScale, 0.5, 0.99),
			Embedding:  regionEmbedding(img, b.box),
		})
	}

	s.logger.Debug("simulated detection complete",
		zap.String("intent", intent),
		zap.Int("candidates", len(candidates)),
		zap.Float64("top_confidence", candidates[0].Confidence))
	return candidates, nil
}

// positionalWeight biases the search toward screen regions where the
// intent's keywords suggest the target usually appears: conversion actions
// accumulate bottom-right, authentication top-right, promotion fields
// mid-page.
func positionalWeight(intent string, x, y, width, height int) float64 {
	lower := strings.ToLower(intent)
	switch {
	case strings.Contains(lower, "buy"), strings.Contains(lower, "checkout"), strings.Contains(lower, "purchase"):
		if x > width/2 && y > height/2 {
			return 1.5
		}
	case strings.Contains(lower, "login"), strings.Contains(lower, "sign in"):
		if x > width/2 && y < height/4 {
			return 1.5
		}
	case strings.Contains(lower, "coupon"), strings.Contains(lower, "discount"):
		if y > height/3 && y < 2*height/3 {
			return 1.3
		}
	}
	return 1.0
}

// labelForIntent derives a structural label for simulated candidates. A real
// backend would read this off the detected element; the simulation infers it
// from the intent so healer string-similarity has something to chew on.
func labelForIntent(intent string) string {
	lower := strings.ToLower(intent)
	switch {
	case strings.Contains(lower, "checkout"):
		return "checkout-button"
	case strings.Contains(lower, "buy"), strings.Contains(lower, "purchase"):
		return "buy-button"
	case strings.Contains(lower, "login"), strings.Contains(lower, "sign in"):
		return "login-button"
	case strings.Contains(lower, "coupon"), strings.Contains(lower, "discount"):
		return "coupon-input"
	default:
		return ""
	}
}

// blockVariance computes the grayscale intensity variance of a size×size
// block anchored at (startX, startY).
func blockVariance(img image.Image, startX, startY, size int) float64 {
	bounds := img.Bounds()
	var sum, sumSq, count float64

	for y := startY; y < startY+size; y++ {
		for x := startX; x < startX+size; x++ {
			if x >= bounds.Max.X || y >= bounds.Max.Y {
				continue
			}
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma on 8-bit channel values.
			intensity := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			sum += intensity
			sumSq += intensity * intensity
			count++
		}
	}

	if count == 0 {
		return 0
	}
	mean := sum / count
	return sumSq/count - mean*mean
}

// regionEmbedding produces the fixed-length semantic signature for a region:
// an 8×8 average-pooled RGB thumbnail of the box, normalized to [0,1] and
// zero-padded to schemas.EmbeddingDim.
func regionEmbedding(img image.Image, box schemas.BoundingBox) schemas.Embedding {
	const cells = 8
	embedding := make(schemas.Embedding, 0, schemas.EmbeddingDim)
	bounds := img.Bounds()

	cellW := max(box.Width/cells, 1)
	cellH := max(box.Height/cells, 1)

	for cy := 0; cy < cells; cy++ {
		for cx := 0; cx < cells; cx++ {
			var rSum, gSum, bSum, count float64
			for y := box.Y + cy*cellH; y < box.Y+(cy+1)*cellH; y++ {
				for x := box.X + cx*cellW; x < box.X+(cx+1)*cellW; x++ {
					px, py := bounds.Min.X+x, bounds.Min.Y+y
					if px >= bounds.Max.X || py >= bounds.Max.Y {
						continue
					}
					r, g, b, _ := img.At(px, py).RGBA()
					rSum += float64(r >> 8)
					gSum += float64(g >> 8)
					bSum += float64(b >> 8)
					count++
				}
			}
			if count == 0 {
				count = 1
			}
			embedding = append(embedding,
				float32(rSum/count/255.0),
				float32(gSum/count/255.0),
				float32(bSum/count/255.0))
		}
	}

	for len(embedding) < schemas.EmbeddingDim {
		embedding = append(embedding, 0)
	}
	return embedding
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
