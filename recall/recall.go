package recall

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// AtK returns |set(approximate) ∩ set(groundTruth)| / |set(groundTruth)|.
//
// An empty ground truth yields 0.0, which protects against scoring against a
// tracker that has not seen any vectors yet. Duplicate identifiers on either
// side are counted once.
func AtK(approximate, groundTruth []string) float64 {
	if len(groundTruth) == 0 {
		return 0.0
	}

	truth := make(map[string]struct{}, len(groundTruth))
	for _, id := range groundTruth {
		truth[id] = struct{}{}
	}

	hits := 0
	seen := make(map[string]struct{}, len(approximate))
	for _, id := range approximate {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := truth[id]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(truth))
}

// AtKIDs is AtK for numeric identifiers, computed on roaring bitmaps.
func AtKIDs(approximate, groundTruth []uint32) float64 {
	if len(groundTruth) == 0 {
		return 0.0
	}

	truth := roaring.BitmapOf(groundTruth...)
	found := roaring.BitmapOf(approximate...)

	return float64(found.AndCardinality(truth)) / float64(truth.GetCardinality())
}
