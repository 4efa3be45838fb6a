package facedet

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
)

// NonMaxSuppression removes detections that overlap a higher-confidence
// detection by at least minIoU.
// Returns the retained detections, ordered from highest to lowest confidence.
func NonMaxSuppression(input []Detection, minIoU float32) []Detection {
	if len(input) <= 1 {
		return input
	}

	// Highest confidence first, so that a suppressed box is always
	// suppressed by a better one.
	order := make([]int, len(input))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return input[order[a]].Confidence > input[order[b]].Confidence
	})

	// Spatial index to avoid O(N^2) comparisons
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(input))
	for _, d := range input {
		fb.Add(int32(d.Box.X), int32(d.Box.Y), int32(d.Box.X2()), int32(d.Box.Y2()))
	}
	fb.Finish()

	suppressed := make([]bool, len(input))
	keep := make([]Detection, 0, len(input))
	for _, i := range order {
		if suppressed[i] {
			continue
		}
		keep = append(keep, input[i])
		box := input[i].Box
		for _, j := range fb.Search(int32(box.X), int32(box.Y), int32(box.X2()), int32(box.Y2())) {
			if j == i || suppressed[j] {
				continue
			}
			if box.IOU(input[j].Box) >= minIoU {
				suppressed[j] = true
			}
		}
	}
	return keep
}
