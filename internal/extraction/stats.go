package extraction

import (
	"time"

	"github.com/roboweedmaps/rwm-dataset/internal/split"
)

// Stats summarizes an extraction run.
//
// TotalImages counts every image group, so it equals the per-split image counts
// plus SkippedImages plus Errors. Annotation counts are the rows of processed
// images, whether or not they produced a label line.
type Stats struct {
	TotalImages int
	TrainImages int
	ValImages   int
	TestImages  int

	TotalAnnotations int
	TrainAnnotations int
	ValAnnotations   int
	TestAnnotations  int

	SkippedImages int
	Errors        int

	EncodedAnnotations  int
	DroppedAnnotations  int
	HeldBackRows        int
	FilteredSpecialRows int

	Duration time.Duration
}

// addImage records a processed image.
func (s *Stats) addImage(sp split.Split, rows, encoded, dropped int) {
	switch sp {
	case split.Train:
		s.TrainImages++
		s.TrainAnnotations += rows
	case split.Val:
		s.ValImages++
		s.ValAnnotations += rows
	case split.Test:
		s.TestImages++
		s.TestAnnotations += rows
	}
	s.TotalAnnotations += rows
	s.EncodedAnnotations += encoded
	s.DroppedAnnotations += dropped
}

// ProcessedImages is the number of images written to a split.
func (s *Stats) ProcessedImages() int {
	return s.TrainImages + s.ValImages + s.TestImages
}

// SplitPercentages returns the share of processed images in each split, in
// percent. All three are zero when nothing was processed.
func (s *Stats) SplitPercentages() (train, val, test float64) {
	n := s.ProcessedImages()
	if n == 0 {
		return 0, 0, 0
	}
	total := float64(n)
	return 100 * float64(s.TrainImages) / total,
		100 * float64(s.ValImages) / total,
		100 * float64(s.TestImages) / total
}

// AverageAnnotationsPerImage divides TotalAnnotations by TotalImages.
func (s *Stats) AverageAnnotationsPerImage() float64 {
	if s.TotalImages == 0 {
		return 0
	}
	return float64(s.TotalAnnotations) / float64(s.TotalImages)
}
