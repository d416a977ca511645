package extract

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roboweedmaps/rwm-dataset/internal/extraction"
)

// PrintSummary writes the end-of-run report.
func PrintSummary(w io.Writer, s *extraction.Stats, datasetDir, manifestPath string) error {
	train, val, test := s.SplitPercentages()
	n := func(v int) string { return humanize.Comma(int64(v)) }

	_, err := fmt.Fprintf(w, `
Dataset extraction complete in %s
  Images:          %s
    train          %s images, %s annotations
    val            %s images, %s annotations
    test           %s images, %s annotations
  Annotations:     %s (%s encoded, %s dropped)
  Skipped images:  %s (source file missing)
  Errors:          %s
  Filtered rows:   %s held back, %s special outside a crop
  Avg annotations: %.2f per image
  Split:           train %.1f%%, val %.1f%%, test %.1f%%
  Dataset dir:     %s
  Manifest:        %s
`,
		s.Duration.Round(time.Millisecond),
		n(s.TotalImages),
		n(s.TrainImages), n(s.TrainAnnotations),
		n(s.ValImages), n(s.ValAnnotations),
		n(s.TestImages), n(s.TestAnnotations),
		n(s.TotalAnnotations), n(s.EncodedAnnotations), n(s.DroppedAnnotations),
		n(s.SkippedImages),
		n(s.Errors),
		n(s.HeldBackRows), n(s.FilteredSpecialRows),
		s.AverageAnnotationsPerImage(),
		train, val, test,
		datasetDir,
		manifestPath)
	return err
}
