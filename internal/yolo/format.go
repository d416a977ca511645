package yolo

import (
	"slices"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
)

// ErrUnknownFormat is returned by LookupFormat for unsupported format names.
var ErrUnknownFormat = errors.NewStd("unknown dataset format")

// DefaultImageSize is the training resolution reported for formats that carry one.
const DefaultImageSize = 1280

// Format describes a YOLO dataset flavour. Both flavours share the label
// encoding, the directory layout and the manifest keys.
type Format struct {
	Name string
	// HasImageSize reports the training resolution in the run log. It is
	// never written to the manifest.
	HasImageSize bool
}

// ImageSize returns the training resolution reported for f, falling back to
// DefaultImageSize when configured is not positive. It is 0 for formats
// without one.
func (f Format) ImageSize(configured int) int {
	if !f.HasImageSize {
		return 0
	}
	if configured <= 0 {
		return DefaultImageSize
	}
	return configured
}

var formats = map[string]Format{
	"yolov5":  {Name: "yolov5"},
	"yolov11": {Name: "yolov11", HasImageSize: true},
}

// DefaultFormat is used when no format is configured.
const DefaultFormat = "yolov11"

// LookupFormat returns the named format.
func LookupFormat(name string) (Format, error) {
	f, ok := formats[name]
	if !ok {
		return Format{}, errors.New(ErrUnknownFormat).
			Component("yolo").
			Category(errors.CategoryValidation).
			Context("format", name).
			Build()
	}
	return f, nil
}

// FormatNames lists the supported format names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
