// Package yolo writes datasets in the Ultralytics YOLO layout: normalized box
// label files next to an images tree and a dataset YAML manifest.
package yolo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
)

// BoxPolicy controls how boxes that do not fit their image are encoded.
type BoxPolicy string

const (
	// PolicyPassthrough encodes every box as-is, including inverted boxes and
	// boxes outside the image.
	PolicyPassthrough BoxPolicy = "passthrough"
	// PolicyReject drops inverted boxes, boxes outside the image and rows with a
	// non-positive image size.
	PolicyReject BoxPolicy = "reject"
	// PolicyClamp un-inverts boxes and clips them to the image. Boxes that end
	// up with zero area are dropped.
	PolicyClamp BoxPolicy = "clamp"
)

// ParseBoxPolicy converts a policy name. The empty string selects passthrough.
func ParseBoxPolicy(s string) (BoxPolicy, error) {
	switch BoxPolicy(s) {
	case "":
		return PolicyPassthrough, nil
	case PolicyPassthrough, PolicyReject, PolicyClamp:
		return BoxPolicy(s), nil
	}
	return "", fmt.Errorf("unknown box policy %q (want passthrough, reject or clamp)", s)
}

// NormalizedBox is one label line: class index and center/size relative to the
// image dimensions.
type NormalizedBox struct {
	ClassIndex int
	CenterX    float64
	CenterY    float64
	Width      float64
	Height     float64
}

// String renders the label line "<class> <cx> <cy> <w> <h>".
func (b NormalizedBox) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(b.ClassIndex))
	for _, v := range [...]float64{b.CenterX, b.CenterY, b.Width, b.Height} {
		sb.WriteByte(' ')
		sb.WriteString(formatFloat(v))
	}
	return sb.String()
}

// formatFloat prints the shortest decimal that round-trips, always with a
// decimal point so integral values read as floats (1 -> "1.0").
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}

// EncodeRow converts the row's absolute box to a normalized box for classIndex.
// ok is false when a coordinate is missing or the policy rejects the box.
func EncodeRow(r *annotation.Row, classIndex int, policy BoxPolicy) (NormalizedBox, bool) {
	b, ok := r.Box()
	if !ok {
		return NormalizedBox{}, false
	}
	w, h := r.ImageWidth, r.ImageHeight

	switch policy {
	case PolicyReject:
		if w <= 0 || h <= 0 || b.Width() < 0 || b.Height() < 0 {
			return NormalizedBox{}, false
		}
		if b.MinX < 0 || b.MinY < 0 || b.MaxX > w || b.MaxY > h {
			return NormalizedBox{}, false
		}
	case PolicyClamp:
		if w <= 0 || h <= 0 {
			return NormalizedBox{}, false
		}
		b = clampBox(b, w, h)
		if b.Width() == 0 || b.Height() == 0 {
			return NormalizedBox{}, false
		}
	}

	bw, bh := b.Width(), b.Height()
	cx, cy := b.MinX+bw/2, b.MinY+bh/2
	return NormalizedBox{
		ClassIndex: classIndex,
		CenterX:    cx / w,
		CenterY:    cy / h,
		Width:      bw / w,
		Height:     bh / h,
	}, true
}

func clampBox(b annotation.Box, w, h float64) annotation.Box {
	if b.MinX > b.MaxX {
		b.MinX, b.MaxX = b.MaxX, b.MinX
	}
	if b.MinY > b.MaxY {
		b.MinY, b.MaxY = b.MaxY, b.MinY
	}
	return annotation.Box{
		MinX: clip(b.MinX, 0, w),
		MinY: clip(b.MinY, 0, h),
		MaxX: clip(b.MaxX, 0, w),
		MaxY: clip(b.MaxY, 0, h),
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Encoder resolves row classes against a vocabulary and encodes their boxes.
type Encoder struct {
	vocab  *annotation.Vocabulary
	policy BoxPolicy
}

// NewEncoder returns an Encoder for vocab.
func NewEncoder(vocab *annotation.Vocabulary, policy BoxPolicy) *Encoder {
	if policy == "" {
		policy = PolicyPassthrough
	}
	return &Encoder{vocab: vocab, policy: policy}
}

// Policy returns the box policy in effect.
func (e *Encoder) Policy() BoxPolicy { return e.policy }

// Encode resolves the row's class and encodes its box. ok is false for
// unresolved classes, catch-all labels outside the vocabulary, missing
// coordinates and boxes refused by the policy.
func (e *Encoder) Encode(r *annotation.Row) (NormalizedBox, bool) {
	idx, ok := e.vocab.ResolveIndex(r.ClassCode, r.AuxDiscriminator)
	if !ok {
		return NormalizedBox{}, false
	}
	return EncodeRow(r, idx, e.policy)
}

// EncodeRows encodes every row and returns the label lines in row order plus the
// number of rows that produced no line.
func (e *Encoder) EncodeRows(rows []annotation.Row) (lines []string, dropped int) {
	lines = make([]string, 0, len(rows))
	for i := range rows {
		nb, ok := e.Encode(&rows[i])
		if !ok {
			dropped++
			continue
		}
		lines = append(lines, nb.String())
	}
	return lines, dropped
}
