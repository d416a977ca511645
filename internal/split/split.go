// Package split decides which dataset partition an image belongs to.
package split

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
	"github.com/roboweedmaps/rwm-dataset/internal/errors"
)

// Split is a dataset partition.
type Split string

const (
	Train Split = "train"
	Val   Split = "val"
	Test  Split = "test"
)

// All lists the splits in draw order.
var All = [...]Split{Train, Val, Test}

func (s Split) String() string { return string(s) }

// Parse converts a split name.
func Parse(name string) (Split, error) {
	switch Split(name) {
	case Train, Val, Test:
		return Split(name), nil
	}
	return "", fmt.Errorf("unknown split %q", name)
}

// FixedSets force uploads or single images into a split regardless of the draw.
type FixedSets struct {
	TrainUploads []int64
	ValUploads   []int64
	TestUploads  []int64
	TrainImages  []int64
	ValImages    []int64
	TestImages   []int64
}

// Weights are the relative probabilities of the weighted draw. They need not sum
// to one.
type Weights struct {
	Train float64
	Val   float64
	Test  float64
}

// Validate checks that the weights are finite, non-negative and not all zero.
func (w Weights) Validate() error {
	sum := 0.0
	for _, v := range [...]float64{w.Train, w.Val, w.Test} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf("split weights must be finite and non-negative, got %+v", w).
				Component("split").
				Category(errors.CategoryValidation).
				Build()
		}
		sum += v
	}
	if sum <= 0 {
		return errors.Newf("split weights must not all be zero").
			Component("split").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Normalized returns the weights scaled to sum to one.
func (w Weights) Normalized() Weights {
	sum := w.Train + w.Val + w.Test
	return Weights{Train: w.Train / sum, Val: w.Val / sum, Test: w.Test / sum}
}

// Reason records which rule decided a split.
type Reason string

const (
	ReasonUploadList Reason = "upload_list"
	ReasonImageList  Reason = "image_list"
	ReasonGrown      Reason = "grown"
	ReasonDrawn      Reason = "drawn"
)

// Assigner applies the split rules in priority order: fixed upload lists, fixed
// image lists, the grown-weed rule, then a weighted draw.
//
// Only the draw consumes randomness. Given the same seed and the same sequence of
// groups an Assigner reproduces every decision, so callers must feed groups in a
// stable order from a single goroutine.
type Assigner struct {
	uploads map[int64]Split
	images  map[int64]Split
	draw    distuv.Categorical
}

// NewAssigner builds an Assigner. rng is owned by the Assigner from here on.
func NewAssigner(fixed FixedSets, weights Weights, rng *rand.Rand) (*Assigner, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.Newf("split assigner requires a random source").
			Component("split").
			Category(errors.CategoryValidation).
			Build()
	}

	a := &Assigner{
		uploads: make(map[int64]Split),
		images:  make(map[int64]Split),
	}
	// earlier lists take precedence, so fill in reverse priority order
	fill(a.uploads, fixed.TestUploads, Test)
	fill(a.uploads, fixed.ValUploads, Val)
	fill(a.uploads, fixed.TrainUploads, Train)
	fill(a.images, fixed.TestImages, Test)
	fill(a.images, fixed.ValImages, Val)
	fill(a.images, fixed.TrainImages, Train)

	n := weights.Normalized()
	a.draw = distuv.NewCategorical([]float64{n.Train, n.Val, n.Test}, rng)
	return a, nil
}

// NewSeededRand returns the generator used for split draws.
func NewSeededRand(seed int64) *rand.Rand {
	s := uint64(seed) //nolint:gosec // seeds are bit patterns, sign is irrelevant
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

func fill(m map[int64]Split, ids []int64, s Split) {
	for _, id := range ids {
		m[id] = s
	}
}

// Assign returns the split for g. It is evaluated once per image group.
func (a *Assigner) Assign(g *annotation.ImageGroup) Split {
	s, _ := a.AssignWithReason(g)
	return s
}

// AssignWithReason is Assign that also reports the deciding rule.
func (a *Assigner) AssignWithReason(g *annotation.ImageGroup) (Split, Reason) {
	if s, ok := a.uploads[g.UploadID()]; ok {
		return s, ReasonUploadList
	}
	if s, ok := a.images[g.ImageID]; ok {
		return s, ReasonImageList
	}
	if g.IsGrown() {
		return Train, ReasonGrown
	}
	return All[int(a.draw.Rand())], ReasonDrawn
}
