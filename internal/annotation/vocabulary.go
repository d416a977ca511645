package annotation

import (
	"fmt"
	"strings"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
)

// Vocabulary is the ordered list of class labels used for training. The position
// of a label is its class index in the encoded labels. A Vocabulary is read-only
// once built.
type Vocabulary struct {
	labels []string
	index  map[string]int
}

// NewVocabulary validates labels and builds a Vocabulary. Blank and duplicate
// labels are rejected: a blank label would be a prefix of every code.
func NewVocabulary(labels []string) (*Vocabulary, error) {
	if len(labels) == 0 {
		return nil, errors.Newf("class vocabulary is empty").
			Component("annotation").
			Category(errors.CategoryValidation).
			Build()
	}

	v := &Vocabulary{
		labels: make([]string, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			return nil, errors.Newf("class vocabulary entry %d is blank", i).
				Component("annotation").
				Category(errors.CategoryValidation).
				Build()
		}
		if prev, dup := v.index[l]; dup {
			return nil, errors.Newf("class %q appears twice in vocabulary (positions %d and %d)", l, prev, i).
				Component("annotation").
				Category(errors.CategoryValidation).
				Context("label", l).
				Build()
		}
		v.labels[i] = l
		v.index[l] = i
	}
	return v, nil
}

// MustVocabulary is NewVocabulary for literals in tests and defaults.
func MustVocabulary(labels ...string) *Vocabulary {
	v, err := NewVocabulary(labels)
	if err != nil {
		panic(fmt.Sprintf("annotation: %v", err))
	}
	return v
}

// Len returns the number of classes.
func (v *Vocabulary) Len() int { return len(v.labels) }

// Labels returns a copy of the labels in index order.
func (v *Vocabulary) Labels() []string {
	out := make([]string, len(v.labels))
	copy(out, v.labels)
	return out
}

// Index returns the class index of label.
func (v *Vocabulary) Index(label string) (int, bool) {
	i, ok := v.index[label]
	return i, ok
}

// Contains reports whether label is in the vocabulary.
func (v *Vocabulary) Contains(label string) bool {
	_, ok := v.index[label]
	return ok
}

// Resolve maps a raw class code to a canonical label.
//
// Source codes often carry suffix variants of a species code (SOLTU1, SOLTU2).
// The first label, in vocabulary order, that prefixes classCode replaces it. If the
// resulting code is in the vocabulary it is returned. Otherwise the monocot and
// dicot sentinels in aux select the catch-all labels. Anything else is unresolved.
//
// The catch-all labels are returned even when the vocabulary lacks them; callers
// that need an index must check Index.
func (v *Vocabulary) Resolve(classCode string, aux int) (string, bool) {
	code := classCode
	for _, l := range v.labels {
		if strings.HasPrefix(code, l) {
			code = l
			break
		}
	}

	if v.Contains(code) {
		return code, true
	}

	switch aux {
	case MonocotSentinel:
		return MonocotLabel, true
	case DicotSentinel:
		return DicotLabel, true
	}
	return "", false
}

// ResolveIndex resolves classCode and returns the class index. It fails when the
// code is unresolved or resolves to a catch-all that is not part of the vocabulary.
func (v *Vocabulary) ResolveIndex(classCode string, aux int) (int, bool) {
	label, ok := v.Resolve(classCode, aux)
	if !ok {
		return 0, false
	}
	return v.Index(label)
}
