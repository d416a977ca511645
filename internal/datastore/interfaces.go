// Package datastore reads annotation rows from the RWM database and keeps a local
// history of extraction runs.
package datastore

import (
	"context"

	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
)

// AnnotationSource yields the annotation rows eligible for training, ordered by
// image id then annotation data id.
type AnnotationSource interface {
	FetchAnnotations(ctx context.Context) ([]annotation.Row, error)
}

// Inspector runs read-only structure checks against the database.
type Inspector interface {
	Inspect(ctx context.Context) (*Report, error)
}

var (
	_ AnnotationSource = (*Store)(nil)
	_ Inspector        = (*Store)(nil)
)
