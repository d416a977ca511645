package datastore

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string { return &v }
func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int { return &v }

// seedSchema creates the annotation schema and a small fixture:
//
//	image 9  (upload 1): one grown-weed box with a missing coordinate
//	image 10 (upload 1): SOLTU box, monocot box, temporary box, blacklisted box
//	image 11: deleted image
//	image 12: image of a deleted upload
//	image 13: annotation not used for training
func seedSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.AutoMigrate(schemaModels()...))

	records := []any{
		&Upload{ID: 1},
		&Upload{ID: 2, IsDeleted: true},

		&Image{ID: 9, UploadID: 1, FileName: "IMG_9.jpg", Width: 200, Height: 100},
		&Image{ID: 10, UploadID: 1, FileName: "IMG_10.jpg", Width: 100, Height: 50},
		&Image{ID: 11, UploadID: 1, FileName: "IMG_11.jpg", Width: 100, Height: 50, IsDeleted: true},
		&Image{ID: 12, UploadID: 2, FileName: "IMG_12.jpg", Width: 100, Height: 50},
		&Image{ID: 13, UploadID: 1, FileName: "IMG_13.jpg", Width: 100, Height: 50},

		&PlantInfo{ID: 1, EPPOCode: str("SOLTU ")},
		&PlantInfo{ID: 2, EPPOCode: str("ZZZZZ"), Cotyledon: intPtr(-100)},
		&PlantInfo{ID: 3, EPPOCode: str("  ")},
		&PlantInfo{ID: 4},
		&PlantInfo{ID: 148, EPPOCode: str("PPPPP")},

		&Annotation{ID: 100, ImageID: 10, UseForTraining: true},
		&Annotation{ID: 101, ImageID: 11, UseForTraining: true},
		&Annotation{ID: 102, ImageID: 12, UseForTraining: true},
		&Annotation{ID: 103, ImageID: 13, UseForTraining: false},
		&Annotation{ID: 104, ImageID: 9, UseForTraining: true, GrownWeed: true},
		&Annotation{ID: 105, ImageID: 10, UseForTraining: true},

		&AnnotationData{ID: 3, AnnotationID: 100, PlantID: 1, MinX: f64(0), MinY: f64(0), MaxX: f64(50), MaxY: f64(25), IsTemporary: boolPtr(false)},
		&AnnotationData{ID: 1, AnnotationID: 100, PlantID: 2, MinX: f64(10), MinY: f64(10), MaxX: f64(20), MaxY: f64(20)},
		&AnnotationData{ID: 2, AnnotationID: 100, PlantID: 1, MinX: f64(1), MinY: f64(1), MaxX: f64(2), MaxY: f64(2), IsTemporary: boolPtr(true)},
		&AnnotationData{ID: 4, AnnotationID: 100, PlantID: 148, MinX: f64(1), MinY: f64(1), MaxX: f64(2), MaxY: f64(2)},
		&AnnotationData{ID: 5, AnnotationID: 104, PlantID: 1, MinY: f64(1), MaxX: f64(2), MaxY: f64(2)},
		&AnnotationData{ID: 6, AnnotationID: 101, PlantID: 1, MinX: f64(1), MinY: f64(1), MaxX: f64(2), MaxY: f64(2)},
		&AnnotationData{ID: 7, AnnotationID: 102, PlantID: 1, MinX: f64(1), MinY: f64(1), MaxX: f64(2), MaxY: f64(2)},
		&AnnotationData{ID: 8, AnnotationID: 103, PlantID: 1, MinX: f64(1), MinY: f64(1), MaxX: f64(2), MaxY: f64(2)},
	}
	for _, r := range records {
		require.NoError(t, db.Create(r).Error)
	}
}
