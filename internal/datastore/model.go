package datastore

// The models mirror the RWM annotation schema. Column names are the store's
// PascalCase names. They are used for AutoMigrate in tests and for row counts;
// the extraction query itself is hand-written SQL.

// Image is an uploaded field image.
type Image struct {
	ID        int64  `gorm:"column:Id;primaryKey"`
	UploadID  int64  `gorm:"column:UploadId;index"`
	FileName  string `gorm:"column:FileName"`
	Width     int    `gorm:"column:Width"`
	Height    int    `gorm:"column:Height"`
	IsDeleted bool   `gorm:"column:IsDeleted"`
}

// TableName implements gorm's Tabler.
func (Image) TableName() string { return "Images" }

// Annotation is one annotation session of an image.
type Annotation struct {
	ID             int64 `gorm:"column:Id;primaryKey"`
	ImageID        int64 `gorm:"column:ImageId;index"`
	UseForTraining bool  `gorm:"column:UseForTraining"`
	GrownWeed      bool  `gorm:"column:GrownWeed"`
}

// TableName implements gorm's Tabler.
func (Annotation) TableName() string { return "Annotations" }

// AnnotationData is a single labelled box within an annotation.
type AnnotationData struct {
	ID           int64    `gorm:"column:Id;primaryKey"`
	AnnotationID int64    `gorm:"column:AnnotationId;index"`
	PlantID      int64    `gorm:"column:PlantId"`
	MinX         *float64 `gorm:"column:MinX"`
	MinY         *float64 `gorm:"column:MinY"`
	MaxX         *float64 `gorm:"column:MaxX"`
	MaxY         *float64 `gorm:"column:MaxY"`
	IsTemporary  *bool    `gorm:"column:IsTemporary"`
}

// TableName implements gorm's Tabler.
func (AnnotationData) TableName() string { return "AnnotationData" }

// PlantInfo maps plant ids to EPPO codes.
type PlantInfo struct {
	ID        int64   `gorm:"column:Id;primaryKey"`
	EPPOCode  *string `gorm:"column:EPPOCode"`
	Cotyledon *int    `gorm:"column:Cotyledon"`
}

// TableName implements gorm's Tabler.
func (PlantInfo) TableName() string { return "PlantInfo" }

// Upload groups images taken in one session.
type Upload struct {
	ID        int64 `gorm:"column:Id;primaryKey"`
	IsDeleted bool  `gorm:"column:IsDeleted"`
}

// TableName implements gorm's Tabler.
func (Upload) TableName() string { return "Uploads" }

// schemaModels lists the annotation schema models in dependency order.
func schemaModels() []any {
	return []any{&Upload{}, &Image{}, &Annotation{}, &PlantInfo{}, &AnnotationData{}}
}

// schemaTables lists the table names reported by Inspect.
var schemaTables = []string{"Images", "Annotations", "AnnotationData", "PlantInfo", "Uploads"}
