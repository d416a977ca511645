package annotation

// Reserved cotyledon values used by the RWM store for plants that could only be
// identified as monocot or dicot.
const (
	MonocotSentinel = -100
	DicotSentinel   = -101
)

// Catch-all labels returned for the monocot and dicot sentinels.
const (
	MonocotLabel = "PPPMM"
	DicotLabel   = "PPPDD"
)

// DefaultSpecialCode is the class code for soil patches that are only kept when
// they sit inside a crop box.
const DefaultSpecialCode = "PSEZ"

// Row is one annotation instance as returned by the data source.
// Coordinates are nil when the source column is NULL.
type Row struct {
	ID       int64
	ImageID  int64
	UploadID int64
	FileName string

	PlantID          int64
	ClassCode        string
	AuxDiscriminator int

	MinX, MinY, MaxX, MaxY *float64

	ImageWidth  float64
	ImageHeight float64

	IsGrown bool
}

// Box returns the row's bounding box. ok is false if any coordinate is missing.
func (r *Row) Box() (b Box, ok bool) {
	if r.MinX == nil || r.MinY == nil || r.MaxX == nil || r.MaxY == nil {
		return Box{}, false
	}
	return Box{MinX: *r.MinX, MinY: *r.MinY, MaxX: *r.MaxX, MaxY: *r.MaxY}, true
}

// SetBox fills all four coordinates.
func (r *Row) SetBox(b Box) {
	r.MinX, r.MinY, r.MaxX, r.MaxY = &b.MinX, &b.MinY, &b.MaxX, &b.MaxY
}
