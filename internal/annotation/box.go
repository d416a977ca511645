// Package annotation holds the raw annotation rows read from the RWM store and the
// pure functions that clean them up before they are written as a dataset: class
// resolution, geometric containment filtering and grouping by image.
package annotation

// Box is an axis-aligned bounding box in absolute pixel coordinates.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// Center returns the midpoint of the box.
func (b Box) Center() (cx, cy float64) {
	return b.MinX + (b.MaxX-b.MinX)/2, b.MinY + (b.MaxY-b.MinY)/2
}

// Width returns MaxX-MinX. Negative for inverted boxes.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY-MinY. Negative for inverted boxes.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// IsCenterEnclosed reports whether the center of inner lies strictly inside outer.
// A center exactly on an edge of outer is not enclosed. Malformed boxes are not
// rejected; the comparison is evaluated as-is.
func IsCenterEnclosed(inner, outer Box) bool {
	cx, cy := inner.Center()
	return outer.MinX < cx && cx < outer.MaxX &&
		outer.MinY < cy && cy < outer.MaxY
}
