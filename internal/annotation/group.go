package annotation

import (
	"cmp"
	"slices"
)

// ImageGroup is the set of rows that belong to one image. It is the unit of
// split assignment and file emission.
type ImageGroup struct {
	ImageID int64
	Rows    []Row
}

// First returns the group's first row. All rows of a group share upload,
// file name and image size, so the first row speaks for the group.
func (g *ImageGroup) First() *Row {
	return &g.Rows[0]
}

// UploadID returns the upload the image belongs to.
func (g *ImageGroup) UploadID() int64 { return g.First().UploadID }

// FileName returns the source file name of the image.
func (g *ImageGroup) FileName() string { return g.First().FileName }

// IsGrown reports whether the image is in the grown-weed category.
func (g *ImageGroup) IsGrown() bool { return g.First().IsGrown }

// GroupByImage partitions rows by ImageID in a single pass. Groups are ordered
// by ascending ImageID and rows keep their input order inside each group, so the
// result is identical for any permutation of whole groups in the input.
func GroupByImage(rows []Row) []ImageGroup {
	index := make(map[int64]int)
	var groups []ImageGroup
	for i := range rows {
		id := rows[i].ImageID
		gi, ok := index[id]
		if !ok {
			gi = len(groups)
			index[id] = gi
			groups = append(groups, ImageGroup{ImageID: id})
		}
		groups[gi].Rows = append(groups[gi].Rows, rows[i])
	}

	slices.SortStableFunc(groups, func(a, b ImageGroup) int {
		return cmp.Compare(a.ImageID, b.ImageID)
	})
	return groups
}
