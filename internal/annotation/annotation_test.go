package annotation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id, imageID int64, code string, minX, minY, maxX, maxY float64) Row {
	r := Row{
		ID:          id,
		ImageID:     imageID,
		UploadID:    7,
		FileName:    "IMG_0001.jpg",
		ClassCode:   code,
		ImageWidth:  100,
		ImageHeight: 100,
	}
	r.SetBox(Box{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY})
	return r
}

func ids(rows []Row) []int64 {
	out := make([]int64, len(rows))
	for i := range rows {
		out[i] = rows[i].ID
	}
	return out
}

func TestIsCenterEnclosed(t *testing.T) {
	inner := Box{MinX: 4, MinY: 4, MaxX: 6, MaxY: 6}

	tests := []struct {
		name  string
		inner Box
		outer Box
		want  bool
	}{
		{"center on right edge", inner, Box{0, 0, 5, 5}, false},
		{"center inside", inner, Box{0, 0, 10, 10}, true},
		{"center on left edge", inner, Box{5, 0, 10, 10}, false},
		{"center on bottom edge", inner, Box{0, 0, 10, 5}, false},
		{"outside", inner, Box{20, 20, 30, 30}, false},
		{"degenerate inner point", Box{3, 3, 3, 3}, Box{0, 0, 10, 10}, true},
		{"inverted inner still computes", Box{6, 6, 4, 4}, Box{0, 0, 10, 10}, true},
		{"inverted outer encloses nothing", inner, Box{10, 10, 0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCenterEnclosed(tt.inner, tt.outer))
		})
	}
}

func TestIsCenterEnclosedTranslationInvariant(t *testing.T) {
	inner := Box{4, 4, 6, 6}
	outers := []Box{{0, 0, 5, 5}, {0, 0, 10, 10}, {4.9, 4.9, 5.1, 5.1}, {5, 5, 9, 9}}
	shifts := []float64{-1000, -3.5, 0, 0.25, 17, 4096}

	for _, outer := range outers {
		want := IsCenterEnclosed(inner, outer)
		for _, d := range shifts {
			in := Box{inner.MinX + d, inner.MinY + d, inner.MaxX + d, inner.MaxY + d}
			out := Box{outer.MinX + d, outer.MinY + d, outer.MaxX + d, outer.MaxY + d}
			assert.Equal(t, want, IsCenterEnclosed(in, out), "outer=%v shift=%v", outer, d)
		}
	}
}

func TestRowBox(t *testing.T) {
	r := row(1, 1, "SOLTU", 1, 2, 3, 4)
	b, ok := r.Box()
	require.True(t, ok)
	assert.Equal(t, Box{1, 2, 3, 4}, b)
	assert.Equal(t, 2.0, b.Width())
	assert.Equal(t, 2.0, b.Height())

	r.MaxY = nil
	_, ok = r.Box()
	assert.False(t, ok)
}

func TestNewVocabulary(t *testing.T) {
	_, err := NewVocabulary(nil)
	require.Error(t, err)

	_, err = NewVocabulary([]string{"SOLTU", " "})
	require.Error(t, err)

	_, err = NewVocabulary([]string{"SOLTU", "PPPMM", "SOLTU"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLTU")

	v, err := NewVocabulary([]string{"SOLTU", "PPPMM", "PPPDD"})
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []string{"SOLTU", "PPPMM", "PPPDD"}, v.Labels())

	i, ok := v.Index("PPPDD")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
}

func TestVocabularyLabelsIsACopy(t *testing.T) {
	v := MustVocabulary("SOLTU", "PSEZ")
	labels := v.Labels()
	labels[0] = "ZZZZZ"
	assert.Equal(t, "SOLTU", v.Labels()[0])
}

func TestResolve(t *testing.T) {
	v := MustVocabulary("SOLTU", "PPPMM", "PPPDD")

	tests := []struct {
		name  string
		code  string
		aux   int
		want  string
		found bool
	}{
		{"exact", "SOLTU", 0, "SOLTU", true},
		{"suffix variant", "SOLTU2", 0, "SOLTU", true},
		{"monocot sentinel", "ZZZZZ", MonocotSentinel, "PPPMM", true},
		{"dicot sentinel", "ZZZZZ", DicotSentinel, "PPPDD", true},
		{"unknown", "ZZZZZ", 0, "", false},
		{"empty code", "", 0, "", false},
		{"empty code monocot", "", MonocotSentinel, "PPPMM", true},
		{"vocabulary member wins over sentinel", "SOLTU1", DicotSentinel, "SOLTU", true},
		{"prefix must be at start", "XSOLTU", 0, "", false},
		{"case sensitive", "soltu", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := v.Resolve(tt.code, tt.aux)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFirstPrefixWins(t *testing.T) {
	// both "BEAVA" and "BEAVAS" prefix "BEAVAS1"; vocabulary order decides
	v := MustVocabulary("BEAVA", "BEAVAS")
	got, ok := v.Resolve("BEAVAS1", 0)
	require.True(t, ok)
	assert.Equal(t, "BEAVA", got)

	v = MustVocabulary("BEAVAS", "BEAVA")
	got, ok = v.Resolve("BEAVAS1", 0)
	require.True(t, ok)
	assert.Equal(t, "BEAVAS", got)
}

func TestResolveIdempotent(t *testing.T) {
	v := MustVocabulary("SOLTU", "PPPMM", "PPPDD", "CIRAR")
	inputs := []struct {
		code string
		aux  int
	}{
		{"SOLTU7", 0}, {"CIRAR", 0}, {"XXX", MonocotSentinel}, {"XXX", DicotSentinel},
	}
	for _, in := range inputs {
		first, ok := v.Resolve(in.code, in.aux)
		require.True(t, ok)
		second, ok := v.Resolve(first, in.aux)
		require.True(t, ok)
		assert.Equal(t, first, second)
	}
}

func TestResolveIndexCatchAllOutsideVocabulary(t *testing.T) {
	v := MustVocabulary("SOLTU", "PSEZ")

	label, ok := v.Resolve("ZZZZZ", MonocotSentinel)
	assert.True(t, ok)
	assert.Equal(t, MonocotLabel, label)

	_, ok = v.ResolveIndex("ZZZZZ", MonocotSentinel)
	assert.False(t, ok, "a catch-all missing from the vocabulary has no index")

	idx, ok := v.ResolveIndex("SOLTU1", 0)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestFilterSpecialCategory(t *testing.T) {
	rows := []Row{
		row(1, 42, "SOLTU1", 10, 10, 20, 20),
		row(2, 42, DefaultSpecialCode, 12, 12, 18, 18),
		row(3, 42, DefaultSpecialCode, 100, 100, 110, 110),
	}
	got := FilterSpecialCategory(rows, DefaultSpecialCode, []string{"SOLTU"})
	assert.Equal(t, []int64{1, 2}, ids(got))
}

func TestFilterSpecialCategoryPerImage(t *testing.T) {
	rows := []Row{
		row(1, 1, "SOLTU", 0, 0, 50, 50),
		row(2, 2, DefaultSpecialCode, 10, 10, 20, 20), // container is in image 1
		row(3, 1, DefaultSpecialCode, 10, 10, 20, 20),
		row(4, 1, "CIRAR", 60, 60, 90, 90),
		row(5, 1, DefaultSpecialCode, 70, 70, 80, 80), // inside CIRAR, not a container
	}
	got := FilterSpecialCategory(rows, DefaultSpecialCode, []string{"SOLTU", "BEAVA"})
	assert.Equal(t, []int64{1, 4, 3}, ids(got))
}

func TestFilterSpecialCategoryMissingCoordinates(t *testing.T) {
	noBoxSpecial := row(2, 1, DefaultSpecialCode, 10, 10, 20, 20)
	noBoxSpecial.MinX = nil
	noBoxContainer := row(3, 1, "SOLTU", 0, 0, 50, 50)
	noBoxContainer.MaxX = nil

	rows := []Row{
		noBoxContainer,
		noBoxSpecial,
		row(4, 1, DefaultSpecialCode, 10, 10, 20, 20),
	}
	got := FilterSpecialCategory(rows, DefaultSpecialCode, []string{"SOLTU"})
	assert.Equal(t, []int64{3}, ids(got), "container without box encloses nothing")
}

func TestFilterSpecialCategoryPreservesRows(t *testing.T) {
	rows := []Row{
		row(1, 1, "SOLTU", 0, 0, 50, 50),
		row(2, 1, DefaultSpecialCode, 10, 10, 20, 20),
		row(3, 1, "SOLTU", 5, 5, 40, 40), // second container enclosing the same row
	}
	got := FilterSpecialCategory(rows, DefaultSpecialCode, []string{"SOLTU"})
	require.Len(t, got, 3, "a special row enclosed twice is kept once")
	if diff := cmp.Diff(rows[1], got[2]); diff != "" {
		t.Errorf("kept row changed (-want +got):\n%s", diff)
	}
}

func TestFilterHeldBack(t *testing.T) {
	rows := []Row{
		row(1, 10, "SOLTU", 0, 0, 1, 1),
		row(2, 11, "SOLTU", 0, 0, 1, 1),
		row(3, 10, "PSEZ", 0, 0, 1, 1),
		row(4, 12, "SOLTU", 0, 0, 1, 1),
	}
	assert.Equal(t, []int64{2, 4}, ids(FilterHeldBack(rows, []int64{10})))
	assert.Len(t, FilterHeldBack(rows, nil), 4)
}

func TestGroupByImage(t *testing.T) {
	rows := []Row{
		row(1, 30, "SOLTU", 0, 0, 1, 1),
		row(2, 10, "SOLTU", 0, 0, 1, 1),
		row(3, 30, "PSEZ", 0, 0, 1, 1),
		row(4, 20, "SOLTU", 0, 0, 1, 1),
		row(5, 10, "CIRAR", 0, 0, 1, 1),
	}
	groups := GroupByImage(rows)
	require.Len(t, groups, 3)

	got := map[int64][]int64{}
	var order []int64
	for _, g := range groups {
		order = append(order, g.ImageID)
		got[g.ImageID] = ids(g.Rows)
	}
	assert.Equal(t, []int64{10, 20, 30}, order)
	assert.Equal(t, map[int64][]int64{10: {2, 5}, 20: {4}, 30: {1, 3}}, got)
	assert.Equal(t, int64(7), groups[0].UploadID())
	assert.Equal(t, "IMG_0001.jpg", groups[0].FileName())
}

func TestGroupByImageStableAcrossGroupPermutations(t *testing.T) {
	a := []Row{row(1, 2, "A", 0, 0, 1, 1), row(2, 2, "B", 0, 0, 1, 1), row(3, 1, "C", 0, 0, 1, 1)}
	b := []Row{row(3, 1, "C", 0, 0, 1, 1), row(1, 2, "A", 0, 0, 1, 1), row(2, 2, "B", 0, 0, 1, 1)}

	if diff := cmp.Diff(GroupByImage(a), GroupByImage(b)); diff != "" {
		t.Errorf("grouping depends on group order (-a +b):\n%s", diff)
	}
	assert.Empty(t, GroupByImage(nil))
}
