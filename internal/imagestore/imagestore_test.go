package imagestore

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
)

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func TestResolverPathAndExistence(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/rwm/17/IMG_1.jpg", []byte("x"))
	require.NoError(t, fs.MkdirAll("/rwm/17/subdir.jpg", 0o755))

	r := NewResolver(fs, "/rwm/")

	path, ok, err := r.Resolve(17, "IMG_1.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/rwm/17/IMG_1.jpg", path)

	path, ok, err = r.Resolve(17, "IMG_2.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "/rwm/17/IMG_2.jpg", path)

	_, ok, err = r.Resolve(17, "subdir.jpg")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not images")

	_, ok, err = r.Resolve(99, "IMG_1.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolverRejectsUnsafeNames(t *testing.T) {
	r := NewResolver(afero.NewMemMapFs(), "/rwm")
	for _, name := range []string{"", ".", "..", "../18/IMG.jpg", "/etc/passwd", "a/../../x.jpg"} {
		_, _, err := r.Resolve(17, name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrUnsafePath), name)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation), name)
	}

	path, err := r.Path(17, "day1/IMG.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/rwm/17/day1/IMG.jpg", path)
}

func TestResolverListingCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/rwm/5/a.jpg", []byte("a"))

	cached := NewResolver(fs, "/rwm", WithListingCache(time.Hour))
	uncached := NewResolver(fs, "/rwm")

	_, ok, err := cached.Resolve(5, "a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	// files added after the listing was read are not visible until it expires
	writeFile(t, fs, "/rwm/5/b.jpg", []byte("b"))

	_, ok, err = cached.Resolve(5, "b.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = uncached.Resolve(5, "b.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	// missing upload directories cache as empty
	_, ok, err = cached.Resolve(6, "a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	// nested names bypass the listing
	writeFile(t, fs, "/rwm/5/day1/c.jpg", []byte("c"))
	_, ok, err = cached.Resolve(5, "day1/c.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPlacerSymlink(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	src := filepath.Join(dir, "rwm", "3", "IMG_9.JPG")
	writeFile(t, fs, src, []byte("jpeg"))

	p := NewPlacer(fs, ModeSymlink, ResizeOptions{})
	dstDir := filepath.Join(dir, "out", "images", "train")

	dst, err := p.Place(src, dstDir, 42)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dstDir, "42.JPG"), dst)

	target, err := os.Readlink(dst)
	require.NoError(t, err)
	assert.Equal(t, src, target)
	assert.True(t, filepath.IsAbs(target))

	// second placement is a no-op, even with a different source
	other := filepath.Join(dir, "rwm", "3", "other.JPG")
	writeFile(t, fs, other, []byte("other"))
	dst2, err := p.Place(other, dstDir, 42)
	require.NoError(t, err)
	assert.Equal(t, dst, dst2)
	target, err = os.Readlink(dst)
	require.NoError(t, err)
	assert.Equal(t, src, target)
}

// plainFs hides every optional afero interface of the wrapped filesystem.
type plainFs struct{ afero.Fs }

func TestPlacerSymlinkUnsupportedFs(t *testing.T) {
	fs := plainFs{afero.NewMemMapFs()}
	writeFile(t, fs, "/rwm/1/a.jpg", []byte("a"))

	_, err := NewPlacer(fs, "", ResizeOptions{}).Place("/rwm/1/a.jpg", "/out", 1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImagePlacement))
}

func TestPlacerCopy(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/rwm/1/a.jpg", []byte("original"))

	p := NewPlacer(fs, ModeFor(true), ResizeOptions{})
	assert.Equal(t, ModeCopy, p.Mode())

	dst, err := p.Place("/rwm/1/a.jpg", "/out/images/val", 7)
	require.NoError(t, err)
	assert.Equal(t, "/out/images/val/7.jpg", dst)

	data, err := afero.ReadFile(fs, dst)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	// an existing destination is left untouched
	writeFile(t, fs, "/rwm/1/a.jpg", []byte("changed"))
	_, err = p.Place("/rwm/1/a.jpg", "/out/images/val", 7)
	require.NoError(t, err)
	data, err = afero.ReadFile(fs, dst)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestPlacerCopyMissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewPlacer(fs, ModeCopy, ResizeOptions{})

	_, err := p.Place("/rwm/1/missing.jpg", "/out", 1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImagePlacement))

	exists, err := afero.Exists(fs, "/out/1.jpg")
	require.NoError(t, err)
	assert.False(t, exists, "partial destination removed")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPlacerCopyResize(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/rwm/1/big.png", pngBytes(t, 200, 100))
	small := pngBytes(t, 40, 20)
	writeFile(t, fs, "/rwm/1/small.png", small)

	p := NewPlacer(fs, ModeCopy, ResizeOptions{Enabled: true, MaxSide: 50})

	dst, err := p.Place("/rwm/1/big.png", "/out", 1)
	require.NoError(t, err)
	f, err := fs.Open(dst)
	require.NoError(t, err)
	img, err := imaging.Decode(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())

	// images within the limit are copied byte for byte
	dst, err = p.Place("/rwm/1/small.png", "/out", 2)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, dst)
	require.NoError(t, err)
	assert.Equal(t, small, data)
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()

	info, err := CheckFreeSpace(filepath.Join(dir, "not", "created"), 0)
	require.NoError(t, err)
	assert.Equal(t, dir, info.Path)
	assert.Positive(t, info.Total)

	_, err = CheckFreeSpace(dir, math.MaxUint64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientSpace))
	assert.True(t, errors.IsCategory(err, errors.CategoryDiskUsage))
}
