package imagestore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

// Mode selects how images are placed into the dataset.
type Mode string

const (
	ModeSymlink Mode = "symlink"
	ModeCopy    Mode = "copy"
)

// ModeFor maps the copy_images setting to a Mode.
func ModeFor(copyImages bool) Mode {
	if copyImages {
		return ModeCopy
	}
	return ModeSymlink
}

// ResizeOptions downscales copied images so the longer side is at most MaxSide.
// Symlinked images are never resized.
type ResizeOptions struct {
	Enabled bool
	MaxSide int
}

// Placer puts source images at <dstDir>/<imageID><ext>.
type Placer struct {
	fs     afero.Fs
	mode   Mode
	resize ResizeOptions
}

// NewPlacer returns a Placer. Symlink mode needs a filesystem that implements
// afero.Linker, such as afero.OsFs.
func NewPlacer(fs afero.Fs, mode Mode, resize ResizeOptions) *Placer {
	if mode == "" {
		mode = ModeSymlink
	}
	return &Placer{fs: fs, mode: mode, resize: resize}
}

// Mode returns the placement mode.
func (p *Placer) Mode() Mode { return p.mode }

// Place links or copies src into dstDir, creating dstDir if needed. An existing
// destination is left untouched.
func (p *Placer) Place(src, dstDir string, imageID int64) (string, error) {
	dst := filepath.Join(dstDir, strconv.FormatInt(imageID, 10)+filepath.Ext(src))

	exists, err := p.exists(dst)
	if err != nil {
		return "", placeError(err, "check destination", dst)
	}
	if exists {
		return dst, nil
	}

	if err := p.fs.MkdirAll(dstDir, 0o755); err != nil {
		return "", placeError(err, "create destination directory", dstDir)
	}

	switch p.mode {
	case ModeCopy:
		err = p.copy(src, dst)
	default:
		err = p.symlink(src, dst)
	}
	if err != nil {
		return "", err
	}
	return dst, nil
}

// exists uses Lstat when available so dangling symlinks count as present.
func (p *Placer) exists(path string) (bool, error) {
	var err error
	if l, ok := p.fs.(afero.Lstater); ok {
		_, _, err = l.LstatIfPossible(path)
	} else {
		_, err = p.fs.Stat(path)
	}
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

func (p *Placer) symlink(src, dst string) error {
	linker, ok := p.fs.(afero.Linker)
	if !ok {
		return placeError(fmt.Errorf("filesystem %s does not support symlinks", p.fs.Name()), "symlink", dst)
	}
	target, err := filepath.Abs(src)
	if err != nil {
		return placeError(err, "resolve symlink target", src)
	}
	if err := linker.SymlinkIfPossible(target, dst); err != nil {
		return placeError(err, "symlink", dst)
	}
	return nil
}

func (p *Placer) copy(src, dst string) (err error) {
	if p.resize.Enabled && p.resize.MaxSide > 0 {
		resized, rerr := p.copyResized(src, dst)
		if rerr != nil || resized {
			return rerr
		}
	}

	in, err := p.fs.Open(src)
	if err != nil {
		return placeError(err, "open source", src)
	}
	defer func() { _ = in.Close() }()

	out, err := p.fs.Create(dst)
	if err != nil {
		return placeError(err, "create destination", dst)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = placeError(cerr, "close destination", dst)
		}
		if err != nil {
			_ = p.fs.Remove(dst)
		}
	}()

	w := bufio.NewWriterSize(out, 256*1024)
	if _, err = io.Copy(w, in); err != nil {
		return placeError(err, "copy", dst)
	}
	if err = w.Flush(); err != nil {
		return placeError(err, "flush", dst)
	}
	return nil
}

// copyResized writes a downscaled copy when the source is larger than MaxSide.
// resized is false when the caller should fall back to a byte copy: the format
// is not one imaging can encode or the image is already small enough.
func (p *Placer) copyResized(src, dst string) (resized bool, err error) {
	format, ferr := imaging.FormatFromFilename(src)
	if ferr != nil {
		return false, nil
	}

	in, err := p.fs.Open(src)
	if err != nil {
		return false, placeError(err, "open source", src)
	}
	img, err := imaging.Decode(in)
	_ = in.Close()
	if err != nil {
		return false, placeError(err, "decode source", src)
	}

	b := img.Bounds()
	if max(b.Dx(), b.Dy()) <= p.resize.MaxSide {
		return false, nil
	}
	small := imaging.Fit(img, p.resize.MaxSide, p.resize.MaxSide, imaging.Lanczos)

	out, err := p.fs.Create(dst)
	if err != nil {
		return false, placeError(err, "create destination", dst)
	}
	w := bufio.NewWriter(out)
	err = imaging.Encode(w, small, format, imaging.JPEGQuality(95))
	if err == nil {
		err = w.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = p.fs.Remove(dst)
		return false, placeError(err, "encode resized image", dst)
	}

	GetLogger().Trace("resized image",
		logger.String("format", format.String()),
		logger.Int("width", small.Bounds().Dx()),
		logger.Int("height", small.Bounds().Dy()))
	return true, nil
}

func placeError(err error, op, path string) error {
	return errors.New(fmt.Errorf("%s: %w", op, err)).
		Component("imagestore").
		Category(errors.CategoryImagePlacement).
		Context("operation", "place_image").
		FileContext(path).
		Build()
}
