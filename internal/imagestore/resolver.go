// Package imagestore locates source images in the RWM data tree and places them
// into a dataset by symlink or copy.
package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

// ErrUnsafePath is returned for file names that would resolve outside their
// upload directory.
var ErrUnsafePath = errors.NewStd("image file name escapes upload directory")

// DefaultListingTTL is how long an upload directory listing stays cached.
const DefaultListingTTL = 10 * time.Minute

// Resolver maps (uploadID, fileName) to <root>/<uploadID>/<fileName> and reports
// whether the file exists.
type Resolver struct {
	fs       afero.Fs
	root     string
	listings *cache.Cache
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithListingCache makes the resolver read each upload directory once and answer
// existence checks from the listing until ttl expires. Uploads hold many images,
// so this replaces one stat per image with one readdir per upload.
func WithListingCache(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl <= 0 {
			ttl = DefaultListingTTL
		}
		r.listings = cache.New(ttl, 2*ttl)
	}
}

// NewResolver returns a Resolver for the image tree at root.
func NewResolver(fs afero.Fs, root string, opts ...ResolverOption) *Resolver {
	r := &Resolver{fs: fs, root: filepath.Clean(root)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the image tree root.
func (r *Resolver) Root() string { return r.root }

// Path builds the source path without touching the filesystem.
func (r *Resolver) Path(uploadID int64, fileName string) (string, error) {
	rel := filepath.Clean(fileName)
	if fileName == "" || filepath.IsAbs(fileName) || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(fmt.Errorf("%w: %q", ErrUnsafePath, fileName)).
			Component("imagestore").
			Category(errors.CategoryValidation).
			Context("upload_id", uploadID).
			Build()
	}
	return filepath.Join(r.uploadDir(uploadID), rel), nil
}

// Resolve returns the source path and whether a file exists there. err is only
// set for unsafe names and filesystem failures other than absence.
func (r *Resolver) Resolve(uploadID int64, fileName string) (path string, exists bool, err error) {
	path, err = r.Path(uploadID, fileName)
	if err != nil {
		return "", false, err
	}

	// Listings only cover direct children of the upload directory.
	if r.listings != nil && filepath.Dir(path) == r.uploadDir(uploadID) {
		names, err := r.listing(uploadID)
		if err != nil {
			return path, false, err
		}
		_, exists = names[filepath.Base(path)]
		return path, exists, nil
	}

	info, err := r.fs.Stat(path)
	switch {
	case err == nil:
		return path, !info.IsDir(), nil
	case os.IsNotExist(err):
		return path, false, nil
	default:
		return path, false, statError(err, path)
	}
}

func (r *Resolver) uploadDir(uploadID int64) string {
	return filepath.Join(r.root, strconv.FormatInt(uploadID, 10))
}

// listing returns the cached set of regular file names in an upload directory.
// A missing directory yields an empty set.
func (r *Resolver) listing(uploadID int64) (map[string]struct{}, error) {
	key := strconv.FormatInt(uploadID, 10)
	if v, ok := r.listings.Get(key); ok {
		return v.(map[string]struct{}), nil
	}

	dir := r.uploadDir(uploadID)
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, statError(err, dir)
	}
	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names[e.Name()] = struct{}{}
		}
	}
	r.listings.SetDefault(key, names)

	GetLogger().Debug("cached upload listing",
		logger.Int64("upload_id", uploadID),
		logger.Int("files", len(names)))
	return names, nil
}

func statError(err error, path string) error {
	return errors.New(fmt.Errorf("stat source image: %w", err)).
		Component("imagestore").
		Category(errors.CategoryFileIO).
		FileContext(path).
		Build()
}
