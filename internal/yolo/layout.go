package yolo

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
	"github.com/roboweedmaps/rwm-dataset/internal/split"
)

// Structure names the directories of a dataset tree.
type Structure struct {
	ImagesDir string `mapstructure:"images_dir" yaml:"images_dir"`
	LabelsDir string `mapstructure:"labels_dir" yaml:"labels_dir"`
	TrainDir  string `mapstructure:"train_dir" yaml:"train_dir"`
	ValDir    string `mapstructure:"val_dir" yaml:"val_dir"`
	TestDir   string `mapstructure:"test_dir" yaml:"test_dir"`
}

// DefaultStructure returns the Ultralytics directory names.
func DefaultStructure() Structure {
	return Structure{
		ImagesDir: "images",
		LabelsDir: "labels",
		TrainDir:  "train",
		ValDir:    "val",
		TestDir:   "test",
	}
}

// withDefaults fills empty names from DefaultStructure.
func (s Structure) withDefaults() Structure {
	d := DefaultStructure()
	s.ImagesDir = orDefault(s.ImagesDir, d.ImagesDir)
	s.LabelsDir = orDefault(s.LabelsDir, d.LabelsDir)
	s.TrainDir = orDefault(s.TrainDir, d.TrainDir)
	s.ValDir = orDefault(s.ValDir, d.ValDir)
	s.TestDir = orDefault(s.TestDir, d.TestDir)
	return s
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// splitDir returns the directory name used for s.
func (s Structure) splitDir(sp split.Split) string {
	switch sp {
	case split.Val:
		return s.ValDir
	case split.Test:
		return s.TestDir
	default:
		return s.TrainDir
	}
}

// Layout is a dataset tree rooted at Root:
//
//	<root>/<images>/{train,val,test}
//	<root>/<labels>/{train,val,test}
type Layout struct {
	fs        afero.Fs
	root      string
	structure Structure
}

// NewLayout returns a Layout on fs. Nothing is created until Ensure.
func NewLayout(fs afero.Fs, root string, s Structure) *Layout {
	return &Layout{fs: fs, root: filepath.Clean(root), structure: s.withDefaults()}
}

// Root returns the dataset root directory.
func (l *Layout) Root() string { return l.root }

// Fs returns the filesystem the layout writes to.
func (l *Layout) Fs() afero.Fs { return l.fs }

// Structure returns the effective directory names.
func (l *Layout) Structure() Structure { return l.structure }

// RelImagesDir is the images directory of sp relative to Root.
func (l *Layout) RelImagesDir(sp split.Split) string {
	return filepath.Join(l.structure.ImagesDir, l.structure.splitDir(sp))
}

// ImagesDir is the absolute images directory of sp.
func (l *Layout) ImagesDir(sp split.Split) string {
	return filepath.Join(l.root, l.RelImagesDir(sp))
}

// LabelsDir is the absolute labels directory of sp.
func (l *Layout) LabelsDir(sp split.Split) string {
	return filepath.Join(l.root, l.structure.LabelsDir, l.structure.splitDir(sp))
}

// LabelPath is the label file of imageID in sp.
func (l *Layout) LabelPath(sp split.Split, imageID int64) string {
	return filepath.Join(l.LabelsDir(sp), strconv.FormatInt(imageID, 10)+".txt")
}

// Ensure creates the root and every images and labels split directory.
func (l *Layout) Ensure() error {
	for _, sp := range split.All {
		for _, dir := range []string{l.ImagesDir(sp), l.LabelsDir(sp)} {
			if err := l.fs.MkdirAll(dir, 0o755); err != nil {
				return errors.New(fmt.Errorf("create dataset directory: %w", err)).
					Component("yolo").
					Category(errors.CategoryFileIO).
					FileContext(dir).
					Build()
			}
		}
	}
	GetLogger().Debug("dataset layout ready", logger.String("root", l.root))
	return nil
}

// WriteLabels writes the newline-joined lines to the label file of imageID,
// replacing any previous file. An empty lines slice yields an empty file.
func (l *Layout) WriteLabels(sp split.Split, imageID int64, lines []string) (string, error) {
	path := l.LabelPath(sp, imageID)
	if err := afero.WriteFile(l.fs, path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", errors.New(fmt.Errorf("write label file: %w", err)).
			Component("yolo").
			Category(errors.CategoryLabelWrite).
			Context("image_id", imageID).
			Context("split", sp.String()).
			FileContext(path).
			Build()
	}
	return path, nil
}
