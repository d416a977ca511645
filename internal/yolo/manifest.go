package yolo

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
	"github.com/roboweedmaps/rwm-dataset/internal/split"
)

// DefaultManifestName is the manifest filename when none is configured.
const DefaultManifestName = "dataset.yaml"

// Manifest is the dataset YAML read by the training tools. Split paths are
// relative to Path.
type Manifest struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// ManifestPaths locates a dataset tree for its manifest.
type ManifestPaths interface {
	Root() string
	RelImagesDir(sp split.Split) string
}

// NewManifest describes the dataset under l for vocab.
func NewManifest(l ManifestPaths, vocab *annotation.Vocabulary) Manifest {
	return Manifest{
		Path:  l.Root(),
		Train: l.RelImagesDir(split.Train),
		Val:   l.RelImagesDir(split.Val),
		Test:  l.RelImagesDir(split.Test),
		NC:    vocab.Len(),
		Names: vocab.Labels(),
	}
}

// Marshal renders the manifest as block-style YAML.
func (m Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteManifest writes m to <root>/<filename> through a temporary file and a
// rename, and returns the path written.
func (l *Layout) WriteManifest(m Manifest, filename string) (string, error) {
	if filename == "" {
		filename = DefaultManifestName
	}
	path := filepath.Join(l.root, filename)

	data, err := m.Marshal()
	if err != nil {
		return "", manifestError(fmt.Errorf("marshal manifest: %w", err), path)
	}

	tmp, err := afero.TempFile(l.fs, l.root, "dataset-*.yaml")
	if err != nil {
		return "", manifestError(fmt.Errorf("create temporary manifest: %w", err), path)
	}
	tmpName := tmp.Name()
	defer func() { _ = l.fs.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", manifestError(fmt.Errorf("write temporary manifest: %w", err), path)
	}
	if err := tmp.Close(); err != nil {
		return "", manifestError(fmt.Errorf("close temporary manifest: %w", err), path)
	}
	if err := l.fs.Rename(tmpName, path); err != nil {
		return "", manifestError(fmt.Errorf("rename manifest: %w", err), path)
	}
	GetLogger().Debug("manifest written", logger.String("path", path), logger.Int("classes", len(m.Names)))
	return path, nil
}

func manifestError(err error, path string) error {
	return errors.New(err).
		Component("yolo").
		Category(errors.CategoryDataset).
		Priority(errors.PriorityHigh).
		FileContext(path).
		Build()
}
