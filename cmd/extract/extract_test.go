package extract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roboweedmaps/rwm-dataset/internal/conf"
	"github.com/roboweedmaps/rwm-dataset/internal/datastore"
	"github.com/roboweedmaps/rwm-dataset/internal/extraction"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string { return &v }

// newFixtureDB writes a SQLite annotation store with two training images of
// upload 7: image 42 has a SOLTU box, image 43 has no source file.
func newFixtureDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rwm.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&datastore.Upload{}, &datastore.Image{}, &datastore.Annotation{},
		&datastore.PlantInfo{}, &datastore.AnnotationData{}))

	records := []any{
		&datastore.Upload{ID: 7},
		&datastore.Image{ID: 42, UploadID: 7, FileName: "field_42.jpg", Width: 100, Height: 100},
		&datastore.Image{ID: 43, UploadID: 7, FileName: "field_43.jpg", Width: 100, Height: 100},
		&datastore.PlantInfo{ID: 1, EPPOCode: str("SOLTU")},
		&datastore.Annotation{ID: 1, ImageID: 42, UseForTraining: true},
		&datastore.Annotation{ID: 2, ImageID: 43, UseForTraining: true},
		&datastore.AnnotationData{ID: 10, AnnotationID: 1, PlantID: 1, MinX: f64(10), MinY: f64(10), MaxX: f64(20), MaxY: f64(20)},
		&datastore.AnnotationData{ID: 11, AnnotationID: 2, PlantID: 1, MinX: f64(0), MinY: f64(0), MaxX: f64(5), MaxY: f64(5)},
	}
	for _, r := range records {
		require.NoError(t, db.Create(r).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s, err := conf.Load(conf.LoadOptions{SearchPaths: []string{}, EnvFile: "-"})
	require.NoError(t, err)

	rwmData := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(rwmData, "7"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rwmData, "7", "field_42.jpg"), []byte("jpeg bytes"), 0o644))

	state := t.TempDir()
	s.Database = conf.Database{Driver: conf.DriverSQLite, Name: newFixtureDB(t), BlacklistedPlantIDs: conf.DefaultBlacklistedPlantIDs}
	s.Paths.RWMData = rwmData
	s.Dataset.OutputDir = filepath.Join(state, "dataset")
	s.Dataset.CopyImages = true
	s.Dataset.FixedSets.TrainImages = []int64{42, 43}
	s.History = conf.History{Enabled: true, Path: filepath.Join(state, "history.db")}
	s.Metrics = conf.Metrics{Enabled: true, TextfilePath: filepath.Join(state, "rwm.prom"), JobName: "test"}
	require.NoError(t, conf.ValidateSettings(s))
	return s
}

func TestRunWritesDataset(t *testing.T) {
	s := testSettings(t)
	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), s, RunOptions{}, &out))

	dataset := s.Dataset.OutputDir
	label, err := os.ReadFile(filepath.Join(dataset, "labels", "train", "42.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0 0.15 0.15 0.1 0.1", string(label))

	img, err := os.ReadFile(filepath.Join(dataset, "images", "train", "42.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(img))

	assert.NoFileExists(t, filepath.Join(dataset, "labels", "train", "43.txt"))
	assert.FileExists(t, filepath.Join(dataset, "dataset.yaml"))

	summary := out.String()
	assert.Contains(t, summary, "Dataset extraction complete")
	assert.Contains(t, summary, "Skipped images:  1")
	assert.Contains(t, summary, filepath.Join(dataset, "dataset.yaml"))

	history, err := datastore.OpenHistory(s.History.Path)
	require.NoError(t, err)
	defer func() { _ = history.Close() }()
	runs, err := history.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, datastore.RunSucceeded, runs[0].Status)
	assert.Equal(t, 2, runs[0].TotalImages)
	assert.Equal(t, 1, runs[0].TrainImages)
	assert.Equal(t, 1, runs[0].SkippedImages)
	assert.Equal(t, int64(42), runs[0].Seed)

	prom, err := os.ReadFile(s.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `rwm_dataset_images_total{outcome="processed",split="train"} 1`)
	assert.Contains(t, string(prom), `rwm_dataset_images_total{outcome="skipped",split="train"} 1`)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	s := testSettings(t)
	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), s, RunOptions{DryRun: true}, &out))

	assert.NoDirExists(t, s.Dataset.OutputDir)
	assert.NoFileExists(t, s.History.Path)
	assert.Contains(t, out.String(), "TABLE")
	assert.Contains(t, out.String(), "dry run")
}

func TestRunRecordsCancelledRun(t *testing.T) {
	s := testSettings(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, s, RunOptions{}, &bytes.Buffer{})
	require.Error(t, err)

	history, err := datastore.OpenHistory(s.History.Path)
	require.NoError(t, err)
	defer func() { _ = history.Close() }()
	runs, err := history.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, []string{datastore.RunCancelled, datastore.RunFailed}, runs[0].Status)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestApplyFlagsOnlyOverridesChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "extract"}
	flags := &Flags{}
	setupFlags(cmd, flags)
	require.NoError(t, cmd.ParseFlags([]string{"--format", "yolov5", "--seed", "7", "--box-policy", "clamp"}))

	s := &conf.Settings{
		RandomSeed: 42,
		Paths:      conf.Paths{OutputBaseDir: "/data"},
		Dataset:    conf.Dataset{Format: "yolov11", OutputDir: "/configured", CopyImages: true},
	}
	applyFlags(cmd.Flags(), flags, s)

	assert.Equal(t, "yolov5", s.Dataset.Format)
	assert.Equal(t, int64(7), s.RandomSeed)
	assert.Equal(t, "clamp", s.Dataset.BoxPolicy)
	assert.Equal(t, "/configured", s.Dataset.OutputDir, "unset flag keeps config")
	assert.Equal(t, "/data", s.Paths.OutputBaseDir, "unset flag keeps config")
	assert.True(t, s.Dataset.CopyImages, "unset flag keeps config")
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	stats := &extraction.Stats{
		TotalImages: 1200, TrainImages: 800, ValImages: 100, TestImages: 100,
		TotalAnnotations: 3000, TrainAnnotations: 2400, ValAnnotations: 300, TestAnnotations: 300,
		SkippedImages: 150, Errors: 50, EncodedAnnotations: 2990, DroppedAnnotations: 10,
	}
	require.NoError(t, PrintSummary(&out, stats, "/fast_data/rwm_dataset_yolov11", "/fast_data/rwm_dataset_yolov11/dataset.yaml"))

	got := out.String()
	assert.Contains(t, got, "Images:          1,200")
	assert.Contains(t, got, "train          800 images, 2,400 annotations")
	assert.Contains(t, got, "Avg annotations: 2.50 per image")
	assert.Contains(t, got, "train 80.0%, val 10.0%, test 10.0%")
	assert.Contains(t, got, "Manifest:        /fast_data/rwm_dataset_yolov11/dataset.yaml")
}
