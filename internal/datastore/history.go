package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// RunRecord is one extraction run in the local history database.
type RunRecord struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	StartedAt  time.Time `gorm:"index"`
	FinishedAt *time.Time
	Seed       int64
	Format     string `gorm:"type:varchar(20)"`
	OutputDir  string
	ConfigFile string
	Status     string `gorm:"type:varchar(20);index"`
	Error      string `gorm:"type:text"`

	TotalImages        int
	TrainImages        int
	ValImages          int
	TestImages         int
	SkippedImages      int
	ErrorImages        int
	TotalAnnotations   int
	EncodedAnnotations int
	DroppedAnnotations int
}

// TableName implements gorm's Tabler.
func (RunRecord) TableName() string { return "extraction_runs" }

// NewRunRecord starts a record with a fresh run id.
func NewRunRecord(seed int64, format, outputDir, configFile string) *RunRecord {
	return &RunRecord{
		ID:         uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		Seed:       seed,
		Format:     format,
		OutputDir:  outputDir,
		ConfigFile: configFile,
		Status:     RunRunning,
	}
}

// Finish stamps the end time and derives the status from err.
func (r *RunRecord) Finish(err error) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	switch {
	case err == nil:
		r.Status = RunSucceeded
	case errors.Is(err, context.Canceled):
		r.Status = RunCancelled
		r.Error = err.Error()
	default:
		r.Status = RunFailed
		r.Error = err.Error()
	}
}

// Duration is the run's wall time, zero while running.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// History is the SQLite run history.
type History struct {
	db *gorm.DB
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.New(fmt.Errorf("create history directory: %w", err)).
				Component("datastore").
				Category(errors.CategoryFileIO).
				FileContext(path).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger().Module("history"), 0),
	})
	if err != nil {
		return nil, dbError(fmt.Errorf("open history database: %w", err), "open_history", errors.PriorityMedium)
	}
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, dbError(fmt.Errorf("migrate history database: %w", err), "migrate_history", errors.PriorityMedium)
	}
	return &History{db: db}, nil
}

// Record inserts or updates rec.
func (h *History) Record(ctx context.Context, rec *RunRecord) error {
	if err := h.db.WithContext(ctx).Save(rec).Error; err != nil {
		return dbError(fmt.Errorf("save run %s: %w", rec.ID, err), "record_run", errors.PriorityLow,
			"run_id", rec.ID)
	}
	return nil
}

// List returns the most recent runs first. limit <= 0 returns all runs.
func (h *History) List(ctx context.Context, limit int) ([]RunRecord, error) {
	q := h.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []RunRecord
	if err := q.Find(&runs).Error; err != nil {
		return nil, dbError(fmt.Errorf("list runs: %w", err), "list_runs", errors.PriorityLow)
	}
	return runs, nil
}

// Close releases the history database.
func (h *History) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
