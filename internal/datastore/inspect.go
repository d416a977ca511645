package datastore

import (
	"context"
	"fmt"

	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

// inspectSampleSize is the number of joined rows Inspect returns.
const inspectSampleSize = 5

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int64
}

// FlagCount counts annotations by UseForTraining value.
type FlagCount struct {
	UseForTraining *bool
	Count          int64
}

// Report is the result of the database structure checks.
type Report struct {
	Tables              []TableCount
	TrainingFlags       []FlagCount
	TrainingAnnotations int64
	MissingBoxRows      int64
	PlantsWithoutEPPO   int64
	Sample              []annotation.Row
}

// Inspect counts rows per table, the UseForTraining distribution, box rows with
// a missing coordinate and plants without an EPPO code, and samples the first
// joined rows. It never writes.
func (s *Store) Inspect(ctx context.Context) (*Report, error) {
	db := s.db.WithContext(ctx)
	report := &Report{}

	for _, t := range schemaTables {
		var n int64
		if err := db.Table(s.table(t)).Count(&n).Error; err != nil {
			return nil, inspectError(err, "count_"+t)
		}
		report.Tables = append(report.Tables, TableCount{Table: t, Rows: n})
	}

	flagSQL := s.render(`SELECT {a.UseForTraining} AS use_for_training, COUNT(*) AS total
FROM {Annotations} a GROUP BY {a.UseForTraining} ORDER BY {a.UseForTraining}`)
	var flags []struct {
		UseForTraining *bool `gorm:"column:use_for_training"`
		Count          int64 `gorm:"column:total"`
	}
	if err := db.Raw(flagSQL).Scan(&flags).Error; err != nil {
		return nil, inspectError(err, "use_for_training_distribution")
	}
	for _, f := range flags {
		report.TrainingFlags = append(report.TrainingFlags, FlagCount{UseForTraining: f.UseForTraining, Count: f.Count})
		if f.UseForTraining != nil && *f.UseForTraining {
			report.TrainingAnnotations = f.Count
		}
	}

	missingSQL := s.render(`SELECT COUNT(*) FROM {AnnotationData} ad
WHERE {ad.MinX} IS NULL OR {ad.MinY} IS NULL OR {ad.MaxX} IS NULL OR {ad.MaxY} IS NULL`)
	if err := db.Raw(missingSQL).Scan(&report.MissingBoxRows).Error; err != nil {
		return nil, inspectError(err, "missing_box_rows")
	}

	eppoSQL := s.render(`SELECT COUNT(*) FROM {PlantInfo} pi
WHERE {pi.EPPOCode} IS NULL OR TRIM({pi.EPPOCode}) = ''`)
	if err := db.Raw(eppoSQL).Scan(&report.PlantsWithoutEPPO).Error; err != nil {
		return nil, inspectError(err, "plants_without_eppo")
	}

	sample, err := s.fetch(ctx, inspectSampleSize)
	if err != nil {
		return nil, err
	}
	report.Sample = sample

	log := GetLogger()
	for _, tc := range report.Tables {
		log.Info("table rows", logger.String("table", tc.Table), logger.Int64("rows", tc.Rows))
	}
	log.Info("annotation data checks",
		logger.Int64("use_for_training", report.TrainingAnnotations),
		logger.Int64("missing_box_rows", report.MissingBoxRows),
		logger.Int64("plants_without_eppo", report.PlantsWithoutEPPO),
		logger.Int("sample_rows", len(report.Sample)))
	return report, nil
}

func inspectError(err error, check string) error {
	return dbError(fmt.Errorf("database check %s: %w", check, err), "inspect", errors.PriorityMedium,
		"check", check)
}
