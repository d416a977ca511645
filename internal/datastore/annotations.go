package datastore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

// annotationsSQL selects every training annotation box. Identifiers in braces
// are quoted for the dialect; bare table names also get the schema prefix.
const annotationsSQL = `SELECT
	{ad.Id} AS row_id,
	{i.UploadId} AS upload_id,
	{i.FileName} AS file_name,
	{i.Id} AS image_id,
	{ad.PlantId} AS plant_id,
	TRIM({pi.EPPOCode}) AS eppo_code,
	{i.Width} AS width,
	{i.Height} AS height,
	{ad.MinX} AS min_x,
	{ad.MinY} AS min_y,
	{ad.MaxX} AS max_x,
	{ad.MaxY} AS max_y,
	{a.GrownWeed} AS grown_weed,
	{pi.Cotyledon} AS cotyledon
FROM {Images} i
JOIN {Annotations} a ON {a.ImageId} = {i.Id}
LEFT JOIN {AnnotationData} ad ON {ad.AnnotationId} = {a.Id}
LEFT JOIN {PlantInfo} pi ON {ad.PlantId} = {pi.Id}
LEFT JOIN {Uploads} u ON {i.UploadId} = {u.Id}
WHERE {i.IsDeleted} = @false
	AND {u.IsDeleted} = @false
	AND ({ad.IsTemporary} = @false OR {ad.IsTemporary} IS NULL)
	AND {a.UseForTraining} = @true`

const blacklistSQL = `
	AND {ad.PlantId} NOT IN @blacklist`

const orderSQL = `
ORDER BY {i.Id}, {ad.Id}`

var identRe = regexp.MustCompile(`\{([A-Za-z_.]+)\}`)

// render replaces {ident} placeholders with quoted identifiers.
func (s *Store) render(query string) string {
	return identRe.ReplaceAllStringFunc(query, func(m string) string {
		ident := m[1 : len(m)-1]
		if !strings.Contains(ident, ".") {
			ident = s.table(ident)
		}
		return s.quote(ident)
	})
}

// annotationRecord is one result row of annotationsSQL.
type annotationRecord struct {
	RowID     *int64   `gorm:"column:row_id"`
	UploadID  int64    `gorm:"column:upload_id"`
	FileName  string   `gorm:"column:file_name"`
	ImageID   int64    `gorm:"column:image_id"`
	PlantID   *int64   `gorm:"column:plant_id"`
	EPPOCode  *string  `gorm:"column:eppo_code"`
	Width     *float64 `gorm:"column:width"`
	Height    *float64 `gorm:"column:height"`
	MinX      *float64 `gorm:"column:min_x"`
	MinY      *float64 `gorm:"column:min_y"`
	MaxX      *float64 `gorm:"column:max_x"`
	MaxY      *float64 `gorm:"column:max_y"`
	GrownWeed *bool    `gorm:"column:grown_weed"`
	Cotyledon *int     `gorm:"column:cotyledon"`
}

func (r *annotationRecord) toRow() annotation.Row {
	row := annotation.Row{
		ID:       *r.RowID,
		ImageID:  r.ImageID,
		UploadID: r.UploadID,
		FileName: r.FileName,
		MinX:     r.MinX,
		MinY:     r.MinY,
		MaxX:     r.MaxX,
		MaxY:     r.MaxY,
	}
	if r.PlantID != nil {
		row.PlantID = *r.PlantID
	}
	if r.EPPOCode != nil {
		row.ClassCode = *r.EPPOCode
	}
	if r.Cotyledon != nil {
		row.AuxDiscriminator = *r.Cotyledon
	}
	if r.Width != nil {
		row.ImageWidth = *r.Width
	}
	if r.Height != nil {
		row.ImageHeight = *r.Height
	}
	if r.GrownWeed != nil {
		row.IsGrown = *r.GrownWeed
	}
	return row
}

// FetchAnnotations returns all training annotation rows ordered by image id and
// annotation data id. Annotations without box data are skipped.
func (s *Store) FetchAnnotations(ctx context.Context) ([]annotation.Row, error) {
	start := time.Now()
	rows, err := s.fetch(ctx, 0)
	if err != nil {
		return nil, err
	}
	GetLogger().Info("fetched annotations",
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(start)))
	return rows, nil
}

// fetch streams the annotation query and stops after limit rows when limit > 0.
func (s *Store) fetch(ctx context.Context, limit int) ([]annotation.Row, error) {
	query := annotationsSQL
	args := map[string]any{"false": false, "true": true}
	if len(s.blacklist) > 0 {
		query += blacklistSQL
		args["blacklist"] = s.blacklist
	}
	query = s.render(query + orderSQL)

	start := time.Now()
	cursor, err := s.db.WithContext(ctx).Raw(query, args).Rows()
	if err != nil {
		return nil, dbError(fmt.Errorf("query annotations: %w", err), "fetch_annotations", errors.PriorityHigh,
			"driver", s.driver)
	}
	defer func() { _ = cursor.Close() }()

	var out []annotation.Row
	skipped := 0
	for cursor.Next() {
		var rec annotationRecord
		if err := s.db.ScanRows(cursor, &rec); err != nil {
			return nil, dbError(fmt.Errorf("scan annotation row: %w", err), "fetch_annotations", errors.PriorityHigh)
		}
		if rec.RowID == nil {
			skipped++
			continue
		}
		out = append(out, rec.toRow())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.New(fmt.Errorf("read annotation rows: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Timing("fetch_annotations", time.Since(start)).
			Build()
	}

	if skipped > 0 {
		GetLogger().Debug("skipped annotations without box data", logger.Int("count", skipped))
	}
	return out, nil
}
