// Package extraction turns annotation rows into a YOLO dataset: it filters and
// groups rows, assigns each image a split, places the image and writes its label
// file.
package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
	"github.com/roboweedmaps/rwm-dataset/internal/observability/metrics"
	"github.com/roboweedmaps/rwm-dataset/internal/split"
	"github.com/roboweedmaps/rwm-dataset/internal/yolo"
)

// ErrNoAnnotations is returned when the source yields no rows.
var ErrNoAnnotations = errors.NewStd("no annotations found")

// progressInterval is how many images pass between progress log lines.
const progressInterval = 1000

// AnnotationSource yields the rows to extract.
type AnnotationSource interface {
	FetchAnnotations(ctx context.Context) ([]annotation.Row, error)
}

// PathResolver locates the source image of an upload.
type PathResolver interface {
	Resolve(uploadID int64, fileName string) (path string, exists bool, err error)
}

// Placer puts a source image into a split's image directory.
type Placer interface {
	Place(src, dstDir string, imageID int64) (string, error)
}

// DatasetWriter owns the dataset tree.
type DatasetWriter interface {
	yolo.ManifestPaths
	Ensure() error
	ImagesDir(sp split.Split) string
	WriteLabels(sp split.Split, imageID int64, lines []string) (string, error)
	WriteManifest(m yolo.Manifest, filename string) (string, error)
}

// Recorder receives extraction metrics.
type Recorder interface {
	RecordImage(split, outcome string)
	RecordAnnotations(split string, encoded, dropped int)
	RecordFiltered(reason string, rows int)
	ObserveImageOperation(operation string, d time.Duration)
	ObserveFetch(d time.Duration)
	MarkRunFinished(t time.Time)
}

var _ Recorder = (*metrics.ExtractionMetrics)(nil)

type noopRecorder struct{}

func (noopRecorder) RecordImage(string, string)                  {}
func (noopRecorder) RecordAnnotations(string, int, int)          {}
func (noopRecorder) RecordFiltered(string, int)                  {}
func (noopRecorder) ObserveImageOperation(string, time.Duration) {}
func (noopRecorder) ObserveFetch(time.Duration)                  {}
func (noopRecorder) MarkRunFinished(time.Time)                   {}

// Options configures an extraction.
type Options struct {
	Vocabulary *annotation.Vocabulary
	Assigner   *split.Assigner

	// SpecialCode rows are kept only inside a box of one of SpecialContainers.
	SpecialCode       string
	SpecialContainers []string
	HeldBackImages    []int64

	Format       yolo.Format
	ImageSize    int
	ManifestName string
	BoxPolicy    yolo.BoxPolicy
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRecorder sends metrics to r.
func WithRecorder(r Recorder) Option {
	return func(e *Extractor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithRunID tags every log line of the run.
func WithRunID(id string) Option {
	return func(e *Extractor) { e.runID = id }
}

// Extractor runs one dataset extraction. It is single-use and not safe for
// concurrent use.
type Extractor struct {
	opts     Options
	src      AnnotationSource
	resolver PathResolver
	placer   Placer
	writer   DatasetWriter
	encoder  *yolo.Encoder
	recorder Recorder
	runID    string
	log      logger.Logger

	manifestPath string
}

// New validates opts and returns an Extractor.
func New(opts Options, src AnnotationSource, resolver PathResolver, placer Placer, writer DatasetWriter, options ...Option) (*Extractor, error) {
	if opts.Vocabulary == nil || opts.Assigner == nil {
		return nil, errors.Newf("extraction needs a vocabulary and a split assigner").
			Component("extraction").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if src == nil || resolver == nil || placer == nil || writer == nil {
		return nil, errors.Newf("extraction needs a source, resolver, placer and writer").
			Component("extraction").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if opts.SpecialCode == "" {
		opts.SpecialCode = annotation.DefaultSpecialCode
	}

	e := &Extractor{
		opts:     opts,
		src:      src,
		resolver: resolver,
		placer:   placer,
		writer:   writer,
		encoder:  yolo.NewEncoder(opts.Vocabulary, opts.BoxPolicy),
		recorder: noopRecorder{},
	}
	for _, o := range options {
		o(e)
	}
	e.log = GetLogger()
	if e.runID != "" {
		e.log = e.log.With(logger.String("run_id", e.runID))
	}
	return e, nil
}

// ManifestPath is the manifest written by the last successful Run.
func (e *Extractor) ManifestPath() string { return e.manifestPath }

// Run extracts the dataset. On cancellation it returns ctx.Err() together with
// the stats gathered so far.
func (e *Extractor) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}
	defer func() { stats.Duration = time.Since(start) }()

	if err := e.writer.Ensure(); err != nil {
		return stats, err
	}

	e.log.Info("fetching annotations")
	fetchStart := time.Now()
	rows, err := e.src.FetchAnnotations(ctx)
	if err != nil {
		return stats, errors.New(fmt.Errorf("fetch annotations: %w", err)).
			Component("extraction").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityHigh).
			Timing("fetch_annotations", time.Since(fetchStart)).
			Build()
	}
	e.recorder.ObserveFetch(time.Since(fetchStart))
	e.log.Info("fetched annotations",
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(fetchStart)))

	if len(rows) == 0 {
		e.log.Error("no annotations found, check that images are flagged UseForTraining")
		return stats, errors.New(ErrNoAnnotations).
			Component("extraction").
			Category(errors.CategoryDataset).
			Build()
	}
	for i := range min(3, len(rows)) {
		r := &rows[i]
		e.log.Debug("sample annotation",
			logger.Int64("image_id", r.ImageID),
			logger.Int64("upload_id", r.UploadID),
			logger.String("eppo", r.ClassCode))
	}

	groups := e.prepare(rows, stats)
	e.log.Info("partitioned annotations", logger.Int("images", len(groups)))

	for i := range groups {
		if err := ctx.Err(); err != nil {
			e.log.Warn("extraction cancelled", logger.Int("processed", i), logger.Int("images", len(groups)))
			return stats, err
		}
		e.processGroup(&groups[i], stats)
		if (i+1)%progressInterval == 0 {
			e.log.Info("progress", logger.Int("processed", i+1), logger.Int("images", len(groups)))
		}
	}

	if stats.SkippedImages > 0 {
		e.log.Warn("skipped images with missing source files", logger.Int("count", stats.SkippedImages))
	}
	if stats.Errors > 0 {
		e.log.Warn("errors during dataset creation", logger.Int("count", stats.Errors))
	}

	manifest := yolo.NewManifest(e.writer, e.opts.Vocabulary)
	path, err := e.writer.WriteManifest(manifest, e.opts.ManifestName)
	if err != nil {
		return stats, err
	}
	e.manifestPath = path
	if size := e.opts.Format.ImageSize(e.opts.ImageSize); size > 0 {
		e.log.Info("wrote dataset manifest", logger.String("path", path),
			logger.String("format", e.opts.Format.Name), logger.Int("image_size", size))
	} else {
		e.log.Info("wrote dataset manifest", logger.String("path", path),
			logger.String("format", e.opts.Format.Name))
	}

	e.recorder.MarkRunFinished(time.Now())
	return stats, nil
}

// prepare applies the row filters and groups the remainder by image.
func (e *Extractor) prepare(rows []annotation.Row, stats *Stats) []annotation.ImageGroup {
	kept := annotation.FilterHeldBack(rows, e.opts.HeldBackImages)
	stats.HeldBackRows = len(rows) - len(kept)
	e.recorder.RecordFiltered(metrics.ReasonHeldBack, stats.HeldBackRows)

	filtered := annotation.FilterSpecialCategory(kept, e.opts.SpecialCode, e.opts.SpecialContainers)
	stats.FilteredSpecialRows = len(kept) - len(filtered)
	e.recorder.RecordFiltered(metrics.ReasonSpecialUnenclosed, stats.FilteredSpecialRows)

	e.log.Info("filtered annotations",
		logger.Int("held_back_rows", stats.HeldBackRows),
		logger.Int("special_rows_removed", stats.FilteredSpecialRows),
		logger.Int("remaining", len(filtered)))
	return annotation.GroupByImage(filtered)
}

// processGroup handles one image. Failures are counted, never returned.
func (e *Extractor) processGroup(g *annotation.ImageGroup, stats *Stats) {
	sp := e.opts.Assigner.Assign(g)
	stats.TotalImages++
	log := e.log.With(logger.Int64("image_id", g.ImageID), logger.String("split", sp.String()))

	src, exists, err := e.resolver.Resolve(g.UploadID(), g.FileName())
	if err != nil {
		stats.Errors++
		e.recorder.RecordImage(sp.String(), metrics.OutcomeError)
		log.Warn("cannot resolve source image", logger.Error(err))
		return
	}
	if !exists {
		stats.SkippedImages++
		e.recorder.RecordImage(sp.String(), metrics.OutcomeSkipped)
		log.Warn("image not found", logger.String("path", src), logger.Int64("upload_id", g.UploadID()))
		return
	}

	t := time.Now()
	_, err = e.placer.Place(src, e.writer.ImagesDir(sp), g.ImageID)
	e.recorder.ObserveImageOperation(metrics.OpPlace, time.Since(t))
	if err != nil {
		stats.Errors++
		e.recorder.RecordImage(sp.String(), metrics.OutcomeError)
		log.Warn("failed to place image", logger.Error(err))
		return
	}

	t = time.Now()
	lines, dropped := e.encoder.EncodeRows(g.Rows)
	_, err = e.writer.WriteLabels(sp, g.ImageID, lines)
	e.recorder.ObserveImageOperation(metrics.OpLabel, time.Since(t))
	if err != nil {
		stats.Errors++
		e.recorder.RecordImage(sp.String(), metrics.OutcomeError)
		log.Warn("failed to write label file", logger.Error(err))
		return
	}

	stats.addImage(sp, len(g.Rows), len(lines), dropped)
	e.recorder.RecordImage(sp.String(), metrics.OutcomeProcessed)
	e.recorder.RecordAnnotations(sp.String(), len(lines), dropped)
	log.Trace("processed image", logger.Int("annotations", len(g.Rows)), logger.Int("dropped", dropped))
}
