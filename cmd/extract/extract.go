// Package extract provides the extract command
package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roboweedmaps/rwm-dataset/cmd/dbcheck"
	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
	"github.com/roboweedmaps/rwm-dataset/internal/conf"
	"github.com/roboweedmaps/rwm-dataset/internal/datastore"
	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/extraction"
	"github.com/roboweedmaps/rwm-dataset/internal/imagestore"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
	"github.com/roboweedmaps/rwm-dataset/internal/observability"
	"github.com/roboweedmaps/rwm-dataset/internal/split"
	"github.com/roboweedmaps/rwm-dataset/internal/yolo"
)

// Flags are the command line overrides of the extract command.
type Flags struct {
	Format        string
	OutputDir     string
	OutputBaseDir string
	Seed          int64
	CopyImages    bool
	DebugDB       bool
	DryRun        bool
	BoxPolicy     string
}

// Command creates and returns the extract command
func Command(settings *conf.Settings) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a YOLO dataset from the annotation database",
		Long: `Extract reads every training annotation, assigns each image to the train,
val or test split, places the image and writes its YOLO label file, then writes
the dataset manifest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *settings
			applyFlags(cmd.Flags(), flags, &s)
			if err := conf.ValidateSettings(&s); err != nil {
				return err
			}
			return Run(cmd.Context(), &s, RunOptions{DebugDB: flags.DebugDB, DryRun: flags.DryRun}, cmd.OutOrStdout())
		},
	}

	setupFlags(cmd, flags)

	return cmd
}

// setupFlags defines flags specific to the extract command.
func setupFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().StringVarP(&flags.Format, "format", "f", yolo.DefaultFormat, "Dataset format: yolov5 or yolov11")
	cmd.Flags().StringVarP(&flags.OutputDir, "output-dir", "o", "", "Dataset directory, overrides dataset.output_dir")
	cmd.Flags().StringVar(&flags.OutputBaseDir, "output-base-dir", conf.DefaultOutputBaseDir, "Parent of the default dataset directory rwm_dataset_<format>")
	cmd.Flags().Int64Var(&flags.Seed, "seed", conf.DefaultRandomSeed, "Random seed of the split draw")
	cmd.Flags().BoolVar(&flags.CopyImages, "copy-images", false, "Copy images instead of symlinking them")
	cmd.Flags().BoolVar(&flags.DebugDB, "debug-db", false, "Run the database structure checks before extracting")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Run the database structure checks and exit")
	cmd.Flags().StringVar(&flags.BoxPolicy, "box-policy", "", "Malformed box handling: passthrough, reject or clamp")
}

// applyFlags copies explicitly set flags over the loaded settings.
func applyFlags(fs *pflag.FlagSet, flags *Flags, s *conf.Settings) {
	if fs.Changed("format") {
		s.Dataset.Format = flags.Format
	}
	if fs.Changed("output-dir") {
		s.Dataset.OutputDir = flags.OutputDir
	}
	if fs.Changed("output-base-dir") {
		s.Paths.OutputBaseDir = flags.OutputBaseDir
	}
	if fs.Changed("seed") {
		s.RandomSeed = flags.Seed
	}
	if fs.Changed("copy-images") {
		s.Dataset.CopyImages = flags.CopyImages
	}
	if fs.Changed("box-policy") {
		s.Dataset.BoxPolicy = flags.BoxPolicy
	}
}

// RunOptions select the database checks of a run.
type RunOptions struct {
	DebugDB bool // print the structure checks before extracting
	DryRun  bool // print the structure checks and stop
}

// Run performs one extraction with validated settings and prints its summary
// to out.
func Run(ctx context.Context, s *conf.Settings, opts RunOptions, out io.Writer) error {
	log := GetLogger()

	format, err := yolo.LookupFormat(s.Dataset.Format)
	if err != nil {
		return err
	}
	policy, err := yolo.ParseBoxPolicy(s.Dataset.BoxPolicy)
	if err != nil {
		return err
	}
	vocab, err := annotation.NewVocabulary(s.Dataset.EppoCodes)
	if err != nil {
		return err
	}
	assigner, err := split.NewAssigner(s.Dataset.Fixed(), s.Dataset.SplitWeights(), split.NewSeededRand(s.RandomSeed))
	if err != nil {
		return err
	}

	store, err := datastore.Open(s.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if opts.DebugDB || opts.DryRun {
		report, err := store.Inspect(ctx)
		if err != nil {
			return err
		}
		if err := dbcheck.PrintReport(out, report); err != nil {
			return err
		}
		if opts.DryRun {
			_, err := fmt.Fprintln(out, "\ndry run: no dataset written")
			return err
		}
	}

	outputDir, err := filepath.Abs(s.ResolvedOutputDir())
	if err != nil {
		return errors.New(err).
			Component("cli").
			Category(errors.CategoryConfiguration).
			Build()
	}

	mode := imagestore.ModeFor(s.Dataset.CopyImages)
	if mode == imagestore.ModeCopy {
		warnLowSpace(log, outputDir)
	}

	fs := afero.NewOsFs()
	layout := yolo.NewLayout(fs, outputDir, s.Dataset.Structure)
	var resolverOpts []imagestore.ResolverOption
	if s.Paths.ListingCache.Enabled {
		resolverOpts = append(resolverOpts, imagestore.WithListingCache(s.Paths.ListingCache.TTL))
	}
	resolver := imagestore.NewResolver(fs, s.Paths.RWMData, resolverOpts...)
	placer := imagestore.NewPlacer(fs, mode, imagestore.ResizeOptions{
		Enabled: s.Dataset.Resize.Enabled,
		MaxSide: s.Dataset.Resize.MaxSide,
	})

	record := datastore.NewRunRecord(s.RandomSeed, format.Name, outputDir, s.ConfigFile)
	log = log.With(logger.String("run_id", record.ID))

	history := openHistory(ctx, log, s, record)
	if history != nil {
		defer func() { _ = history.Close() }()
	}

	extractorOpts := []extraction.Option{extraction.WithRunID(record.ID)}
	var m *observability.Metrics
	if s.Metrics.Enabled {
		if m, err = observability.NewMetrics(); err != nil {
			log.Warn("metrics disabled", logger.Error(err))
			m = nil
		} else {
			extractorOpts = append(extractorOpts, extraction.WithRecorder(m.Extraction))
		}
	}

	log.Info("starting extraction",
		logger.String("format", format.Name),
		logger.String("output_dir", outputDir),
		logger.String("mode", string(mode)),
		logger.String("box_policy", string(policy)),
		logger.Int64("seed", s.RandomSeed))

	ex, err := extraction.New(extraction.Options{
		Vocabulary:        vocab,
		Assigner:          assigner,
		SpecialCode:       s.Dataset.SpecialCode,
		SpecialContainers: s.Dataset.PsezCrops,
		HeldBackImages:    s.Dataset.HeldBackImages,
		Format:            format,
		ImageSize:         s.Dataset.ImageSize,
		ManifestName:      s.Dataset.YamlFilename,
		BoxPolicy:         policy,
	}, store, resolver, placer, layout, extractorOpts...)
	if err != nil {
		return err
	}

	stats, runErr := ex.Run(ctx)

	// Bookkeeping must outlive a cancelled run context.
	finishCtx := context.WithoutCancel(ctx)
	record.Finish(runErr)
	applyStats(record, stats)
	if history != nil {
		if err := history.Record(finishCtx, record); err != nil {
			log.Warn("failed to record run", logger.Error(err))
		}
	}
	if m != nil {
		if err := m.Export(finishCtx, s.Metrics.TextfilePath, s.Metrics.PushgatewayURL, s.Metrics.JobName); err != nil {
			log.Warn("failed to export metrics", logger.Error(err))
		}
	}

	if runErr != nil {
		log.Error("extraction failed", logger.Error(runErr), logger.Duration("elapsed", stats.Duration))
		return runErr
	}

	log.Info("extraction complete",
		logger.Int("images", stats.TotalImages),
		logger.Int("annotations", stats.TotalAnnotations),
		logger.Duration("elapsed", stats.Duration))
	return PrintSummary(out, stats, outputDir, ex.ManifestPath())
}

// warnLowSpace logs when copying images may exhaust the output volume.
func warnLowSpace(log logger.Logger, outputDir string) {
	info, err := imagestore.CheckFreeSpace(outputDir, imagestore.MinCopyFreeBytes)
	switch {
	case errors.Is(err, imagestore.ErrInsufficientSpace):
		log.Warn("low disk space for copied images",
			logger.String("path", info.Path),
			logger.String("free", humanize.IBytes(info.Free)),
			logger.String("minimum", humanize.IBytes(imagestore.MinCopyFreeBytes)))
	case err != nil:
		log.Warn("cannot determine free disk space", logger.Error(err))
	default:
		log.Debug("free disk space", logger.String("path", info.Path), logger.String("free", humanize.IBytes(info.Free)))
	}
}

// openHistory opens the run history and stores the running record. History is
// best effort: failures are logged and nil is returned.
func openHistory(ctx context.Context, log logger.Logger, s *conf.Settings, record *datastore.RunRecord) *datastore.History {
	if !s.History.Enabled {
		return nil
	}
	history, err := datastore.OpenHistory(s.History.Path)
	if err != nil {
		log.Warn("run history unavailable", logger.Error(err))
		return nil
	}
	if err := history.Record(ctx, record); err != nil {
		log.Warn("failed to record run start", logger.Error(err))
	}
	return history
}

func applyStats(r *datastore.RunRecord, s *extraction.Stats) {
	if s == nil {
		return
	}
	r.TotalImages = s.TotalImages
	r.TrainImages = s.TrainImages
	r.ValImages = s.ValImages
	r.TestImages = s.TestImages
	r.SkippedImages = s.SkippedImages
	r.ErrorImages = s.Errors
	r.TotalAnnotations = s.TotalAnnotations
	r.EncodedAnnotations = s.EncodedAnnotations
	r.DroppedAnnotations = s.DroppedAnnotations
}
