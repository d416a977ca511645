// Package conf loads rwm-dataset settings from the embedded defaults, YAML config
// files, a .env file and RWM_ environment variables.
package conf

import (
	"embed"
	"sync"
	"time"

	"github.com/roboweedmaps/rwm-dataset/internal/logger"
	"github.com/roboweedmaps/rwm-dataset/internal/split"
	"github.com/roboweedmaps/rwm-dataset/internal/yolo"
)

//go:embed config.yaml
var configFiles embed.FS

// Database drivers understood by the datastore.
const (
	DriverSQLServer = "sqlserver"
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

// Database holds connection settings for the annotation store.
type Database struct {
	Driver              string        `mapstructure:"driver" yaml:"driver"`                               // sqlserver, mysql, postgres or sqlite
	Server              string        `mapstructure:"server" yaml:"server"`                               // host name
	Port                int           `mapstructure:"port" yaml:"port"`                                   // 0 means the driver default
	Name                string        `mapstructure:"name" yaml:"name"`                                   // database name, or file path for sqlite
	User                string        `mapstructure:"user" yaml:"user"`                                   // login user
	Password            string        `mapstructure:"password" yaml:"password"`                           // prefer RWM_DATABASE_PASSWORD
	Schema              string        `mapstructure:"schema" yaml:"schema"`                               // table schema prefix, "data" on the RWM server
	Encrypt             bool          `mapstructure:"encrypt" yaml:"encrypt"`                             // TLS for sqlserver and postgres
	SlowQueryThreshold  time.Duration `mapstructure:"slow_query_threshold" yaml:"slow_query_threshold"`   // slower queries are logged at WARN
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`                             // connect and ping timeout
	BlacklistedPlantIDs []int64       `mapstructure:"blacklisted_plant_ids" yaml:"blacklisted_plant_ids"` // empty disables the filter
}

// ListingCache controls the per-upload directory listing cache of the resolver.
type ListingCache struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// Paths locates the image store and the output area.
type Paths struct {
	RWMData       string       `mapstructure:"rwm_data" yaml:"rwm_data"`               // root of <uploadId>/<fileName>
	OutputBaseDir string       `mapstructure:"output_base_dir" yaml:"output_base_dir"` // parent of the default output dir
	ListingCache  ListingCache `mapstructure:"listing_cache" yaml:"listing_cache"`
}

// FixedSets pins uploads and images to a split.
type FixedSets struct {
	TrainUploads []int64 `mapstructure:"train_uploads" yaml:"train_uploads"`
	ValUploads   []int64 `mapstructure:"val_uploads" yaml:"val_uploads"`
	TestUploads  []int64 `mapstructure:"test_uploads" yaml:"test_uploads"`
	TrainImages  []int64 `mapstructure:"train_images" yaml:"train_images"`
	ValImages    []int64 `mapstructure:"val_images" yaml:"val_images"`
	TestImages   []int64 `mapstructure:"test_images" yaml:"test_images"`
}

// SplitProbabilities are the weights of the random split draw.
type SplitProbabilities struct {
	Train float64 `mapstructure:"train" yaml:"train"`
	Val   float64 `mapstructure:"val" yaml:"val"`
	Test  float64 `mapstructure:"test" yaml:"test"`
}

// Resize configures downscaling of copied images.
type Resize struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	MaxSide int  `mapstructure:"max_side" yaml:"max_side"`
}

// Dataset describes what to extract and how to lay it out.
type Dataset struct {
	EppoCodes          []string           `mapstructure:"eppo_codes" yaml:"eppo_codes"`                   // class vocabulary, order is the class index
	PsezCrops          []string           `mapstructure:"psez_crops" yaml:"psez_crops"`                   // containers that may enclose special rows
	SpecialCode        string             `mapstructure:"special_code" yaml:"special_code"`               // "PSEZ"
	FixedSets          FixedSets          `mapstructure:"fixed_sets" yaml:"fixed_sets"`                   // pinned uploads and images
	SplitProbabilities SplitProbabilities `mapstructure:"split_probabilities" yaml:"split_probabilities"` // weights of the random draw
	HeldBackImages     []int64            `mapstructure:"held_back_images" yaml:"held_back_images"`       // excluded from every split
	OutputDir          string             `mapstructure:"output_dir" yaml:"output_dir"`                   // empty means <output_base_dir>/rwm_dataset_<format>
	YamlFilename       string             `mapstructure:"yaml_filename" yaml:"yaml_filename"`             // manifest file name
	Format             string             `mapstructure:"format" yaml:"format"`                           // yolov5 or yolov11
	ImageSize          int                `mapstructure:"image_size" yaml:"image_size"`                   // logged by yolov11, not written to the manifest
	CopyImages         bool               `mapstructure:"copy_images" yaml:"copy_images"`                 // copy instead of symlink
	BoxPolicy          string             `mapstructure:"box_policy" yaml:"box_policy"`                   // passthrough, reject or clamp
	Structure          yolo.Structure     `mapstructure:"structure" yaml:"structure"`                     // directory names of the layout
	Resize             Resize             `mapstructure:"resize" yaml:"resize"`                           // copy mode only
}

// Metrics controls the Prometheus export at the end of a run.
type Metrics struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	TextfilePath   string `mapstructure:"textfile_path" yaml:"textfile_path"`
	PushgatewayURL string `mapstructure:"pushgateway_url" yaml:"pushgateway_url"`
	JobName        string `mapstructure:"job_name" yaml:"job_name"`
}

// Sentry controls error telemetry.
type Sentry struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// History controls the local run history database.
type History struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Settings is the complete rwm-dataset configuration.
type Settings struct {
	Debug      bool                 `mapstructure:"debug" yaml:"debug"`
	Logging    logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Database   Database             `mapstructure:"database" yaml:"database"`
	Paths      Paths                `mapstructure:"paths" yaml:"paths"`
	Dataset    Dataset              `mapstructure:"dataset" yaml:"dataset"`
	RandomSeed int64                `mapstructure:"random_seed" yaml:"random_seed"`
	Metrics    Metrics              `mapstructure:"metrics" yaml:"metrics"`
	Sentry     Sentry               `mapstructure:"sentry" yaml:"sentry"`
	History    History              `mapstructure:"history" yaml:"history"`

	// ConfigFile is the file the settings were read from, empty for defaults only.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// GetSettings returns the settings of the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

func setSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}

// SplitWeights converts the configured probabilities for the split assigner.
func (d *Dataset) SplitWeights() split.Weights {
	return split.Weights{
		Train: d.SplitProbabilities.Train,
		Val:   d.SplitProbabilities.Val,
		Test:  d.SplitProbabilities.Test,
	}
}

// Fixed converts the configured fixed sets for the split assigner.
func (d *Dataset) Fixed() split.FixedSets {
	return split.FixedSets{
		TrainUploads: d.FixedSets.TrainUploads,
		ValUploads:   d.FixedSets.ValUploads,
		TestUploads:  d.FixedSets.TestUploads,
		TrainImages:  d.FixedSets.TrainImages,
		ValImages:    d.FixedSets.ValImages,
		TestImages:   d.FixedSets.TestImages,
	}
}

// ResolvedOutputDir returns dataset.output_dir, or <output_base_dir>/rwm_dataset_<format>
// when it is unset.
func (s *Settings) ResolvedOutputDir() string {
	if s.Dataset.OutputDir != "" {
		return s.Dataset.OutputDir
	}
	return joinPath(s.Paths.OutputBaseDir, "rwm_dataset_"+s.Dataset.Format)
}

// redactedValue replaces secrets in Redacted output.
const redactedValue = "********"

// Redacted returns a copy of s with the database password and Sentry DSN masked.
func (s *Settings) Redacted() *Settings {
	c := *s
	if c.Database.Password != "" {
		c.Database.Password = redactedValue
	}
	if c.Sentry.DSN != "" {
		c.Sentry.DSN = redactedValue
	}
	return &c
}
