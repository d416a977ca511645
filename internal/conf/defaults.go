// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/roboweedmaps/rwm-dataset/internal/logger"
	"github.com/roboweedmaps/rwm-dataset/internal/yolo"
)

// Default settings that other packages refer to.
const (
	DefaultOutputBaseDir = "/fast_data"
	DefaultRandomSeed    = 42
	DefaultSpecialCode   = "PSEZ"
	DefaultYamlFilename  = "dataset.yaml"
	DefaultJobName       = "rwm_dataset_extraction"
)

// DefaultBlacklistedPlantIDs are plant ids that never describe a real plant.
var DefaultBlacklistedPlantIDs = []int64{-12, -7, 0, 148, 150, 151, 994}

// setDefaultConfig registers defaults for every key so that environment
// variables can override keys absent from the config file.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", "debug")
	v.SetDefault("logging.module_levels", map[string]string{})

	v.SetDefault("database.driver", DriverSQLServer)
	v.SetDefault("database.server", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "RWM")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.schema", "data")
	v.SetDefault("database.encrypt", false)
	v.SetDefault("database.slow_query_threshold", 2*time.Second)
	v.SetDefault("database.timeout", 30*time.Second)
	v.SetDefault("database.blacklisted_plant_ids", DefaultBlacklistedPlantIDs)

	v.SetDefault("paths.rwm_data", "/rwm_data")
	v.SetDefault("paths.output_base_dir", DefaultOutputBaseDir)
	v.SetDefault("paths.listing_cache.enabled", true)
	v.SetDefault("paths.listing_cache.ttl", 10*time.Minute)

	v.SetDefault("dataset.eppo_codes", []string{"SOLTU", "ZEAMX", "BEAVX", "CHEAL", "POLCO", "PSEZ", "PPPMM", "PPPDD"})
	v.SetDefault("dataset.psez_crops", []string{"SOLTU", "ZEAMX", "BEAVX"})
	v.SetDefault("dataset.special_code", DefaultSpecialCode)
	v.SetDefault("dataset.fixed_sets.train_uploads", []int64{})
	v.SetDefault("dataset.fixed_sets.val_uploads", []int64{})
	v.SetDefault("dataset.fixed_sets.test_uploads", []int64{})
	v.SetDefault("dataset.fixed_sets.train_images", []int64{})
	v.SetDefault("dataset.fixed_sets.val_images", []int64{})
	v.SetDefault("dataset.fixed_sets.test_images", []int64{})
	v.SetDefault("dataset.split_probabilities.train", 0.8)
	v.SetDefault("dataset.split_probabilities.val", 0.1)
	v.SetDefault("dataset.split_probabilities.test", 0.1)
	v.SetDefault("dataset.held_back_images", []int64{})
	v.SetDefault("dataset.output_dir", "")
	v.SetDefault("dataset.yaml_filename", DefaultYamlFilename)
	v.SetDefault("dataset.format", yolo.DefaultFormat)
	v.SetDefault("dataset.image_size", yolo.DefaultImageSize)
	v.SetDefault("dataset.copy_images", false)
	v.SetDefault("dataset.box_policy", string(yolo.PolicyPassthrough))

	structure := yolo.DefaultStructure()
	v.SetDefault("dataset.structure.images_dir", structure.ImagesDir)
	v.SetDefault("dataset.structure.labels_dir", structure.LabelsDir)
	v.SetDefault("dataset.structure.train_dir", structure.TrainDir)
	v.SetDefault("dataset.structure.val_dir", structure.ValDir)
	v.SetDefault("dataset.structure.test_dir", structure.TestDir)
	v.SetDefault("dataset.resize.enabled", false)
	v.SetDefault("dataset.resize.max_side", yolo.DefaultImageSize)

	v.SetDefault("random_seed", DefaultRandomSeed)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job_name", DefaultJobName)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "~/.local/share/rwm-dataset/history.db")
}
