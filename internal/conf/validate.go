// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/roboweedmaps/rwm-dataset/internal/annotation"
	"github.com/roboweedmaps/rwm-dataset/internal/yolo"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct and reports every problem
// at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateDatabase(&settings.Database)...)
	ve.Errors = append(ve.Errors, validatePaths(&settings.Paths)...)
	ve.Errors = append(ve.Errors, validateDataset(&settings.Dataset)...)
	ve.Errors = append(ve.Errors, validateMetrics(&settings.Metrics)...)

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}
	if settings.History.Enabled && settings.History.Path == "" {
		ve.Errors = append(ve.Errors, "history.path is required when history is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabase(db *Database) []string {
	var errs []string
	switch db.Driver {
	case DriverSQLServer, DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not one of %s, %s, %s, %s",
			db.Driver, DriverSQLServer, DriverMySQL, DriverPostgres, DriverSQLite))
	}
	if db.Name == "" {
		if db.Driver == DriverSQLite {
			errs = append(errs, "database.name must be the database file for sqlite")
		} else {
			errs = append(errs, "database.name is required")
		}
	}
	if db.Port < 0 || db.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port %d is out of range", db.Port))
	}
	if db.Timeout < 0 {
		errs = append(errs, "database.timeout must not be negative")
	}
	return errs
}

func validatePaths(p *Paths) []string {
	var errs []string
	if p.RWMData == "" {
		errs = append(errs, "paths.rwm_data is required")
	}
	if p.ListingCache.Enabled && p.ListingCache.TTL <= 0 {
		errs = append(errs, "paths.listing_cache.ttl must be positive when the cache is enabled")
	}
	return errs
}

func validateDataset(d *Dataset) []string {
	var errs []string

	if len(d.EppoCodes) == 0 {
		errs = append(errs, "dataset.eppo_codes must not be empty")
	} else if _, err := annotation.NewVocabulary(d.EppoCodes); err != nil {
		errs = append(errs, fmt.Sprintf("dataset.eppo_codes: %v", err))
	}
	for _, c := range d.PsezCrops {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, "dataset.psez_crops must not contain blank codes")
			break
		}
	}

	if err := d.SplitWeights().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("dataset.split_probabilities: %v", err))
	}
	if _, err := yolo.LookupFormat(d.Format); err != nil {
		errs = append(errs, fmt.Sprintf("dataset.format: %v", err))
	}
	if _, err := yolo.ParseBoxPolicy(d.BoxPolicy); err != nil {
		errs = append(errs, fmt.Sprintf("dataset.box_policy: %v", err))
	}
	if d.ImageSize <= 0 {
		errs = append(errs, "dataset.image_size must be positive")
	}
	if d.YamlFilename == "" || strings.ContainsAny(d.YamlFilename, `/\`) {
		errs = append(errs, "dataset.yaml_filename must be a plain file name")
	}
	if d.Resize.Enabled && d.Resize.MaxSide <= 0 {
		errs = append(errs, "dataset.resize.max_side must be positive when resize is enabled")
	}
	return errs
}

func validateMetrics(m *Metrics) []string {
	if !m.Enabled {
		return nil
	}
	var errs []string
	if m.TextfilePath == "" && m.PushgatewayURL == "" {
		errs = append(errs, "metrics needs textfile_path or pushgateway_url when enabled")
	}
	if m.PushgatewayURL != "" {
		if u, err := url.Parse(m.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("metrics.pushgateway_url %q is not an absolute URL", m.PushgatewayURL))
		}
	}
	return errs
}
