package conf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

// ConfigFileName is the file searched for in the default config paths.
const ConfigFileName = "config.yaml"

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	ConfigFile  string   // explicit --config path, must exist when set
	SearchPaths []string // directories searched for config.yaml, defaults to GetDefaultConfigPaths
	EnvFile     string   // dotenv file, ".env" when empty; "-" disables it
	Fs          afero.Fs // filesystem for config files, the OS by default
}

// Load builds the settings from, in increasing precedence, the registered defaults,
// the embedded config.yaml, the config file with its inherit chain and the
// environment. The result is validated and stored for GetSettings.
func Load(opts LoadOptions) (*Settings, error) {
	v, configFile, err := newViper(opts)
	if err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("config").
			Category(errors.CategoryConfiguration).
			Build()
	}
	settings.ConfigFile = configFile
	settings.Paths.RWMData = ExpandHome(settings.Paths.RWMData)
	settings.History.Path = ExpandHome(settings.History.Path)

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	setSettings(settings)
	return settings, nil
}

// newViper assembles a viper instance with every configuration layer applied
// and returns the config file used, if any.
func newViper(opts LoadOptions) (*viper.Viper, string, error) {
	log := GetLogger()

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if envFile != "-" {
		loaded, err := loadDotEnv(envFile)
		if err != nil {
			return nil, "", errors.New(err).
				Component("config").
				Category(errors.CategoryConfiguration).
				Context("operation", "load-dotenv").
				Build()
		}
		if loaded {
			log.Debug("loaded environment file", logger.String("path", envFile))
		}
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaultConfig(v)

	defaults, err := configFiles.ReadFile(ConfigFileName)
	if err != nil {
		return nil, "", errors.New(err).
			Component("config").
			Category(errors.CategoryConfiguration).
			Context("operation", "read-embedded-defaults").
			Build()
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, "", errors.New(err).
			Component("config").
			Category(errors.CategoryConfiguration).
			Context("operation", "parse-embedded-defaults").
			Build()
	}

	configFile, err := findConfigFile(fs, opts)
	if err != nil {
		return nil, "", err
	}
	if configFile != "" {
		tree, err := loadConfigTree(fs, configFile)
		if err != nil {
			return nil, "", err
		}
		if err := v.MergeConfigMap(tree); err != nil {
			return nil, "", errors.New(err).
				Component("config").
				Category(errors.CategoryConfiguration).
				Context("operation", "merge-config").
				Build()
		}
		log.Info("loaded configuration", logger.String("path", configFile))
	} else {
		log.Info("no config file found, using defaults")
	}

	configureEnv(v)
	if err := bindEnvVars(v); err != nil {
		log.Warn("environment variable problems", logger.Error(err))
	}

	return v, configFile, nil
}

// findConfigFile returns the explicit config file, or the first config.yaml in
// the search paths, or "" when there is none.
func findConfigFile(fs afero.Fs, opts LoadOptions) (string, error) {
	if opts.ConfigFile != "" {
		if _, err := fs.Stat(opts.ConfigFile); err != nil {
			return "", errors.New(fmt.Errorf("config file not found: %w", err)).
				Component("config").
				Category(errors.CategoryNotFound).
				FileContext(opts.ConfigFile).
				Build()
		}
		return opts.ConfigFile, nil
	}

	paths := opts.SearchPaths
	if paths == nil {
		var err error
		if paths, err = GetDefaultConfigPaths(); err != nil {
			return "", err
		}
	}
	for _, dir := range paths {
		candidate := filepath.Join(dir, ConfigFileName)
		info, err := fs.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", errors.New(err).
				Component("config").
				Category(errors.CategoryFileIO).
				FileContext(candidate).
				Build()
		}
	}
	return "", nil
}
