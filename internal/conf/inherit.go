package conf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
)

// inheritKey names the parent of a config file.
const inheritKey = "inherit"

// loadConfigTree reads path and every file it inherits from, returning the merged
// map with the inherit keys removed. Relative parents resolve against the
// directory of the declaring file.
func loadConfigTree(fs afero.Fs, path string) (map[string]any, error) {
	return loadConfigFile(fs, path, nil)
}

func loadConfigFile(fs afero.Fs, path string, chain []string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	for _, seen := range chain {
		if seen == abs {
			return nil, errors.Newf("config inheritance cycle: %s", strings.Join(append(chain, abs), " -> ")).
				Component("config").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	chain = append(chain, abs)

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.New(err).
			Component("config").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}

	cfg := map[string]any{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.New(fmt.Errorf("parse %s: %w", path, err)).
			Component("config").
			Category(errors.CategoryConfiguration).
			Build()
	}

	raw, ok := cfg[inheritKey]
	if !ok {
		return cfg, nil
	}
	delete(cfg, inheritKey)

	parentPath, ok := raw.(string)
	if !ok || parentPath == "" {
		return nil, errors.Newf("%s: inherit must be a file path", path).
			Component("config").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if !filepath.IsAbs(parentPath) {
		parentPath = filepath.Join(filepath.Dir(path), parentPath)
	}

	parent, err := loadConfigFile(fs, parentPath, chain)
	if err != nil {
		return nil, err
	}
	return mergeMaps(parent, cfg), nil
}

// mergeMaps returns base overlaid with override. Nested maps merge recursively;
// any other override value, lists included, replaces the base value.
func mergeMaps(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if bm, ok := out[k].(map[string]any); ok {
			if om, ok := v.(map[string]any); ok {
				out[k] = mergeMaps(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}
