// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
)

// AppName names the per-user config and data directories.
const AppName = "rwm-dataset"

// GetDefaultConfigPaths returns the directories searched for config.yaml when no
// --config flag is given: the working directory, then $HOME/.config/rwm-dataset.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("config").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}
	return []string{".", filepath.Join(homeDir, ".config", AppName)}, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return filepath.Join(base, name)
}
