package conf

import "github.com/roboweedmaps/rwm-dataset/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched on every call because the central logger is installed after
// the configuration that describes it has been loaded.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
