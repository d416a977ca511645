package metrics

import "github.com/roboweedmaps/rwm-dataset/internal/logger"

// GetLogger returns the metrics logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("metrics")
}
