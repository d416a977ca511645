package observability

import "github.com/roboweedmaps/rwm-dataset/internal/logger"

// GetLogger returns the observability logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("metrics")
}
