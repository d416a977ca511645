package extraction

import "github.com/roboweedmaps/rwm-dataset/internal/logger"

// GetLogger returns the extraction logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("extraction")
}
