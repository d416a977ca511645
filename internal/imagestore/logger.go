package imagestore

import "github.com/roboweedmaps/rwm-dataset/internal/logger"

// GetLogger returns the imagestore logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("imagestore")
}
