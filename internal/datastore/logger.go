package datastore

import "github.com/roboweedmaps/rwm-dataset/internal/logger"

// GetLogger returns the datastore logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
