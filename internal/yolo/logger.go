package yolo

import "github.com/roboweedmaps/rwm-dataset/internal/logger"

// GetLogger returns the yolo logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("yolo")
}
