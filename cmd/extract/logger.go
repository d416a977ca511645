package extract

import "github.com/roboweedmaps/rwm-dataset/internal/logger"

// GetLogger returns the logger of the extract command.
func GetLogger() logger.Logger {
	return logger.Global().Module("cli")
}
