package common

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Logger wraps arbor.ILogger to provide a consistent interface
type Logger struct {
	arbor.ILogger
}

// NewLoggerFromConfig creates a logger with the configured writers and level
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	logger := arbor.NewLogger()

	outputType := models.OutputFormatLogfmt
	if cfg.Format == "json" {
		outputType = models.OutputFormatJSON
	}

	for _, output := range cfg.Outputs {
		switch output {
		case "console", "stdout":
			logger = logger.WithConsoleWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeConsole,
				TimeFormat:       "15:04:05",
				OutputType:       outputType,
				DisableTimestamp: false,
			})
		case "file":
			if cfg.FilePath == "" {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeFile,
				FileName:         cfg.FilePath,
				TimeFormat:       "15:04:05",
				MaxSize:          100 * 1024 * 1024, // 100 MB
				MaxBackups:       3,
				OutputType:       outputType,
				DisableTimestamp: false,
			})
		}
	}

	logger = logger.WithLevelFromString(cfg.Level)
	return &Logger{ILogger: logger}
}

// NewDefaultLogger creates a console logger at info level
func NewDefaultLogger() *Logger {
	return NewLoggerFromConfig(LoggingConfig{Level: "info", Format: "text", Outputs: []string{"console"}})
}

// NewSilentLogger creates a logger with no writers attached
func NewSilentLogger() *Logger {
	return &Logger{ILogger: arbor.NewLogger()}
}

// WithCorrelation returns a logger tagging every entry with id
func (l *Logger) WithCorrelation(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}
