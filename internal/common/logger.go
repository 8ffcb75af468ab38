// Package common holds process-wide helpers shared by the harvester packages.
package common

import (
	"os"
	"path/filepath"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

// LoggingConfig selects log level and outputs.
type LoggingConfig struct {
	Level   string   `yaml:"level"`
	Outputs []string `yaml:"outputs"` // "console", "file"
	File    string   `yaml:"file"`
}

// NewLogger builds an arbor logger writing to the configured outputs.
func NewLogger(cfg LoggingConfig) arbor.ILogger {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	logger := arbor.NewLogger()
	for _, out := range outputs {
		switch out {
		case "console", "stdout":
			logger = logger.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: "15:04:05",
			})
		case "file":
			path := cfg.File
			if path == "" {
				path = "logs/harvester.log"
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   path,
				TimeFormat: "15:04:05",
				MaxSize:    100 * 1024 * 1024,
				MaxBackups: 3,
			})
		}
	}
	return logger.WithLevelFromString(level)
}

// discardWriter drops everything so silent loggers never fall through to
// globally registered writers.
type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// NewSilentLogger returns a logger that writes nowhere. Used in tests and as
// the default for components constructed without a logger.
func NewSilentLogger() arbor.ILogger {
	return arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})
}
