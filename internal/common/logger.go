package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const (
	defaultLogFile = "logs/eodhd-mcp.log"
	logTimeFormat  = "15:04:05"
	logMaxSize     = 10 * 1024 * 1024
	logMaxBackups  = 3
)

// logOutputs is the set of writers attached by InitLogger
type logOutputs struct {
	file    bool
	console bool
}

// selectOutputs maps the configured output names onto writers.
// Under stdio, stdout is the JSON-RPC channel, so a console request becomes file output.
func selectOutputs(config *Config) logOutputs {
	var out logOutputs
	for _, name := range config.Logging.Output {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "file":
			out.file = true
		case "stdout", "console":
			out.console = true
		}
	}
	if out.console && config.Server.Transport == TransportStdio {
		out.console = false
		out.file = true
	}
	return out
}

// InitLogger builds the process logger from the logging section.
// A log directory that cannot be created drops file output with a warning on stderr.
func InitLogger(config *Config) arbor.ILogger {
	outputs := selectOutputs(config)
	logger := arbor.NewLogger()

	if outputs.file {
		path := resolveLogPath(config.Logging.File)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: log directory %s unavailable, file logging disabled: %v\n", filepath.Dir(path), err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   path,
				TimeFormat: logTimeFormat,
				MaxSize:    logMaxSize,
				MaxBackups: logMaxBackups,
				OutputType: models.OutputFormatLogfmt,
			})
		}
	}

	if outputs.console {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: logTimeFormat,
			OutputType: models.OutputFormatLogfmt,
		})
	}

	return logger.WithLevelFromString(config.LogLevel())
}

// resolveLogPath anchors a relative log path to the executable directory
func resolveLogPath(path string) string {
	if path == "" {
		path = defaultLogFile
	}
	if filepath.IsAbs(path) {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return path
	}
	return filepath.Join(filepath.Dir(exe), path)
}
