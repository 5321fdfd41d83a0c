package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerSetupParams struct {
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
	// UILines, when set, also receives every entry formatted for the log pane.
	UILines chan<- string
}

// Setup builds the application logger. The returned closer releases the log
// file and is nil when logging only to stdout.
func Setup(params LoggerSetupParams) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	if params.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	logger.SetLevel(GetLevel(params.LogLevel))

	if params.UILines != nil {
		logger.AddHook(NewUIHook(params.UILines, logrus.AllLevels))
	}

	if params.LogFileName == "" {
		logger.SetOutput(os.Stdout)
		logger.Debugln("writing logs only to STDOUT")
		return logger, nil
	}

	if !strings.HasSuffix(params.LogFileName, ".log") {
		params.LogFileName += ".log"
	}
	if err := os.MkdirAll(filepath.Dir(params.LogFileName), 0o755); err != nil {
		logger.SetOutput(os.Stderr)
		logger.Errorf("logging: cannot create log dir: %s", err)
		return logger, nil
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   params.LogFileName,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		LocalTime:  true,
		Compress:   true,
	}

	if params.LogToStdout {
		logger.SetOutput(NewCombinedWriter(os.Stdout, lumberJackLogger))
		logger.Debugln("writing logs to file and STDOUT")
	} else {
		logger.SetOutput(lumberJackLogger)
	}
	return logger, lumberJackLogger
}

// GetLevel maps a level name to a logrus level. Unknown names give info.
func GetLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
