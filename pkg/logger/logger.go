package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logrus *logrus.Logger

// Init builds the process-wide logger. When logfile is empty the logger
// writes to stdout only; otherwise output is duplicated to a size-rotated
// file.
func Init(logfile string) {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{})

	if logfile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logfile,
			MaxSize:    200,
			MaxBackups: 30,
			MaxAge:     14,
			Compress:   true,
		}
		logger.Out = io.MultiWriter(os.Stdout, rotated)
	} else {
		logger.Out = os.Stdout
	}

	logger.SetLevel(logrus.InfoLevel)
	Logrus = logger
}

func SetLogLevel(runMode string) {
	modeLevel := logrus.InfoLevel

	switch runMode {
	case "debug":
		modeLevel = logrus.DebugLevel
	case "warn":
		modeLevel = logrus.WarnLevel
	case "error":
		modeLevel = logrus.ErrorLevel
	case "fatal":
		modeLevel = logrus.FatalLevel
	default:
		modeLevel = logrus.InfoLevel
	}

	Logrus.SetLevel(modeLevel)
}
