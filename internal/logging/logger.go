package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hilayankonsky/movemix/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// sentryLevels are the log levels forwarded to sentry.
var sentryLevels = []logrus.Level{
	logrus.PanicLevel,
	logrus.FatalLevel,
	logrus.ErrorLevel,
}

type LoggerSetupParams struct {
	LogFileName      string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string

	// Stdout defaults to os.Stdout
	Stdout io.Writer
}

// Setup configures the global logrus logger. The returned func closes the log file, if any.
func Setup(params LoggerSetupParams) func() {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetLevel(GetLevel(params.LogLevel))

	if params.SentryEnabled {
		setupSentry(params)
	}

	stdout := params.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if params.LogFileName == "" {
		logrus.SetOutput(stdout)
		logrus.Debugln("writing logs only to STDOUT")
		return func() {}
	}

	fileWriter := newRotatingFile(params.LogFileName)
	if params.LogToStdout {
		logrus.SetOutput(pkg.NewCombinedWriter(stdout, fileWriter))
		logrus.Debugf("writing logs to [%s] and STDOUT", fileWriter.Filename)
	} else {
		logrus.SetOutput(fileWriter)
	}

	return func() {
		logrus.SetOutput(stdout)
		if err := fileWriter.Close(); err != nil {
			logrus.Warnf("close log file: %s", err)
		}
	}
}

func newRotatingFile(name string) *lumberjack.Logger {
	if !strings.HasSuffix(name, ".log") {
		name += ".log"
	}
	return &lumberjack.Logger{
		Filename:   name,
		MaxSize:    20, // megabytes
		MaxBackups: 10,
		LocalTime:  false, // rotated file names use UTC
		Compress:   true,
	}
}

func setupSentry(params LoggerSetupParams) {
	err := sentry.Init(sentry.ClientOptions{
		Environment:      params.Environment,
		Dsn:              params.SentryDSN,
		TracesSampleRate: 1.0,
		ServerName:       params.SentryServerName,
	})
	if err != nil {
		logrus.Errorf("sentry.Init: %s", err)
		return
	}

	logrus.AddHook(NewSentryHook(sentryLevels))
	logrus.Infoln("sentry set up successfully")
}

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
