package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogLevel int32

const (
	DEBUG_INFO_DETAIL LogLevel = 1
	DEBUG_INFO        LogLevel = 2
	CHECKPOINT_INFO   LogLevel = 4
	RECOVERY_INFO     LogLevel = 8
	INFO              LogLevel = 16
	WARN              LogLevel = 32
	ERROR             LogLevel = 64
	FATAL             LogLevel = 128
)

// LogLevelSetting selects which kinds of ShPrintf output are emitted
var LogLevelSetting = ActiveLogKindSetting

var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.DebugLevel)
	return l
}

func ShPrintf(logLevel LogLevel, fmtStl string, a ...interface{}) {
	if logLevel&LogLevelSetting == 0 {
		return
	}
	// one entry per call. the formatter adds its own line end
	msg := strings.TrimSuffix(fmt.Sprintf(fmtStl, a...), "\n")
	switch {
	case logLevel >= FATAL:
		// not Fatal. callers decide whether the process goes down
		Logger.Error(msg)
	case logLevel >= ERROR:
		Logger.Error(msg)
	case logLevel >= WARN:
		Logger.Warn(msg)
	case logLevel >= INFO:
		Logger.Info(msg)
	default:
		Logger.Debug(msg)
	}
}

// ComponentLogger returns a logger which tags every entry with component name
func ComponentLogger(name string) logrus.FieldLogger {
	return Logger.WithField("component", name)
}
