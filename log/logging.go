// SPDX-License-Identifier: GPL-3.0-or-later
package log

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggers   map[string]*logrus.Logger
	loggersMu sync.RWMutex
)

func NewPrefixLogger(prefix string) *PrefixLogger {
	stringPrefix := fmt.Sprintf("%s:\t", prefix)

	formatter := &logrus.TextFormatter{}
	formatter.FullTimestamp = true
	formatter.TimestampFormat = "15:04:05"
	formatter.DisableColors = strings.Contains(runtime.GOOS, "windows")
	return &PrefixLogger{
		formatter,
		[]byte(stringPrefix),
	}
}

type PrefixLogger struct {
	formatter logrus.Formatter
	prefix    []byte
}

func (f *PrefixLogger) Format(entry *logrus.Entry) ([]byte, error) {
	text, err := f.formatter.Format(entry)
	if err != nil {
		return nil, err
	}
	return append(f.prefix, text...), nil
}

const (
	LOG_MAIN         = "MA"
	LOG_TRIAGE       = "TR"
	LOG_CLASSIFIER   = "CL"
	LOG_LEARNER      = "LE"
	LOG_SKILLS       = "SK"
	LOG_DRAFTING     = "DR"
	LOG_CONVERSATION = "CO"
	LOG_AI           = "AI"
	LOG_PERSISTENCE  = "PI"
	LOG_IMAP         = "IM"
	LOG_API          = "AP"
)

var levels = map[string]logrus.Level{
	"trace":   logrus.TraceLevel,
	"debug":   logrus.DebugLevel,
	"info":    logrus.InfoLevel,
	"warn":    logrus.WarnLevel,
	"warning": logrus.WarnLevel,
	"error":   logrus.ErrorLevel,
	"fatal":   logrus.FatalLevel,
	"panic":   logrus.PanicLevel,
}

// ValidLevel reports whether loglevel names a level. Unknown names log at
// info.
func ValidLevel(loglevel string) bool {
	_, ok := levels[strings.ToLower(loglevel)]
	return ok
}

func getLevel(loglevel string) logrus.Level {
	if level, ok := levels[strings.ToLower(loglevel)]; ok {
		return level
	}
	return logrus.InfoLevel
}

func initLogger(prefix, loglevel string) {
	loggers[prefix] = logrus.New()
	loggers[prefix].Level = getLevel(loglevel)
	loggers[prefix].Formatter = NewPrefixLogger(prefix)
}

func InitLogging(loglevel string) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	loggers = make(map[string]*logrus.Logger)
	for _, prefix := range []string{
		LOG_MAIN,
		LOG_TRIAGE,
		LOG_CLASSIFIER,
		LOG_LEARNER,
		LOG_SKILLS,
		LOG_DRAFTING,
		LOG_CONVERSATION,
		LOG_AI,
		LOG_PERSISTENCE,
		LOG_IMAP,
		LOG_API,
	} {
		initLogger(prefix, loglevel)
	}
}

func SetLogLevel(loglevel string) {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	for _, v := range loggers {
		v.Level = getLevel(loglevel)
	}
}

func Logger(logger string) *logrus.Logger {
	loggersMu.RLock()
	l, ok := loggers[logger]
	loggersMu.RUnlock()
	if !ok {
		panic("Logger " + logger + " unknown")
	}

	return l
}
