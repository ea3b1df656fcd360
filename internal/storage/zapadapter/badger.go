package zapadapter

import (
	"strings"

	"go.uber.org/zap"
)

// BadgerLogger implements badger.Logger on top of a zap.SugaredLogger
type BadgerLogger struct {
	logger *zap.SugaredLogger
}

func NewBadgerLogger(logger *zap.SugaredLogger) *BadgerLogger {
	return &BadgerLogger{logger: logger.Named("badger").WithOptions(zap.AddCallerSkip(1))}
}

// badger terminates its messages with a newline
func trim(format string) string {
	return strings.TrimSuffix(format, "\n")
}

func (bl *BadgerLogger) Errorf(format string, args ...interface{}) {
	bl.logger.Errorf(trim(format), args...)
}

func (bl *BadgerLogger) Warningf(format string, args ...interface{}) {
	bl.logger.Warnf(trim(format), args...)
}

func (bl *BadgerLogger) Infof(format string, args ...interface{}) {
	bl.logger.Infof(trim(format), args...)
}

func (bl *BadgerLogger) Debugf(format string, args ...interface{}) {
	bl.logger.Debugf(trim(format), args...)
}
