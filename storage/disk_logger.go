package storage

import "go.uber.org/zap"

// badgerLogger routes badger's log output through zap.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func newBadgerLogger(log *zap.SugaredLogger) badgerLogger {
	return badgerLogger{log: log.With("component", "badger")}
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warnf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
