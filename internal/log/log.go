// Package log provides centralized logging functionality using zap logger.
package log

import (
	"go.uber.org/zap"
)

var log *zap.SugaredLogger

// Init initializes the package-level logger
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return err
	}

	log = zapLogger.Sugar()
	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func logger() *zap.SugaredLogger {
	if log == nil {
		_ = Init(false)
	}
	return log
}

func Debug(args ...any)                 { logger().Debug(args...) }
func Debugf(format string, args ...any) { logger().Debugf(format, args...) }
func Info(args ...any)                  { logger().Info(args...) }
func Infof(format string, args ...any)  { logger().Infof(format, args...) }
func Warn(args ...any)                  { logger().Warn(args...) }
func Warnf(format string, args ...any)  { logger().Warnf(format, args...) }
func Error(args ...any)                 { logger().Error(args...) }
func Errorf(format string, args ...any) { logger().Errorf(format, args...) }
