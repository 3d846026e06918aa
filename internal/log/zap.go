// Package log holds the process-wide zap logger. Binaries pick an
// environment with one of the Init functions; the default is a no-op
// logger so library code and tests stay quiet.
package log

import (
	"go.uber.org/zap"
)

var Logger = zap.NewNop()

func InitProductionLogger() {
	Logger, _ = zap.NewProduction()
}

func InitDevelopmentLogger() {
	Logger, _ = zap.NewDevelopment()
}

// Sync flushes buffered entries. Called on shutdown.
func Sync() {
	_ = Logger.Sync()
}
