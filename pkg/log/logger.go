package log

import (
	"fmt"
	"log"
)

type (
	// Logger receives the applier's run progress. Implementations must be safe
	// for concurrent use: waves apply objects in parallel
	Logger interface {
		Errorf(msg string, args ...any)
		Warnf(msg string, args ...any)
		Infof(msg string, args ...any)
	}

	simpleLogger struct{}

	quietLogger struct{}
)

// SimpleLogger writes leveled lines through the standard logger
func SimpleLogger() Logger {
	return &simpleLogger{}
}

// QuietLogger discards everything. Script exports use it so the rendered DDL
// is the only output of a run
func QuietLogger() Logger {
	return &quietLogger{}
}

func (*simpleLogger) Errorf(msg string, args ...any) {
	formattedMessage := fmt.Sprintf(msg, args...)
	log.Printf("[ERROR] %s", formattedMessage)
}

func (*simpleLogger) Warnf(msg string, args ...any) {
	formattedMessage := fmt.Sprintf(msg, args...)
	log.Printf("[WARNING] %s", formattedMessage)
}

func (*simpleLogger) Infof(msg string, args ...any) {
	formattedMessage := fmt.Sprintf(msg, args...)
	log.Printf("[INFO] %s", formattedMessage)
}

func (*quietLogger) Errorf(string, ...any) {}

func (*quietLogger) Warnf(string, ...any) {}

func (*quietLogger) Infof(string, ...any) {}
