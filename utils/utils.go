package utils

import "log"

// Logger is a thin wrapper over the stdlib log package that tags
// every line with an instance prefix and gates debug output on a
// per-instance flag, so two nodes in one process stay readable.
type Logger struct {
	Prefix string
	Debug  bool
}

func NewLogger(prefix string, debug bool) *Logger {
	return &Logger{Prefix: prefix, Debug: debug}
}

// Debugf logs only when the instance has debug enabled.
func (l *Logger) Debugf(format string, a ...interface{}) {
	if l.Debug {
		log.Printf(l.Prefix+": "+format, a...)
	}
}

func (l *Logger) Infof(format string, a ...interface{}) {
	log.Printf(l.Prefix+": "+format, a...)
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	log.Printf(l.Prefix+": warning: "+format, a...)
}
