// Package h1log provides the diagnostic logging used by the connection
// façade. It is purely observational: nothing in the protocol engine reads
// its output back, or branches on whether logging is enabled.
package h1log

import "go.uber.org/zap"

// Logger wraps a zap.Logger, defaulting to a no-op logger so embedders who
// don't care about diagnostics pay nothing for them.
type Logger struct {
	z *zap.Logger
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// New wraps an existing *zap.Logger.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Transition logs a state-machine transition at Debug level.
func (l *Logger) Transition(role string, from, to string, cause string) {
	l.z.Debug("state transition",
		zap.String("role", role),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("cause", cause),
	)
}

// ProtocolError logs a protocol violation at Warn level.
func (l *Logger) ProtocolError(role string, msg string, statusHint int) {
	l.z.Warn("protocol error",
		zap.String("role", role),
		zap.String("message", msg),
		zap.Int("status_hint", statusHint),
	)
}
