package logging

import "go.uber.org/zap"

// Leveled adapts a zap logger to retryablehttp.LeveledLogger.
type Leveled struct {
	s *zap.SugaredLogger
}

// NewLeveled wraps l. Retry chatter is demoted one level so that a normal
// retry never surfaces at the CLI's default warn level.
func NewLeveled(l *zap.Logger) *Leveled {
	return &Leveled{s: OrNop(l).Named("http").Sugar()}
}

func (l *Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

func (l *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l *Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}
