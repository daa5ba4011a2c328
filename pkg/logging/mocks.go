package logging

// NoopLogger discards all log output. It is used in tests and as a
// safe default where a component is constructed without a logger.
type NoopLogger struct{}

var _ Logger = (*NoopLogger)(nil)

func NewNoopLogger() Logger { return &NoopLogger{} }

func (n *NoopLogger) Debug(msg string, tags ...any) {}
func (n *NoopLogger) Info(msg string, tags ...any)  {}
func (n *NoopLogger) Warn(msg string, tags ...any)  {}
func (n *NoopLogger) Error(msg string, tags ...any) {}
func (n *NoopLogger) Fatal(msg string, tags ...any) {}

func (n *NoopLogger) Debugf(template string, args ...interface{}) {}
func (n *NoopLogger) Infof(template string, args ...interface{})  {}
func (n *NoopLogger) Warnf(template string, args ...interface{})  {}
func (n *NoopLogger) Errorf(template string, args ...interface{}) {}
func (n *NoopLogger) Fatalf(template string, args ...interface{}) {}

func (n *NoopLogger) With(tags ...any) Logger { return n }
