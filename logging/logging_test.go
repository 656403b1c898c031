package logging

import "testing"

func TestNoopSatisfiesLogger(t *testing.T) {
	var l Logger = NewNoop()
	l.Debug("x")
	l.Info("x", "k", "v")
	l.Warn("x")
	l.Error("x", "err", "boom")
}

func TestZapLoggerSatisfiesLogger(t *testing.T) {
	var l Logger = NewZapLogger()
	l.Info("constructed ok")
}
