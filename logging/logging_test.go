package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.viam.com/test"
)

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("reading cloud", "path", "bunny.ply")
	logger.Infof("wrote %d points", 12)
	logger.Warn("zero normals dropped")

	test.That(t, logs.Len(), test.ShouldEqual, 3)
	test.That(t, logs.FilterMessage("reading cloud").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterField(zap.String("path", "bunny.ply")).Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("wrote 12 points").Len(), test.ShouldEqual, 1)
}

func TestLoggerConfig(t *testing.T) {
	cfg := NewLoggerConfig()
	test.That(t, cfg.Level.Level(), test.ShouldEqual, zap.InfoLevel)
	test.That(t, cfg.DisableStacktrace, test.ShouldBeTrue)
	test.That(t, cfg.Encoding, test.ShouldEqual, "console")

	test.That(t, NewLogger("regsynth"), test.ShouldNotBeNil)
	test.That(t, NewDebugLogger("regsynth"), test.ShouldNotBeNil)
}
