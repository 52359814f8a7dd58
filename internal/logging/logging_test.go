// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestNewLoggerLevel(t *testing.T) {
	core := NewLogger("t", "debug").Desugar().Core()
	test.That(t, core.Enabled(zapcore.DebugLevel), test.ShouldBeTrue)

	core = NewLogger("t", " WARN ").Desugar().Core()
	test.That(t, core.Enabled(zapcore.InfoLevel), test.ShouldBeFalse)
	test.That(t, core.Enabled(zapcore.WarnLevel), test.ShouldBeTrue)

	for _, level := range []string{"", "loud"} {
		core = NewLogger("t", level).Desugar().Core()
		test.That(t, core.Enabled(zapcore.DebugLevel), test.ShouldBeFalse)
		test.That(t, core.Enabled(zapcore.InfoLevel), test.ShouldBeTrue)
	}
}

func TestNewLoggerConfig(t *testing.T) {
	cfg := NewLoggerConfig(zapcore.ErrorLevel)
	test.That(t, cfg.Level.Level(), test.ShouldEqual, zapcore.ErrorLevel)
	test.That(t, cfg.DisableStacktrace, test.ShouldBeTrue)
	test.That(t, cfg.Encoding, test.ShouldEqual, "console")
}
